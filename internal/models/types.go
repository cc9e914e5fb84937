package models

// AssetInfo identifies either the custom token (by contract address) or a
// native coin (by denom). Exactly one field is set.
type AssetInfo struct {
	Token  *TokenInfo  `json:"token,omitempty"`
	Native *NativeInfo `json:"native_token,omitempty"`
}

type TokenInfo struct {
	ContractAddr string `json:"contract_addr"`
}

type NativeInfo struct {
	Denom string `json:"denom"`
}

// IsNative reports whether the asset is a native coin rather than the token.
func (a AssetInfo) IsNative() bool {
	return a.Native != nil
}

// Asset pairs an asset identity with an integer amount (decimal string).
type Asset struct {
	Info   AssetInfo `json:"info"`
	Amount string    `json:"amount"`
}

// Coin is a native denomination and amount attached to an invocation.
type Coin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// NextAction names the step a continuation resumes with. Unknown values are
// a state error, there is no fallthrough branch.
type NextAction string

const (
	NextActionIncreaseAllowance      NextAction = "increase_allowance"
	NextActionProvideLiquidity       NextAction = "provide_liquidity"
	NextActionTransferToRewardWallet NextAction = "transfer_to_reward_wallet"
	NextActionTransferFromFundsOwner NextAction = "transfer_from_funds_owner"
)

// LiquidityParams is the typed followup payload carried across a
// provide-liquidity continuation chain.
type LiquidityParams struct {
	Assets            [2]Asset `json:"assets"`
	SlippageTolerance string   `json:"slippage_tolerance,omitempty"`
	AutoStake         *bool    `json:"auto_stake,omitempty"`
	Receiver          string   `json:"receiver,omitempty"`
}

// DispatchAction names the external call a dispatch performs.
type DispatchAction string

const (
	DispatchTransferFrom      DispatchAction = "transfer_from"
	DispatchIncreaseAllowance DispatchAction = "increase_allowance"
	DispatchTransfer          DispatchAction = "transfer"
	DispatchSend              DispatchAction = "send"
	DispatchProvideLiquidity  DispatchAction = "provide_liquidity"
	DispatchSwap              DispatchAction = "swap"
	DispatchBankSend          DispatchAction = "bank_send"
)

// Dispatch is a sub-operation handed back to the execution environment. When
// RequestID is set the environment reports the outcome later through the
// completion callback under that id.
type Dispatch struct {
	RequestID *uint64        `json:"request_id,omitempty"`
	Target    string         `json:"target"`
	Action    DispatchAction `json:"action"`
	Payload   any            `json:"payload,omitempty"`
	Funds     []Coin         `json:"funds,omitempty"`
}

// EventAttribute is a key/value pair attached to an event.
type EventAttribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Event is emitted alongside dispatches for observability.
type Event struct {
	Type       string           `json:"type"`
	Attributes []EventAttribute `json:"attributes,omitempty"`
}

// Result is what a mutating invocation returns: the dispatches to perform,
// events, and opaque response data.
type Result struct {
	Dispatches []Dispatch `json:"dispatches,omitempty"`
	Events     []Event    `json:"events,omitempty"`
	Data       []byte     `json:"data,omitempty"`
}

// AddEvent appends a single-attribute action event, mirroring how the proxy
// tags every invocation.
func (r *Result) AddEvent(eventType, key, value string) {
	r.Events = append(r.Events, Event{
		Type:       eventType,
		Attributes: []EventAttribute{{Key: key, Value: value}},
	})
}

// CompletionNotification is the asynchronous report of a dispatched
// sub-operation's outcome, correlated by request id.
type CompletionNotification struct {
	RequestID uint64  `json:"request_id" validate:"required"`
	Success   bool    `json:"success"`
	Error     string  `json:"error,omitempty"`
	Events    []Event `json:"events,omitempty"`
	Data      []byte  `json:"data,omitempty"`
}
