package models

import "encoding/json"

// Dispatch payloads. Each struct is the JSON body of one external call the
// execution environment performs on the proxy's behalf.

// TransferFromMsg pulls Amount of the token from Owner into Recipient using
// a previously granted allowance.
type TransferFromMsg struct {
	Owner     string `json:"owner"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

// IncreaseAllowanceMsg lets Spender move Amount of the token held by the
// proxy wallet.
type IncreaseAllowanceMsg struct {
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

// TransferMsg moves Amount of the token from the proxy wallet to Recipient.
type TransferMsg struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

// SendMsg transfers Amount of a token to Contract and notifies it with the
// embedded message in one step.
type SendMsg struct {
	Contract string `json:"contract"`
	Amount   string `json:"amount"`
	Msg      any    `json:"msg"`
}

// ProvideLiquidityMsg is the pool call adding both sides of the pair.
type ProvideLiquidityMsg struct {
	Assets            [2]Asset `json:"assets"`
	SlippageTolerance string   `json:"slippage_tolerance,omitempty"`
	AutoStake         *bool    `json:"auto_stake,omitempty"`
	Receiver          string   `json:"receiver,omitempty"`
}

// SwapMsg is the pool call exchanging the offered asset.
type SwapMsg struct {
	OfferAsset  Asset  `json:"offer_asset"`
	BeliefPrice string `json:"belief_price,omitempty"`
	MaxSpread   string `json:"max_spread,omitempty"`
	To          string `json:"to,omitempty"`
}

// ReceiveEnvelope is a token-send-and-notify delivery: Sender transferred
// Amount of a token to the proxy and attached Msg describing what to do with
// it.
type ReceiveEnvelope struct {
	Sender string          `json:"sender" validate:"required"`
	Amount string          `json:"amount" validate:"required"`
	Msg    json.RawMessage `json:"msg" validate:"required"`
}

// WrappedMsg is the decoded envelope payload. Exactly one field is set.
type WrappedMsg struct {
	Swap              *WrappedSwapMsg       `json:"swap,omitempty"`
	WithdrawLiquidity *WithdrawLiquidityMsg `json:"withdraw_liquidity,omitempty"`
}

// WrappedSwapMsg sells the received token amount through the pool.
type WrappedSwapMsg struct {
	BeliefPrice string `json:"belief_price,omitempty"`
	MaxSpread   string `json:"max_spread,omitempty"`
	To          string `json:"to,omitempty"`
}

// WithdrawLiquidityMsg burns received LP tokens against the pool.
type WithdrawLiquidityMsg struct{}
