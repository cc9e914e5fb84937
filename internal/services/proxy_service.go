package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/rxtech-lab/amm-proxy/internal/models"
	"github.com/rxtech-lab/amm-proxy/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProxyService is the orchestration engine. Each method is one invocation:
// it decides the sub-operation to dispatch and the continuation to resume
// with once the outcome is reported, then returns control to the execution
// environment. All storage writes of an invocation commit atomically with
// the returned dispatches, or not at all.
type ProxyService interface {
	ProvideLiquidity(ctx context.Context, caller string, req ProvideLiquidityRequest, funds []models.Coin) (*models.Result, error)
	ProvidePairForReward(ctx context.Context, caller string, req ProvideLiquidityRequest, funds []models.Coin) (*models.Result, error)
	ProvideNativeForReward(ctx context.Context, caller string, req ProvideNativeRequest, funds []models.Coin) (*models.Result, error)
	Swap(ctx context.Context, caller string, req SwapRequest, funds []models.Coin) (*models.Result, error)
	Receive(ctx context.Context, caller string, envelope models.ReceiveEnvelope, funds []models.Coin) (*models.Result, error)
	ClaimReward(ctx context.Context, caller, receiver, amount string) (*models.Result, error)
	OnSubOperationComplete(ctx context.Context, notification models.CompletionNotification) (*models.Result, error)
}

type ProvideLiquidityRequest struct {
	Assets            [2]models.Asset `json:"assets"`
	SlippageTolerance string          `json:"slippage_tolerance,omitempty"`
	AutoStake         *bool           `json:"auto_stake,omitempty"`
}

type ProvideNativeRequest struct {
	Asset             models.Asset `json:"asset"`
	SlippageTolerance string       `json:"slippage_tolerance,omitempty"`
	AutoStake         *bool        `json:"auto_stake,omitempty"`
}

type SwapRequest struct {
	OfferAsset  models.Asset `json:"offer_asset"`
	BeliefPrice string       `json:"belief_price,omitempty"`
	MaxSpread   string       `json:"max_spread,omitempty"`
	To          string       `json:"to,omitempty"`
}

type proxyService struct {
	db     *gorm.DB
	pool   PoolService
	logger *zap.Logger
	now    func() time.Time
}

func NewProxyService(db *gorm.DB, pool PoolService, logger *zap.Logger) ProxyService {
	return NewProxyServiceWithClock(db, pool, logger, time.Now)
}

// NewProxyServiceWithClock pins the engine's clock, used by tests.
func NewProxyServiceWithClock(db *gorm.DB, pool PoolService, logger *zap.Logger, now func() time.Time) ProxyService {
	return &proxyService{db: db, pool: pool, logger: logger, now: now}
}

// run executes one invocation inside a single transaction. Any error rolls
// back every write the invocation performed.
func (s *proxyService) run(ctx context.Context, fn func(tx *gorm.DB) (*models.Result, error)) (*models.Result, error) {
	var result *models.Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := fn(tx)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ProvideLiquidity starts the user-funded chain: pull the token side from
// the authorized provider, then grant the pool an allowance, then provide.
func (s *proxyService) ProvideLiquidity(ctx context.Context, caller string, req ProvideLiquidityRequest, funds []models.Coin) (*models.Result, error) {
	return s.run(ctx, func(tx *gorm.DB) (*models.Result, error) {
		config, err := NewConfigService(tx).Get()
		if err != nil {
			return nil, err
		}
		if caller != config.AuthorizedLiquidityProvider {
			return nil, ErrUnauthorized
		}
		return s.beginUserTransfer(tx, config, caller, req, config.AuthorizedLiquidityProvider, models.NextActionIncreaseAllowance, funds)
	})
}

// ProvidePairForReward starts the reward-earning pair chain: the user's own
// transfer completes into the funds-owner step, which records the bonded
// reward and pulls the matching tokens from the pair reward wallet.
func (s *proxyService) ProvidePairForReward(ctx context.Context, caller string, req ProvideLiquidityRequest, funds []models.Coin) (*models.Result, error) {
	return s.run(ctx, func(tx *gorm.DB) (*models.Result, error) {
		config, err := NewConfigService(tx).Get()
		if err != nil {
			return nil, err
		}
		return s.beginUserTransfer(tx, config, caller, req, config.PairLPTokensHolder, models.NextActionTransferFromFundsOwner, funds)
	})
}

// ProvideNativeForReward starts the native-only reward chain. No user token
// transfer is needed, so the chain begins directly at the funds-owner step.
func (s *proxyService) ProvideNativeForReward(ctx context.Context, caller string, req ProvideNativeRequest, funds []models.Coin) (*models.Result, error) {
	return s.run(ctx, func(tx *gorm.DB) (*models.Result, error) {
		config, err := NewConfigService(tx).Get()
		if err != nil {
			return nil, err
		}
		if !req.Asset.Info.IsNative() {
			return nil, NewValidationError("asset must be native")
		}
		if _, err := utils.ParseAmount(req.Asset.Amount); err != nil {
			return nil, NewValidationError("invalid asset amount: %v", err)
		}

		params := models.LiquidityParams{
			Assets: [2]models.Asset{
				req.Asset,
				{
					Info:   models.AssetInfo{Token: &models.TokenInfo{ContractAddr: config.CustomTokenAddress}},
					Amount: "0",
				},
			},
			SlippageTolerance: req.SlippageTolerance,
			AutoStake:         req.AutoStake,
			Receiver:          config.NativeReceiveWallet,
		}
		return s.transferFromFundsOwner(ctx, tx, config, params, funds, caller, false)
	})
}

// Swap forwards a native-offered swap straight to the pool. Token-offered
// swaps must arrive through the Receive envelope instead.
func (s *proxyService) Swap(ctx context.Context, caller string, req SwapRequest, funds []models.Coin) (*models.Result, error) {
	return s.run(ctx, func(tx *gorm.DB) (*models.Result, error) {
		config, err := NewConfigService(tx).Get()
		if err != nil {
			return nil, err
		}
		if !req.OfferAsset.Info.IsNative() {
			return nil, ErrUnauthorized
		}
		now := s.now()
		if now.Before(config.SwapOpeningDate) {
			return nil, NewDomainError("swap window not open until %s", config.SwapOpeningDate.UTC().Format(time.RFC3339))
		}
		if _, err := utils.ParseAmount(req.OfferAsset.Amount); err != nil {
			return nil, NewValidationError("invalid offer amount: %v", err)
		}
		to := req.To
		if to == "" {
			to = caller
		} else if !utils.IsValidAddress(to) {
			return nil, NewValidationError("invalid receiver address %q", to)
		}

		requestID, err := NewRequestIDService(tx).Next()
		if err != nil {
			return nil, err
		}
		msg := models.SwapMsg{
			OfferAsset:  req.OfferAsset,
			BeliefPrice: req.BeliefPrice,
			MaxSpread:   req.MaxSpread,
			To:          to,
		}
		result := &models.Result{
			Dispatches: []models.Dispatch{{
				RequestID: &requestID,
				Target:    config.PoolPairAddress,
				Action:    models.DispatchSwap,
				Payload:   msg,
				Funds: []models.Coin{{
					Denom:  req.OfferAsset.Info.Native.Denom,
					Amount: req.OfferAsset.Amount,
				}},
			}},
			Data: []byte(fmt.Sprintf("swapping %s %s", req.OfferAsset.Amount, req.OfferAsset.Info.Native.Denom)),
		}
		result.AddEvent("proxy", "action", "sending swap message to pool")
		return result, nil
	})
}

// Receive handles a token-send-and-notify envelope: a token contract
// transferred an amount to the proxy and attached what to do with it.
func (s *proxyService) Receive(ctx context.Context, caller string, envelope models.ReceiveEnvelope, funds []models.Coin) (*models.Result, error) {
	var wrapped models.WrappedMsg
	if err := json.Unmarshal(envelope.Msg, &wrapped); err != nil {
		return nil, NewValidationError("malformed wrapped message: %v", err)
	}

	return s.run(ctx, func(tx *gorm.DB) (*models.Result, error) {
		switch {
		case wrapped.Swap != nil:
			return s.forwardTokenSwap(tx, envelope, *wrapped.Swap, funds)
		case wrapped.WithdrawLiquidity != nil:
			return s.withdrawLiquidity(tx, caller, envelope, funds)
		default:
			return nil, NewValidationError("unsupported wrapped message")
		}
	})
}

// forwardTokenSwap wraps the sale inside a transfer-and-notify call telling
// the token contract to move the received amount to the pool.
func (s *proxyService) forwardTokenSwap(tx *gorm.DB, envelope models.ReceiveEnvelope, swap models.WrappedSwapMsg, funds []models.Coin) (*models.Result, error) {
	config, err := NewConfigService(tx).Get()
	if err != nil {
		return nil, err
	}
	if _, err := utils.ParseAmount(envelope.Amount); err != nil {
		return nil, NewValidationError("invalid envelope amount: %v", err)
	}
	if swap.To == "" {
		swap.To = envelope.Sender
	}

	requestID, err := NewRequestIDService(tx).Next()
	if err != nil {
		return nil, err
	}
	result := &models.Result{
		Dispatches: []models.Dispatch{{
			RequestID: &requestID,
			Target:    config.CustomTokenAddress,
			Action:    models.DispatchSend,
			Payload: models.SendMsg{
				Contract: config.PoolPairAddress,
				Amount:   envelope.Amount,
				Msg:      models.WrappedMsg{Swap: &swap},
			},
			Funds: funds,
		}},
	}
	result.AddEvent("proxy", "action", "forwarding swap message to pool")
	return result, nil
}

// withdrawLiquidity forwards a burn of received LP tokens to the pool. Only
// the configured LP token contract may deliver this envelope.
func (s *proxyService) withdrawLiquidity(tx *gorm.DB, caller string, envelope models.ReceiveEnvelope, funds []models.Coin) (*models.Result, error) {
	config, err := NewConfigService(tx).Get()
	if err != nil {
		return nil, err
	}
	if caller != config.LiquidityToken {
		return nil, ErrUnauthorized
	}
	if _, err := utils.ParseAmount(envelope.Amount); err != nil {
		return nil, NewValidationError("invalid envelope amount: %v", err)
	}

	result := &models.Result{
		Dispatches: []models.Dispatch{{
			Target: config.LiquidityToken,
			Action: models.DispatchSend,
			Payload: models.SendMsg{
				Contract: config.PoolPairAddress,
				Amount:   envelope.Amount,
				Msg:      json.RawMessage(envelope.Msg),
			},
			Funds: funds,
		}},
		Data: []byte(fmt.Sprintf("withdraw %s", envelope.Amount)),
	}
	result.AddEvent("proxy", "action", "forwarding withdraw message to pool")
	return result, nil
}

// ClaimReward unlocks matured bonded rewards and transfers them out.
func (s *proxyService) ClaimReward(ctx context.Context, caller, receiver, amount string) (*models.Result, error) {
	return s.run(ctx, func(tx *gorm.DB) (*models.Result, error) {
		config, err := NewConfigService(tx).Get()
		if err != nil {
			return nil, err
		}
		if !utils.IsValidAddress(receiver) {
			return nil, NewValidationError("invalid receiver address %q", receiver)
		}
		if receiver != caller {
			return nil, ErrUnauthorized
		}
		now := s.now()
		if now.Before(config.SwapOpeningDate) {
			return nil, NewDomainError("swap opening not reached: %s", config.SwapOpeningDate.UTC().Format(time.RFC3339))
		}
		requested, err := utils.ParseAmount(amount)
		if err != nil {
			return nil, NewValidationError("invalid claim amount: %v", err)
		}

		if err := NewBondingService(tx).Claim(receiver, requested, config.SwapOpeningDate, now); err != nil {
			return nil, err
		}

		result := &models.Result{
			Dispatches: []models.Dispatch{{
				Target:  config.CustomTokenAddress,
				Action:  models.DispatchTransfer,
				Payload: models.TransferMsg{Recipient: receiver, Amount: requested.String()},
			}},
			Data: []byte(fmt.Sprintf("amount %s transferred", requested)),
		}
		result.Events = append(result.Events, models.Event{
			Type: "proxy",
			Attributes: []models.EventAttribute{
				{Key: "action", Value: "claim_investment_reward"},
				{Key: "withdrawn", Value: requested.String()},
			},
		})
		return result, nil
	})
}

// OnSubOperationComplete reacts to the asynchronous outcome report for a
// dispatched sub-operation. The contract gets exactly one reaction per
// notification: resolve the stored continuation and take the next step, or
// pass the notification through untouched when nothing is pending.
func (s *proxyService) OnSubOperationComplete(ctx context.Context, notification models.CompletionNotification) (*models.Result, error) {
	if !notification.Success {
		return nil, NewExternalError("sub-operation %d failed: %s", notification.RequestID, notification.Error)
	}

	return s.run(ctx, func(tx *gorm.DB) (*models.Result, error) {
		record, err := NewContinuationService(tx).Take(notification.RequestID)
		if err != nil {
			return nil, err
		}
		if record == nil {
			// Nothing pending under this id: forward events and data
			// unchanged.
			return &models.Result{
				Events: notification.Events,
				Data:   notification.Data,
			}, nil
		}

		s.logger.Debug("resuming continuation",
			zap.Uint64("request_id", record.RequestID),
			zap.String("next_action", string(record.NextAction)),
			zap.String("user", record.UserAddress),
		)

		switch record.NextAction {
		case models.NextActionTransferFromFundsOwner:
			config, err := NewConfigService(tx).Get()
			if err != nil {
				return nil, err
			}
			return s.transferFromFundsOwner(ctx, tx, config, record.Params, record.Funds, record.UserAddress, record.TokenProvided)
		case models.NextActionIncreaseAllowance:
			return s.resumeIncreaseAllowance(tx, record)
		case models.NextActionProvideLiquidity:
			return s.resumeProvideLiquidity(tx, record)
		case models.NextActionTransferToRewardWallet:
			return s.resumeTransferToRewardWallet(record)
		default:
			return nil, NewStateError("unknown continuation action %q for request %d", record.NextAction, record.RequestID)
		}
	})
}

// beginUserTransfer dispatches the TransferFrom pulling the token side out
// of the user's wallet and stores the continuation that resumes the chain.
func (s *proxyService) beginUserTransfer(tx *gorm.DB, config *models.ProxyConfig, caller string, req ProvideLiquidityRequest, receiver string, next models.NextAction, funds []models.Coin) (*models.Result, error) {
	amount, err := tokenAmountOf(req.Assets)
	if err != nil {
		return nil, err
	}

	params := models.LiquidityParams{
		Assets:            req.Assets,
		SlippageTolerance: req.SlippageTolerance,
		AutoStake:         req.AutoStake,
		Receiver:          receiver,
	}
	requestID, err := NewContinuationService(tx).Begin(next, params, funds, caller, true)
	if err != nil {
		return nil, err
	}

	result := &models.Result{
		Dispatches: []models.Dispatch{{
			RequestID: &requestID,
			Target:    config.CustomTokenAddress,
			Action:    models.DispatchTransferFrom,
			Payload: models.TransferFromMsg{
				Owner:     caller,
				Recipient: config.ProxyWalletAddress,
				Amount:    amount.String(),
			},
		}},
	}
	result.AddEvent("proxy", "action", "transferring tokens for provide liquidity")
	return result, nil
}

// transferFromFundsOwner records the bonded reward and pulls the discounted
// token amount from the reward wallet into the proxy. The ledger write and
// the dispatch commit together; a later chain step failing does not unwind
// the credit.
func (s *proxyService) transferFromFundsOwner(ctx context.Context, tx *gorm.DB, config *models.ProxyConfig, params models.LiquidityParams, funds []models.Coin, userAddress string, tokenProvided bool) (*models.Result, error) {
	nativeAmount, err := nativeAmountOf(params.Assets)
	if err != nil {
		return nil, err
	}

	pool, err := s.pool.Pool(ctx)
	if err != nil {
		return nil, NewExternalError("pool query failed: %v", err)
	}
	equivalent, err := tokenEquivalent(pool, nativeAmount)
	if err != nil {
		return nil, err
	}

	var preDiscount *big.Int
	var discountBps uint16
	var fundsOwner string
	var bondingPeriod uint64
	if tokenProvided {
		tokenAmount, err := tokenAmountOf(params.Assets)
		if err != nil {
			return nil, err
		}
		if equivalent.Cmp(tokenAmount) > 0 {
			equivalent = tokenAmount
		}
		preDiscount = new(big.Int).Mul(big.NewInt(2), equivalent)
		discountBps = config.PairDiscountRateBps
		fundsOwner = config.PairRewardWallet
		bondingPeriod = config.PairBondingPeriodSec
	} else {
		preDiscount = equivalent
		discountBps = config.NativeDiscountRateBps
		fundsOwner = config.NativeRewardWallet
		bondingPeriod = config.NativeBondingPeriodSec
	}
	total := utils.MulDiv(preDiscount, 10000, 10000-uint64(discountBps))

	// Bonds recorded before trading opens start vesting at the opening date.
	now := s.now()
	var start int64
	if config.SwapOpeningDate.Before(now) {
		start = now.Unix()
	}
	if err := NewBondingService(tx).RecordBond(userAddress, total, bondingPeriod, start); err != nil {
		return nil, err
	}

	requestID, err := NewContinuationService(tx).Begin(models.NextActionIncreaseAllowance, params, funds, userAddress, tokenProvided)
	if err != nil {
		return nil, err
	}

	result := &models.Result{
		Dispatches: []models.Dispatch{{
			RequestID: &requestID,
			Target:    config.CustomTokenAddress,
			Action:    models.DispatchTransferFrom,
			Payload: models.TransferFromMsg{
				Owner:     fundsOwner,
				Recipient: config.ProxyWalletAddress,
				Amount:    total.String(),
			},
		}},
	}
	result.AddEvent("proxy", "action", "transferring reward tokens from funds owner to proxy")
	return result, nil
}

// resumeIncreaseAllowance grants the pool an allowance over the token side
// now held by the proxy wallet.
func (s *proxyService) resumeIncreaseAllowance(tx *gorm.DB, record *models.ContinuationRecord) (*models.Result, error) {
	config, err := NewConfigService(tx).Get()
	if err != nil {
		return nil, err
	}
	amount, err := tokenAmountOf(record.Params.Assets)
	if err != nil {
		return nil, err
	}

	requestID, err := NewContinuationService(tx).Begin(models.NextActionProvideLiquidity, record.Params, record.Funds, record.UserAddress, record.TokenProvided)
	if err != nil {
		return nil, err
	}

	result := &models.Result{
		Dispatches: []models.Dispatch{{
			RequestID: &requestID,
			Target:    config.CustomTokenAddress,
			Action:    models.DispatchIncreaseAllowance,
			Payload: models.IncreaseAllowanceMsg{
				Spender: config.PoolPairAddress,
				Amount:  amount.String(),
			},
		}},
	}
	result.AddEvent("proxy", "action", "increase allowance for pool to provide liquidity")
	return result, nil
}

// resumeProvideLiquidity forwards the stored provide-liquidity call to the
// pool. Chains funded from a reward wallet only continue once more to move
// the leftover native funds; everything else is terminal here.
func (s *proxyService) resumeProvideLiquidity(tx *gorm.DB, record *models.ContinuationRecord) (*models.Result, error) {
	config, err := NewConfigService(tx).Get()
	if err != nil {
		return nil, err
	}

	var requestID uint64
	if record.TokenProvided {
		requestID, err = NewRequestIDService(tx).Next()
	} else {
		requestID, err = NewContinuationService(tx).Begin(models.NextActionTransferToRewardWallet, record.Params, record.Funds, record.UserAddress, record.TokenProvided)
	}
	if err != nil {
		return nil, err
	}

	msg := models.ProvideLiquidityMsg{
		Assets:            record.Params.Assets,
		SlippageTolerance: record.Params.SlippageTolerance,
		AutoStake:         record.Params.AutoStake,
		Receiver:          record.Params.Receiver,
	}
	result := &models.Result{
		Dispatches: []models.Dispatch{{
			RequestID: &requestID,
			Target:    config.PoolPairAddress,
			Action:    models.DispatchProvideLiquidity,
			Payload:   msg,
			Funds:     record.Funds,
		}},
		Data: []byte(fmt.Sprintf("provide liquidity to %s for %s", config.PoolPairAddress, record.Params.Receiver)),
	}
	result.AddEvent("proxy", "action", "sending provide liquidity message to pool")
	return result, nil
}

// resumeTransferToRewardWallet moves the leftover native funds of a
// native-only reward chain to the investment receive wallet. Terminal.
func (s *proxyService) resumeTransferToRewardWallet(record *models.ContinuationRecord) (*models.Result, error) {
	result := &models.Result{
		Dispatches: []models.Dispatch{{
			Target: record.Params.Receiver,
			Action: models.DispatchBankSend,
			Funds:  record.Funds,
		}},
	}
	result.AddEvent("proxy", "action", "transferring native funds to investment receive wallet")
	return result, nil
}

// tokenAmountOf returns the amount of the custom-token side of the pair.
func tokenAmountOf(assets [2]models.Asset) (*big.Int, error) {
	for _, asset := range assets {
		if !asset.Info.IsNative() {
			amount, err := utils.ParseAmount(asset.Amount)
			if err != nil {
				return nil, NewValidationError("invalid token amount: %v", err)
			}
			return amount, nil
		}
	}
	return nil, NewValidationError("assets must include the custom token side")
}

// nativeAmountOf returns the amount of the native side of the pair.
func nativeAmountOf(assets [2]models.Asset) (*big.Int, error) {
	for _, asset := range assets {
		if asset.Info.IsNative() {
			amount, err := utils.ParseAmount(asset.Amount)
			if err != nil {
				return nil, NewValidationError("invalid native amount: %v", err)
			}
			return amount, nil
		}
	}
	return nil, NewValidationError("assets must include the native side")
}

// tokenEquivalent prices the native amount in tokens at the pool's current
// reserve ratio.
func tokenEquivalent(pool *models.PoolInfo, nativeAmount *big.Int) (*big.Int, error) {
	var nativeReserve, tokenReserve *big.Int
	for _, asset := range pool.Assets {
		reserve, err := utils.ParseAmount(asset.Amount)
		if err != nil {
			return nil, NewExternalError("invalid pool reserve: %v", err)
		}
		if asset.Info.IsNative() {
			nativeReserve = reserve
		} else {
			tokenReserve = reserve
		}
	}
	if nativeReserve == nil || tokenReserve == nil {
		return nil, NewExternalError("pool reserves missing a side")
	}
	if nativeReserve.Sign() == 0 {
		return nil, NewExternalError("pool has no native reserve")
	}
	equivalent := new(big.Int).Mul(nativeAmount, tokenReserve)
	return equivalent.Quo(equivalent, nativeReserve), nil
}
