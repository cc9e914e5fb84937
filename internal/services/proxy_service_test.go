package services_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/rxtech-lab/amm-proxy/internal/models"
	"github.com/rxtech-lab/amm-proxy/internal/services"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

const (
	tokenAddr        = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	proxyWalletAddr  = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	pairRewardAddr   = "0xcccccccccccccccccccccccccccccccccccccccc"
	pairLPHolderAddr = "0xdddddddddddddddddddddddddddddddddddddddd"
	nativeRewardAddr = "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"
	nativeRecvAddr   = "0xffffffffffffffffffffffffffffffffffffffff"
	providerAddr     = "0x1111111111111111111111111111111111111111"
	poolPairAddr     = "0x2222222222222222222222222222222222222222"
	lpTokenAddr      = "0x3333333333333333333333333333333333333333"
	userAddr         = "0x4444444444444444444444444444444444444444"
)

type fakePoolService struct {
	pool *models.PoolInfo
	err  error
}

func (f *fakePoolService) Pool(ctx context.Context) (*models.PoolInfo, error) {
	return f.pool, f.err
}

func (f *fakePoolService) Pair(ctx context.Context) (*models.PairInfo, error) {
	return nil, errors.New("not implemented")
}

func (f *fakePoolService) Simulation(ctx context.Context, offer models.Asset) (*models.SimulationResult, error) {
	return nil, errors.New("not implemented")
}

func (f *fakePoolService) ReverseSimulation(ctx context.Context, ask models.Asset) (*models.ReverseSimulationResult, error) {
	return nil, errors.New("not implemented")
}

func (f *fakePoolService) CumulativePrices(ctx context.Context) (*models.CumulativePricesResult, error) {
	return nil, errors.New("not implemented")
}

type ProxyServiceTestSuite struct {
	suite.Suite
	db      services.DBService
	pool    *fakePoolService
	proxy   services.ProxyService
	bonding services.BondingService

	opening time.Time
	nowTime time.Time
}

func (suite *ProxyServiceTestSuite) SetupTest() {
	db, err := services.NewSqliteDBService(":memory:")
	suite.Require().NoError(err)
	suite.db = db

	suite.opening = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	suite.nowTime = suite.opening.Add(24 * time.Hour)

	// Native reserve 1000, token reserve 2000: one native buys two tokens.
	suite.pool = &fakePoolService{pool: &models.PoolInfo{
		Assets: [2]models.Asset{
			{Info: models.AssetInfo{Native: &models.NativeInfo{Denom: "uusd"}}, Amount: "1000"},
			{Info: models.AssetInfo{Token: &models.TokenInfo{ContractAddr: tokenAddr}}, Amount: "2000"},
		},
		TotalShare: "1000",
	}}

	configService := services.NewConfigService(db.GetDB())
	_, err = configService.Init(services.InitConfigRequest{
		CustomTokenAddress:          tokenAddr,
		ProxyWalletAddress:          proxyWalletAddr,
		PairDiscountRateBps:         1000,
		PairBondingPeriodSec:        3600,
		PairRewardWallet:            pairRewardAddr,
		PairLPTokensHolder:          pairLPHolderAddr,
		NativeDiscountRateBps:       1000,
		NativeBondingPeriodSec:      3600,
		NativeRewardWallet:          nativeRewardAddr,
		NativeReceiveWallet:         nativeRecvAddr,
		AuthorizedLiquidityProvider: providerAddr,
		SwapOpeningDate:             suite.opening,
	})
	suite.Require().NoError(err)
	pair := poolPairAddr
	lp := lpTokenAddr
	_, err = configService.Configure(services.ConfigureRequest{
		PoolPairAddress: &pair,
		LiquidityToken:  &lp,
		SwapOpeningDate: suite.opening,
	})
	suite.Require().NoError(err)

	suite.proxy = services.NewProxyServiceWithClock(db.GetDB(), suite.pool, zap.NewNop(), func() time.Time {
		return suite.nowTime
	})
	suite.bonding = services.NewBondingService(db.GetDB())
}

func (suite *ProxyServiceTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func pairAssets(nativeAmount, tokenAmount string) [2]models.Asset {
	return [2]models.Asset{
		{Info: models.AssetInfo{Native: &models.NativeInfo{Denom: "uusd"}}, Amount: nativeAmount},
		{Info: models.AssetInfo{Token: &models.TokenInfo{ContractAddr: tokenAddr}}, Amount: tokenAmount},
	}
}

func (suite *ProxyServiceTestSuite) complete(requestID uint64) (*models.Result, error) {
	return suite.proxy.OnSubOperationComplete(context.Background(), models.CompletionNotification{
		RequestID: requestID,
		Success:   true,
	})
}

func (suite *ProxyServiceTestSuite) TestProvideLiquidityRejectsUnknownCaller() {
	_, err := suite.proxy.ProvideLiquidity(context.Background(), userAddr, services.ProvideLiquidityRequest{
		Assets: pairAssets("500", "1000"),
	}, nil)
	suite.ErrorIs(err, services.ErrUnauthorized)
}

func (suite *ProxyServiceTestSuite) TestProvideLiquidityChain() {
	funds := []models.Coin{{Denom: "uusd", Amount: "500"}}
	result, err := suite.proxy.ProvideLiquidity(context.Background(), providerAddr, services.ProvideLiquidityRequest{
		Assets: pairAssets("500", "1000"),
	}, funds)
	suite.Require().NoError(err)
	suite.Require().Len(result.Dispatches, 1)

	dispatch := result.Dispatches[0]
	suite.Require().NotNil(dispatch.RequestID)
	suite.Equal(uint64(1), *dispatch.RequestID)
	suite.Equal(tokenAddr, dispatch.Target)
	suite.Equal(models.DispatchTransferFrom, dispatch.Action)
	transferFrom := dispatch.Payload.(models.TransferFromMsg)
	suite.Equal(providerAddr, transferFrom.Owner)
	suite.Equal(proxyWalletAddr, transferFrom.Recipient)
	suite.Equal("1000", transferFrom.Amount)

	// Transfer settled: grant the pool an allowance.
	result, err = suite.complete(1)
	suite.Require().NoError(err)
	suite.Require().Len(result.Dispatches, 1)
	dispatch = result.Dispatches[0]
	suite.Require().NotNil(dispatch.RequestID)
	suite.Equal(uint64(2), *dispatch.RequestID)
	suite.Equal(models.DispatchIncreaseAllowance, dispatch.Action)
	allowance := dispatch.Payload.(models.IncreaseAllowanceMsg)
	suite.Equal(poolPairAddr, allowance.Spender)
	suite.Equal("1000", allowance.Amount)

	// Allowance settled: provide liquidity with the attached native funds.
	result, err = suite.complete(2)
	suite.Require().NoError(err)
	suite.Require().Len(result.Dispatches, 1)
	dispatch = result.Dispatches[0]
	suite.Require().NotNil(dispatch.RequestID)
	suite.Equal(uint64(3), *dispatch.RequestID)
	suite.Equal(poolPairAddr, dispatch.Target)
	suite.Equal(models.DispatchProvideLiquidity, dispatch.Action)
	suite.Equal(funds, dispatch.Funds)
	provide := dispatch.Payload.(models.ProvideLiquidityMsg)
	suite.Equal(providerAddr, provide.Receiver)

	// Terminal: the pool's completion passes through untouched.
	result, err = suite.complete(3)
	suite.Require().NoError(err)
	suite.Empty(result.Dispatches)
}

func (suite *ProxyServiceTestSuite) TestProvidePairForRewardRecordsBond() {
	funds := []models.Coin{{Denom: "uusd", Amount: "500"}}
	result, err := suite.proxy.ProvidePairForReward(context.Background(), userAddr, services.ProvideLiquidityRequest{
		Assets: pairAssets("500", "1000"),
	}, funds)
	suite.Require().NoError(err)
	suite.Require().Len(result.Dispatches, 1)
	transferFrom := result.Dispatches[0].Payload.(models.TransferFromMsg)
	suite.Equal(userAddr, transferFrom.Owner)
	suite.Equal("1000", transferFrom.Amount)

	// 500 native is worth 1000 tokens at the pool ratio, capped at the token
	// side, doubled for both halves of the pair and grossed up by the 10%
	// discount: 2000 * 10000 / 9000 = 2222.
	result, err = suite.complete(1)
	suite.Require().NoError(err)
	suite.Require().Len(result.Dispatches, 1)
	dispatch := result.Dispatches[0]
	suite.Equal(models.DispatchTransferFrom, dispatch.Action)
	rewardTransfer := dispatch.Payload.(models.TransferFromMsg)
	suite.Equal(pairRewardAddr, rewardTransfer.Owner)
	suite.Equal(proxyWalletAddr, rewardTransfer.Recipient)
	suite.Equal("2222", rewardTransfer.Amount)

	entries, err := suite.bonding.ListByUser(userAddr)
	suite.Require().NoError(err)
	suite.Require().Len(entries, 1)
	suite.Equal("2222", entries[0].BondedAmount)
	suite.Equal(uint64(3600), entries[0].BondingPeriodSec)
	suite.Equal(suite.nowTime.Unix(), entries[0].BondingStartTimestamp)

	// The chain continues into the allowance step against the reward funds.
	result, err = suite.complete(2)
	suite.Require().NoError(err)
	suite.Require().Len(result.Dispatches, 1)
	suite.Equal(models.DispatchIncreaseAllowance, result.Dispatches[0].Action)
}

func (suite *ProxyServiceTestSuite) TestProvidePairForRewardBeforeOpeningDefersVesting() {
	suite.nowTime = suite.opening.Add(-24 * time.Hour)

	_, err := suite.proxy.ProvidePairForReward(context.Background(), userAddr, services.ProvideLiquidityRequest{
		Assets: pairAssets("500", "1000"),
	}, nil)
	suite.Require().NoError(err)
	_, err = suite.complete(1)
	suite.Require().NoError(err)

	entries, err := suite.bonding.ListByUser(userAddr)
	suite.Require().NoError(err)
	suite.Require().Len(entries, 1)
	// Zero start: the lock begins at the opening date instead.
	suite.Equal(int64(0), entries[0].BondingStartTimestamp)
}

func (suite *ProxyServiceTestSuite) TestProvideNativeForRewardChain() {
	funds := []models.Coin{{Denom: "uusd", Amount: "500"}}
	asset := models.Asset{
		Info:   models.AssetInfo{Native: &models.NativeInfo{Denom: "uusd"}},
		Amount: "500",
	}

	// 500 native is worth 1000 tokens; grossed up by the 10% discount that is
	// 1000 * 10000 / 9000 = 1111, pulled from the native reward wallet.
	result, err := suite.proxy.ProvideNativeForReward(context.Background(), userAddr, services.ProvideNativeRequest{Asset: asset}, funds)
	suite.Require().NoError(err)
	suite.Require().Len(result.Dispatches, 1)
	dispatch := result.Dispatches[0]
	suite.Require().NotNil(dispatch.RequestID)
	suite.Equal(uint64(1), *dispatch.RequestID)
	transferFrom := dispatch.Payload.(models.TransferFromMsg)
	suite.Equal(nativeRewardAddr, transferFrom.Owner)
	suite.Equal("1111", transferFrom.Amount)

	entries, err := suite.bonding.ListByUser(userAddr)
	suite.Require().NoError(err)
	suite.Require().Len(entries, 1)
	suite.Equal("1111", entries[0].BondedAmount)

	// Allowance over the stored token side (zero for native-only chains).
	result, err = suite.complete(1)
	suite.Require().NoError(err)
	suite.Require().Len(result.Dispatches, 1)
	suite.Equal(models.DispatchIncreaseAllowance, result.Dispatches[0].Action)

	// Provide liquidity, then move the native funds onward.
	result, err = suite.complete(2)
	suite.Require().NoError(err)
	suite.Require().Len(result.Dispatches, 1)
	dispatch = result.Dispatches[0]
	suite.Equal(models.DispatchProvideLiquidity, dispatch.Action)
	provide := dispatch.Payload.(models.ProvideLiquidityMsg)
	suite.Equal(nativeRecvAddr, provide.Receiver)

	result, err = suite.complete(3)
	suite.Require().NoError(err)
	suite.Require().Len(result.Dispatches, 1)
	dispatch = result.Dispatches[0]
	suite.Nil(dispatch.RequestID)
	suite.Equal(models.DispatchBankSend, dispatch.Action)
	suite.Equal(nativeRecvAddr, dispatch.Target)
	suite.Equal(funds, dispatch.Funds)
}

func (suite *ProxyServiceTestSuite) TestProvideNativeForRewardRejectsToken() {
	asset := models.Asset{
		Info:   models.AssetInfo{Token: &models.TokenInfo{ContractAddr: tokenAddr}},
		Amount: "500",
	}
	_, err := suite.proxy.ProvideNativeForReward(context.Background(), userAddr, services.ProvideNativeRequest{Asset: asset}, nil)
	suite.Require().Error(err)
	suite.Equal(services.ErrorKindValidation, services.KindOf(err))
}

func (suite *ProxyServiceTestSuite) TestCompletionFailureKeepsContinuation() {
	_, err := suite.proxy.ProvidePairForReward(context.Background(), userAddr, services.ProvideLiquidityRequest{
		Assets: pairAssets("500", "1000"),
	}, nil)
	suite.Require().NoError(err)

	_, err = suite.proxy.OnSubOperationComplete(context.Background(), models.CompletionNotification{
		RequestID: 1,
		Success:   false,
		Error:     "transfer reverted",
	})
	suite.Require().Error(err)
	suite.Equal(services.ErrorKindExternal, services.KindOf(err))
	suite.Contains(err.Error(), "sub-operation 1 failed: transfer reverted")

	// The continuation survives the failed report and can settle later.
	result, err := suite.complete(1)
	suite.NoError(err)
	suite.NotEmpty(result.Dispatches)
}

func (suite *ProxyServiceTestSuite) TestUnknownCompletionPassesThrough() {
	events := []models.Event{{Type: "wasm", Attributes: []models.EventAttribute{{Key: "action", Value: "mint"}}}}
	result, err := suite.proxy.OnSubOperationComplete(context.Background(), models.CompletionNotification{
		RequestID: 99,
		Success:   true,
		Events:    events,
		Data:      []byte("ok"),
	})
	suite.Require().NoError(err)
	suite.Empty(result.Dispatches)
	suite.Equal(events, result.Events)
	suite.Equal([]byte("ok"), result.Data)
}

func (suite *ProxyServiceTestSuite) TestSwapBeforeOpeningRejected() {
	suite.nowTime = suite.opening.Add(-time.Hour)
	_, err := suite.proxy.Swap(context.Background(), userAddr, services.SwapRequest{
		OfferAsset: models.Asset{
			Info:   models.AssetInfo{Native: &models.NativeInfo{Denom: "uusd"}},
			Amount: "100",
		},
	}, nil)
	suite.Require().Error(err)
	suite.Equal(services.ErrorKindDomain, services.KindOf(err))
}

func (suite *ProxyServiceTestSuite) TestSwapRejectsTokenOffer() {
	_, err := suite.proxy.Swap(context.Background(), userAddr, services.SwapRequest{
		OfferAsset: models.Asset{
			Info:   models.AssetInfo{Token: &models.TokenInfo{ContractAddr: tokenAddr}},
			Amount: "100",
		},
	}, nil)
	suite.ErrorIs(err, services.ErrUnauthorized)
}

func (suite *ProxyServiceTestSuite) TestSwapDispatchesToPool() {
	offer := models.Asset{
		Info:   models.AssetInfo{Native: &models.NativeInfo{Denom: "uusd"}},
		Amount: "100",
	}
	result, err := suite.proxy.Swap(context.Background(), userAddr, services.SwapRequest{OfferAsset: offer}, nil)
	suite.Require().NoError(err)
	suite.Require().Len(result.Dispatches, 1)

	dispatch := result.Dispatches[0]
	suite.Require().NotNil(dispatch.RequestID)
	suite.Equal(poolPairAddr, dispatch.Target)
	suite.Equal(models.DispatchSwap, dispatch.Action)
	suite.Equal([]models.Coin{{Denom: "uusd", Amount: "100"}}, dispatch.Funds)
	swap := dispatch.Payload.(models.SwapMsg)
	suite.Equal(offer, swap.OfferAsset)
	// Receiver defaults to the caller.
	suite.Equal(userAddr, swap.To)
}

func (suite *ProxyServiceTestSuite) TestReceiveForwardsTokenSwap() {
	envelope := models.ReceiveEnvelope{
		Sender: userAddr,
		Amount: "250",
		Msg:    []byte(`{"swap":{"max_spread":"0.01"}}`),
	}
	result, err := suite.proxy.Receive(context.Background(), tokenAddr, envelope, nil)
	suite.Require().NoError(err)
	suite.Require().Len(result.Dispatches, 1)

	dispatch := result.Dispatches[0]
	suite.Require().NotNil(dispatch.RequestID)
	suite.Equal(tokenAddr, dispatch.Target)
	suite.Equal(models.DispatchSend, dispatch.Action)
	send := dispatch.Payload.(models.SendMsg)
	suite.Equal(poolPairAddr, send.Contract)
	suite.Equal("250", send.Amount)
	wrapped := send.Msg.(models.WrappedMsg)
	suite.Require().NotNil(wrapped.Swap)
	suite.Equal("0.01", wrapped.Swap.MaxSpread)
	suite.Equal(userAddr, wrapped.Swap.To)
}

func (suite *ProxyServiceTestSuite) TestReceiveWithdrawRequiresLPToken() {
	envelope := models.ReceiveEnvelope{
		Sender: userAddr,
		Amount: "10",
		Msg:    []byte(`{"withdraw_liquidity":{}}`),
	}
	_, err := suite.proxy.Receive(context.Background(), tokenAddr, envelope, nil)
	suite.ErrorIs(err, services.ErrUnauthorized)

	result, err := suite.proxy.Receive(context.Background(), lpTokenAddr, envelope, nil)
	suite.Require().NoError(err)
	suite.Require().Len(result.Dispatches, 1)
	dispatch := result.Dispatches[0]
	suite.Nil(dispatch.RequestID)
	suite.Equal(lpTokenAddr, dispatch.Target)
	send := dispatch.Payload.(models.SendMsg)
	suite.Equal(poolPairAddr, send.Contract)
	suite.Equal("10", send.Amount)
}

func (suite *ProxyServiceTestSuite) TestReceiveRejectsUnknownMessage() {
	envelope := models.ReceiveEnvelope{
		Sender: userAddr,
		Amount: "10",
		Msg:    []byte(`{"stake":{}}`),
	}
	_, err := suite.proxy.Receive(context.Background(), tokenAddr, envelope, nil)
	suite.Require().Error(err)
	suite.Equal(services.ErrorKindValidation, services.KindOf(err))
}

func (suite *ProxyServiceTestSuite) TestClaimRewardRejectsThirdParty() {
	_, err := suite.proxy.ClaimReward(context.Background(), userAddr, providerAddr, "100")
	suite.ErrorIs(err, services.ErrUnauthorized)
}

func (suite *ProxyServiceTestSuite) TestClaimRewardBeforeOpeningRejected() {
	suite.nowTime = suite.opening.Add(-time.Hour)
	_, err := suite.proxy.ClaimReward(context.Background(), userAddr, userAddr, "100")
	suite.Require().Error(err)
	suite.Equal(services.ErrorKindDomain, services.KindOf(err))
}

func (suite *ProxyServiceTestSuite) TestClaimRewardTransfersUnlocked() {
	suite.Require().NoError(suite.bonding.RecordBond(userAddr, big.NewInt(300), 3600, suite.opening.Unix()))
	suite.nowTime = suite.opening.Add(48 * time.Hour)

	result, err := suite.proxy.ClaimReward(context.Background(), userAddr, userAddr, "200")
	suite.Require().NoError(err)
	suite.Require().Len(result.Dispatches, 1)

	dispatch := result.Dispatches[0]
	suite.Nil(dispatch.RequestID)
	suite.Equal(tokenAddr, dispatch.Target)
	suite.Equal(models.DispatchTransfer, dispatch.Action)
	transfer := dispatch.Payload.(models.TransferMsg)
	suite.Equal(userAddr, transfer.Recipient)
	suite.Equal("200", transfer.Amount)

	entries, err := suite.bonding.ListByUser(userAddr)
	suite.Require().NoError(err)
	suite.Require().Len(entries, 1)
	suite.Equal("100", entries[0].BondedAmount)
}

func (suite *ProxyServiceTestSuite) TestClaimRewardInsufficientLeavesLedger() {
	suite.Require().NoError(suite.bonding.RecordBond(userAddr, big.NewInt(100), 3600, suite.opening.Unix()))
	suite.nowTime = suite.opening.Add(48 * time.Hour)

	_, err := suite.proxy.ClaimReward(context.Background(), userAddr, userAddr, "500")
	suite.Require().Error(err)
	suite.Equal(services.ErrorKindDomain, services.KindOf(err))

	entries, err := suite.bonding.ListByUser(userAddr)
	suite.Require().NoError(err)
	suite.Require().Len(entries, 1)
	suite.Equal("100", entries[0].BondedAmount)
}

func (suite *ProxyServiceTestSuite) TestPoolFailureAbortsRewardChain() {
	suite.pool.err = errors.New("connection refused")

	_, err := suite.proxy.ProvideNativeForReward(context.Background(), userAddr, services.ProvideNativeRequest{
		Asset: models.Asset{
			Info:   models.AssetInfo{Native: &models.NativeInfo{Denom: "uusd"}},
			Amount: "500",
		},
	}, nil)
	suite.Require().Error(err)
	suite.Equal(services.ErrorKindExternal, services.KindOf(err))

	// Nothing was bonded: the invocation rolled back as a unit.
	entries, err := suite.bonding.ListByUser(userAddr)
	suite.Require().NoError(err)
	suite.Empty(entries)
}

func TestProxyServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ProxyServiceTestSuite))
}
