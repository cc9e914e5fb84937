package models

import (
	"time"
)

// ProxyConfig is the singleton proxy configuration. It is created once by
// Init, partially updated by Configure and read fresh on every invocation.
type ProxyConfig struct {
	ID uint `gorm:"primaryKey" json:"-"`

	// CustomTokenAddress is the token contract the proxy moves around.
	CustomTokenAddress string `gorm:"not null" json:"custom_token_address"`
	// ProxyWalletAddress is the custody wallet the proxy pulls funds into
	// before forwarding them to the pool.
	ProxyWalletAddress string `gorm:"not null" json:"proxy_wallet_address"`

	// Discount and bonding parameters when the user provides both sides of
	// the pair.
	PairDiscountRateBps  uint16 `gorm:"not null" json:"pair_discount_rate"`
	PairBondingPeriodSec uint64 `gorm:"not null" json:"pair_bonding_period_in_sec"`
	PairRewardWallet     string `gorm:"not null" json:"pair_reward_wallet"`
	// PairLPTokensHolder receives the LP tokens minted for reward-earning
	// pair contributions.
	PairLPTokensHolder string `gorm:"not null" json:"pair_lp_tokens_holder"`

	// Discount and bonding parameters when only the native side is provided.
	NativeDiscountRateBps  uint16 `gorm:"not null" json:"native_discount_rate"`
	NativeBondingPeriodSec uint64 `gorm:"not null" json:"native_bonding_period_in_sec"`
	NativeRewardWallet     string `gorm:"not null" json:"native_investment_reward_wallet"`
	NativeReceiveWallet    string `gorm:"not null" json:"native_investment_receive_wallet"`

	// AuthorizedLiquidityProvider is the only caller allowed to provide
	// liquidity directly (without earning rewards).
	AuthorizedLiquidityProvider string `gorm:"not null" json:"authorized_liquidity_provider"`

	// SwapOpeningDate is the moment trading opens. Claims and swaps are
	// rejected before it, and bonds recorded earlier start vesting at it.
	SwapOpeningDate time.Time `gorm:"not null" json:"swap_opening_date"`

	// PoolPairAddress and LiquidityToken start empty and are set by
	// Configure once the pool exists.
	PoolPairAddress string `json:"pool_pair_address"`
	LiquidityToken  string `json:"liquidity_token"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RequestIDCounter is the persisted allocator state: a single row holding the
// last issued request id. Ids are never reused within the proxy's lifetime.
type RequestIDCounter struct {
	ID    uint   `gorm:"primaryKey"`
	Value uint64 `gorm:"not null"`
}

// ContinuationRecord describes what to do once the sub-operation dispatched
// under RequestID settles. It is written in the same transaction as the
// dispatch and consumed at most once by the matching completion callback.
type ContinuationRecord struct {
	RequestID  uint64     `gorm:"primaryKey;autoIncrement:false" json:"request_id"`
	NextAction NextAction `gorm:"not null" json:"next_action"`

	// Params is the provide-liquidity followup carried across the chain.
	Params LiquidityParams `gorm:"serializer:json" json:"params"`
	// Funds are the native coins attached to the originating invocation.
	Funds []Coin `gorm:"serializer:json" json:"funds"`

	UserAddress string `gorm:"not null" json:"user_address"`
	// TokenProvided reports whether the user supplied the custom-token side
	// themselves; when false the chain was funded from a reward wallet only.
	TokenProvided bool `json:"token_provided"`

	CreatedAt time.Time `json:"created_at"`
}

// BondedRewardEntry is one time-locked reward credit owed to a user. Entries
// form an append-ordered sequence per user; claims consume them in insertion
// order and drop exhausted ones.
type BondedRewardEntry struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	UserAddress string `gorm:"index;not null" json:"user_address"`
	// BondedAmount is a non-negative integer amount as a decimal string.
	BondedAmount     string `gorm:"not null" json:"bonded_amount"`
	BondingPeriodSec uint64 `gorm:"not null" json:"bonding_period_in_sec"`
	// BondingStartTimestamp is unix seconds; zero means the lock starts at
	// the configured swap opening date, resolved lazily at claim time.
	BondingStartTimestamp int64     `json:"bonding_start_timestamp"`
	CreatedAt             time.Time `json:"created_at"`
}

// EffectiveStart resolves the vesting start against the configured opening
// date for entries recorded before trading opened.
func (e *BondedRewardEntry) EffectiveStart(openingDate time.Time) time.Time {
	if e.BondingStartTimestamp == 0 {
		return openingDate
	}
	return time.Unix(e.BondingStartTimestamp, 0)
}

// UnlockTime is the moment the entry matures.
func (e *BondedRewardEntry) UnlockTime(openingDate time.Time) time.Time {
	return e.EffectiveStart(openingDate).Add(time.Duration(e.BondingPeriodSec) * time.Second)
}
