package services

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/amm-proxy/internal/models"
	"github.com/rxtech-lab/amm-proxy/internal/utils"
	"gorm.io/gorm"
)

// ConfigService owns the singleton proxy configuration row.
type ConfigService interface {
	// Init performs the one-time setup. It fails if the proxy is already
	// initialized or any address field is not syntactically valid.
	Init(req InitConfigRequest) (*models.ProxyConfig, error)
	// Configure partially updates the pool wiring and the swap opening
	// date. Unrestricted by design.
	Configure(req ConfigureRequest) (*models.ProxyConfig, error)
	// Get returns the current configuration, read fresh.
	Get() (*models.ProxyConfig, error)
}

type InitConfigRequest struct {
	CustomTokenAddress string `json:"custom_token_address" validate:"required"`
	ProxyWalletAddress string `json:"proxy_wallet_address" validate:"required"`

	PairDiscountRateBps  uint16 `json:"pair_discount_rate" validate:"lt=10000"`
	PairBondingPeriodSec uint64 `json:"pair_bonding_period_in_sec"`
	PairRewardWallet     string `json:"pair_reward_wallet" validate:"required"`
	PairLPTokensHolder   string `json:"pair_lp_tokens_holder" validate:"required"`

	NativeDiscountRateBps  uint16 `json:"native_discount_rate" validate:"lt=10000"`
	NativeBondingPeriodSec uint64 `json:"native_bonding_period_in_sec"`
	NativeRewardWallet     string `json:"native_investment_reward_wallet" validate:"required"`
	NativeReceiveWallet    string `json:"native_investment_receive_wallet" validate:"required"`

	AuthorizedLiquidityProvider string    `json:"authorized_liquidity_provider" validate:"required"`
	SwapOpeningDate             time.Time `json:"swap_opening_date" validate:"required"`
	PoolPairAddress             string    `json:"pool_pair_address"`
}

type ConfigureRequest struct {
	PoolPairAddress *string   `json:"pool_pair_address,omitempty"`
	LiquidityToken  *string   `json:"liquidity_token,omitempty"`
	SwapOpeningDate time.Time `json:"swap_opening_date" validate:"required"`
}

type configService struct {
	db       *gorm.DB
	validate *validator.Validate
}

func NewConfigService(db *gorm.DB) ConfigService {
	return &configService{db: db, validate: validator.New()}
}

func (s *configService) Init(req InitConfigRequest) (*models.ProxyConfig, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, NewValidationError("invalid configuration: %v", err)
	}
	addresses := map[string]string{
		"custom_token_address":             req.CustomTokenAddress,
		"proxy_wallet_address":             req.ProxyWalletAddress,
		"pair_reward_wallet":               req.PairRewardWallet,
		"pair_lp_tokens_holder":            req.PairLPTokensHolder,
		"native_investment_reward_wallet":  req.NativeRewardWallet,
		"native_investment_receive_wallet": req.NativeReceiveWallet,
		"authorized_liquidity_provider":    req.AuthorizedLiquidityProvider,
	}
	for field, addr := range addresses {
		if !utils.IsValidAddress(addr) {
			return nil, NewValidationError("invalid address for %s: %q", field, addr)
		}
	}

	var existing models.ProxyConfig
	err := s.db.First(&existing).Error
	if err == nil {
		return nil, NewValidationError("proxy already initialized")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	config := models.ProxyConfig{
		CustomTokenAddress:          req.CustomTokenAddress,
		ProxyWalletAddress:          req.ProxyWalletAddress,
		PairDiscountRateBps:         req.PairDiscountRateBps,
		PairBondingPeriodSec:        req.PairBondingPeriodSec,
		PairRewardWallet:            req.PairRewardWallet,
		PairLPTokensHolder:          req.PairLPTokensHolder,
		NativeDiscountRateBps:       req.NativeDiscountRateBps,
		NativeBondingPeriodSec:      req.NativeBondingPeriodSec,
		NativeRewardWallet:          req.NativeRewardWallet,
		NativeReceiveWallet:         req.NativeReceiveWallet,
		AuthorizedLiquidityProvider: req.AuthorizedLiquidityProvider,
		SwapOpeningDate:             req.SwapOpeningDate,
		PoolPairAddress:             req.PoolPairAddress,
	}
	if err := s.db.Create(&config).Error; err != nil {
		return nil, err
	}
	return &config, nil
}

func (s *configService) Configure(req ConfigureRequest) (*models.ProxyConfig, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, NewValidationError("invalid configuration: %v", err)
	}

	config, err := s.Get()
	if err != nil {
		return nil, err
	}
	if req.PoolPairAddress != nil {
		config.PoolPairAddress = *req.PoolPairAddress
	}
	if req.LiquidityToken != nil {
		if !utils.IsValidAddress(*req.LiquidityToken) {
			return nil, NewValidationError("invalid address for liquidity_token: %q", *req.LiquidityToken)
		}
		config.LiquidityToken = *req.LiquidityToken
	}
	config.SwapOpeningDate = req.SwapOpeningDate

	if err := s.db.Save(config).Error; err != nil {
		return nil, err
	}
	return config, nil
}

func (s *configService) Get() (*models.ProxyConfig, error) {
	var config models.ProxyConfig
	err := s.db.First(&config).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewStateError("proxy not initialized")
	}
	if err != nil {
		return nil, err
	}
	return &config, nil
}
