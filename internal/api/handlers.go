package api

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rxtech-lab/amm-proxy/internal/models"
	"github.com/rxtech-lab/amm-proxy/internal/services"
	"go.uber.org/zap"
)

var validate = validator.New()

// respondError maps the service error classification onto HTTP statuses.
// Unauthorized callers get 401, bad input 400, business rejections 422,
// sub-operation failures 502 and state corruption 500.
func (s *APIServer) respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	if errors.Is(err, services.ErrUnauthorized) {
		status = fiber.StatusUnauthorized
	} else {
		switch services.KindOf(err) {
		case services.ErrorKindValidation:
			status = fiber.StatusBadRequest
		case services.ErrorKindDomain:
			status = fiber.StatusUnprocessableEntity
		case services.ErrorKindExternal:
			status = fiber.StatusBadGateway
		}
	}

	s.logger.Warn("invocation rejected",
		zap.Int("status", status),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func (s *APIServer) respondResult(c *fiber.Ctx, result *models.Result) error {
	return c.JSON(result)
}

func (s *APIServer) handleInitConfig(c *fiber.Ctx) error {
	var req services.InitConfigRequest
	if err := c.BodyParser(&req); err != nil {
		return s.respondError(c, services.NewValidationError("invalid request body: %v", err))
	}
	config, err := s.config.Init(req)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(config)
}

func (s *APIServer) handleConfigure(c *fiber.Ctx) error {
	var req services.ConfigureRequest
	if err := c.BodyParser(&req); err != nil {
		return s.respondError(c, services.NewValidationError("invalid request body: %v", err))
	}
	config, err := s.config.Configure(req)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(config)
}

func (s *APIServer) handleGetConfig(c *fiber.Ctx) error {
	config, err := s.config.Get()
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(config)
}

type provideLiquidityBody struct {
	Caller string        `json:"caller" validate:"required"`
	Funds  []models.Coin `json:"funds,omitempty"`
	services.ProvideLiquidityRequest
}

func (s *APIServer) handleProvideLiquidity(c *fiber.Ctx) error {
	var body provideLiquidityBody
	if err := c.BodyParser(&body); err != nil {
		return s.respondError(c, services.NewValidationError("invalid request body: %v", err))
	}
	if err := validate.Struct(body); err != nil {
		return s.respondError(c, services.NewValidationError("invalid request: %v", err))
	}
	result, err := s.proxy.ProvideLiquidity(c.Context(), body.Caller, body.ProvideLiquidityRequest, body.Funds)
	if err != nil {
		return s.respondError(c, err)
	}
	return s.respondResult(c, result)
}

func (s *APIServer) handleProvidePairForReward(c *fiber.Ctx) error {
	var body provideLiquidityBody
	if err := c.BodyParser(&body); err != nil {
		return s.respondError(c, services.NewValidationError("invalid request body: %v", err))
	}
	if err := validate.Struct(body); err != nil {
		return s.respondError(c, services.NewValidationError("invalid request: %v", err))
	}
	result, err := s.proxy.ProvidePairForReward(c.Context(), body.Caller, body.ProvideLiquidityRequest, body.Funds)
	if err != nil {
		return s.respondError(c, err)
	}
	return s.respondResult(c, result)
}

type provideNativeBody struct {
	Caller string        `json:"caller" validate:"required"`
	Funds  []models.Coin `json:"funds,omitempty"`
	services.ProvideNativeRequest
}

func (s *APIServer) handleProvideNativeForReward(c *fiber.Ctx) error {
	var body provideNativeBody
	if err := c.BodyParser(&body); err != nil {
		return s.respondError(c, services.NewValidationError("invalid request body: %v", err))
	}
	if err := validate.Struct(body); err != nil {
		return s.respondError(c, services.NewValidationError("invalid request: %v", err))
	}
	result, err := s.proxy.ProvideNativeForReward(c.Context(), body.Caller, body.ProvideNativeRequest, body.Funds)
	if err != nil {
		return s.respondError(c, err)
	}
	return s.respondResult(c, result)
}

type swapBody struct {
	Caller string        `json:"caller" validate:"required"`
	Funds  []models.Coin `json:"funds,omitempty"`
	services.SwapRequest
}

func (s *APIServer) handleSwap(c *fiber.Ctx) error {
	var body swapBody
	if err := c.BodyParser(&body); err != nil {
		return s.respondError(c, services.NewValidationError("invalid request body: %v", err))
	}
	if err := validate.Struct(body); err != nil {
		return s.respondError(c, services.NewValidationError("invalid request: %v", err))
	}
	result, err := s.proxy.Swap(c.Context(), body.Caller, body.SwapRequest, body.Funds)
	if err != nil {
		return s.respondError(c, err)
	}
	return s.respondResult(c, result)
}

type receiveBody struct {
	Caller string        `json:"caller" validate:"required"`
	Funds  []models.Coin `json:"funds,omitempty"`
	models.ReceiveEnvelope
}

func (s *APIServer) handleReceive(c *fiber.Ctx) error {
	var body receiveBody
	if err := c.BodyParser(&body); err != nil {
		return s.respondError(c, services.NewValidationError("invalid request body: %v", err))
	}
	if err := validate.Struct(body); err != nil {
		return s.respondError(c, services.NewValidationError("invalid request: %v", err))
	}
	result, err := s.proxy.Receive(c.Context(), body.Caller, body.ReceiveEnvelope, body.Funds)
	if err != nil {
		return s.respondError(c, err)
	}
	return s.respondResult(c, result)
}

type claimRewardBody struct {
	Caller   string `json:"caller" validate:"required"`
	Receiver string `json:"receiver" validate:"required"`
	Amount   string `json:"amount" validate:"required"`
}

func (s *APIServer) handleClaimReward(c *fiber.Ctx) error {
	var body claimRewardBody
	if err := c.BodyParser(&body); err != nil {
		return s.respondError(c, services.NewValidationError("invalid request body: %v", err))
	}
	if err := validate.Struct(body); err != nil {
		return s.respondError(c, services.NewValidationError("invalid request: %v", err))
	}
	result, err := s.proxy.ClaimReward(c.Context(), body.Caller, body.Receiver, body.Amount)
	if err != nil {
		return s.respondError(c, err)
	}
	return s.respondResult(c, result)
}

func (s *APIServer) handleCompletion(c *fiber.Ctx) error {
	var notification models.CompletionNotification
	if err := c.BodyParser(&notification); err != nil {
		return s.respondError(c, services.NewValidationError("invalid request body: %v", err))
	}
	if err := validate.Struct(notification); err != nil {
		return s.respondError(c, services.NewValidationError("invalid notification: %v", err))
	}
	result, err := s.proxy.OnSubOperationComplete(c.Context(), notification)
	if err != nil {
		return s.respondError(c, err)
	}
	return s.respondResult(c, result)
}

func (s *APIServer) handleQueryRewards(c *fiber.Ctx) error {
	entries, err := s.bonding.ListByUser(c.Params("address"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"bonded_rewards": entries})
}

func (s *APIServer) handleQueryPool(c *fiber.Ctx) error {
	pool, err := s.pool.Pool(c.Context())
	if err != nil {
		return s.respondError(c, services.NewExternalError("pool query failed: %v", err))
	}
	return c.JSON(pool)
}

func (s *APIServer) handleQueryPair(c *fiber.Ctx) error {
	pair, err := s.pool.Pair(c.Context())
	if err != nil {
		return s.respondError(c, services.NewExternalError("pair query failed: %v", err))
	}
	return c.JSON(pair)
}

func (s *APIServer) handleQuerySimulation(c *fiber.Ctx) error {
	var offer models.Asset
	if err := c.BodyParser(&offer); err != nil {
		return s.respondError(c, services.NewValidationError("invalid request body: %v", err))
	}
	simulation, err := s.pool.Simulation(c.Context(), offer)
	if err != nil {
		return s.respondError(c, services.NewExternalError("simulation query failed: %v", err))
	}
	return c.JSON(simulation)
}

func (s *APIServer) handleQueryReverseSimulation(c *fiber.Ctx) error {
	var ask models.Asset
	if err := c.BodyParser(&ask); err != nil {
		return s.respondError(c, services.NewValidationError("invalid request body: %v", err))
	}
	simulation, err := s.pool.ReverseSimulation(c.Context(), ask)
	if err != nil {
		return s.respondError(c, services.NewExternalError("reverse simulation query failed: %v", err))
	}
	return c.JSON(simulation)
}

func (s *APIServer) handleQuerySwapOpeningDate(c *fiber.Ctx) error {
	config, err := s.config.Get()
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"swap_opening_date": config.SwapOpeningDate})
}

func (s *APIServer) handleQueryCumulativePrices(c *fiber.Ctx) error {
	prices, err := s.pool.CumulativePrices(c.Context())
	if err != nil {
		return s.respondError(c, services.NewExternalError("cumulative prices query failed: %v", err))
	}
	return c.JSON(prices)
}
