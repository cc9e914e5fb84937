package api

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/rxtech-lab/amm-proxy/internal/api/middleware"
	"github.com/rxtech-lab/amm-proxy/internal/services"
	"go.uber.org/zap"
)

type APIServer struct {
	app     *fiber.App
	logger  *zap.Logger
	config  services.ConfigService
	proxy   services.ProxyService
	bonding services.BondingService
	pool    services.PoolService

	// callbackSecret signs the bearer tokens the execution environment
	// presents on the completion callback.
	callbackSecret string
}

func NewAPIServer(logger *zap.Logger, config services.ConfigService, proxy services.ProxyService, bonding services.BondingService, pool services.PoolService, callbackSecret string) *APIServer {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Use(cors.New())
	app.Use(requestid.New(requestid.Config{
		Generator: func() string { return uuid.NewString() },
	}))

	server := &APIServer{
		app:            app,
		logger:         logger,
		config:         config,
		proxy:          proxy,
		bonding:        bonding,
		pool:           pool,
		callbackSecret: callbackSecret,
	}
	server.setupRoutes()
	return server
}

func (s *APIServer) setupRoutes() {
	// One-time setup and pool wiring
	s.app.Post("/api/config/init", s.handleInitConfig)
	s.app.Post("/api/config", s.handleConfigure)
	s.app.Get("/api/config", s.handleGetConfig)

	// Mutating invocations
	s.app.Post("/api/execute/provide-liquidity", s.handleProvideLiquidity)
	s.app.Post("/api/execute/provide-pair-for-reward", s.handleProvidePairForReward)
	s.app.Post("/api/execute/provide-native-for-reward", s.handleProvideNativeForReward)
	s.app.Post("/api/execute/swap", s.handleSwap)
	s.app.Post("/api/execute/receive", s.handleReceive)
	s.app.Post("/api/execute/claim-reward", s.handleClaimReward)

	// Outcome reports from the execution environment
	s.app.Post("/api/callbacks/completion",
		middleware.CallbackAuth(s.callbackSecret), s.handleCompletion)

	// Read-only projections
	s.app.Get("/api/query/rewards/:address", s.handleQueryRewards)
	s.app.Get("/api/query/pool", s.handleQueryPool)
	s.app.Get("/api/query/pair", s.handleQueryPair)
	s.app.Post("/api/query/simulation", s.handleQuerySimulation)
	s.app.Post("/api/query/reverse-simulation", s.handleQueryReverseSimulation)
	s.app.Get("/api/query/cumulative-prices", s.handleQueryCumulativePrices)
	s.app.Get("/api/query/swap-opening-date", s.handleQuerySwapOpeningDate)

	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}

// Start begins listening on the given port. Blocks until Shutdown.
func (s *APIServer) Start(port int) error {
	s.logger.Info("api server listening", zap.Int("port", port))
	return s.app.Listen(fmt.Sprintf(":%d", port))
}

func (s *APIServer) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the underlying fiber app for tests.
func (s *APIServer) App() *fiber.App {
	return s.app
}
