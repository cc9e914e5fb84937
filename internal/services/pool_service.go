package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rxtech-lab/amm-proxy/internal/models"
)

// PoolService queries the external AMM pool. Pricing and curve math live on
// the pool side; the proxy only reads projections.
type PoolService interface {
	Pool(ctx context.Context) (*models.PoolInfo, error)
	Pair(ctx context.Context) (*models.PairInfo, error)
	Simulation(ctx context.Context, offer models.Asset) (*models.SimulationResult, error)
	ReverseSimulation(ctx context.Context, ask models.Asset) (*models.ReverseSimulationResult, error)
	CumulativePrices(ctx context.Context) (*models.CumulativePricesResult, error)
}

type httpPoolService struct {
	url    string
	client *http.Client
}

// NewHTTPPoolService creates a PoolService speaking JSON-RPC to the pool
// gateway endpoint.
func NewHTTPPoolService(url string, timeout time.Duration) PoolService {
	return &httpPoolService{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type poolRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      int    `json:"id"`
}

type poolRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *poolRPCError   `json:"error,omitempty"`
}

type poolRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s *httpPoolService) call(ctx context.Context, method string, params any, out any) error {
	request := poolRPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}
	jsonData, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to query pool: %w", err)
	}
	defer resp.Body.Close()

	var response poolRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode pool response: %w", err)
	}
	if response.Error != nil {
		return fmt.Errorf("pool error %d: %s", response.Error.Code, response.Error.Message)
	}
	if response.Result == nil {
		return fmt.Errorf("empty pool response for %s", method)
	}
	return json.Unmarshal(response.Result, out)
}

func (s *httpPoolService) Pool(ctx context.Context) (*models.PoolInfo, error) {
	var out models.PoolInfo
	if err := s.call(ctx, "pool", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *httpPoolService) Pair(ctx context.Context) (*models.PairInfo, error) {
	var out models.PairInfo
	if err := s.call(ctx, "pair", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *httpPoolService) Simulation(ctx context.Context, offer models.Asset) (*models.SimulationResult, error) {
	var out models.SimulationResult
	params := map[string]any{"offer_asset": offer}
	if err := s.call(ctx, "simulation", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *httpPoolService) ReverseSimulation(ctx context.Context, ask models.Asset) (*models.ReverseSimulationResult, error) {
	var out models.ReverseSimulationResult
	params := map[string]any{"ask_asset": ask}
	if err := s.call(ctx, "reverse_simulation", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *httpPoolService) CumulativePrices(ctx context.Context) (*models.CumulativePricesResult, error) {
	var out models.CumulativePricesResult
	if err := s.call(ctx, "cumulative_prices", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
