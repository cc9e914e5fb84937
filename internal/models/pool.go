package models

// Read-only projections served by the AMM pool counterparty.

// PoolInfo is the pool's current reserves and issued share amount.
type PoolInfo struct {
	Assets     [2]Asset `json:"assets"`
	TotalShare string   `json:"total_share"`
}

// PairInfo describes the traded pair and its LP token.
type PairInfo struct {
	AssetInfos     [2]AssetInfo `json:"asset_infos"`
	ContractAddr   string       `json:"contract_addr"`
	LiquidityToken string       `json:"liquidity_token"`
}

// SimulationResult prices a hypothetical swap of an offered asset.
type SimulationResult struct {
	ReturnAmount     string `json:"return_amount"`
	SpreadAmount     string `json:"spread_amount"`
	CommissionAmount string `json:"commission_amount"`
}

// ReverseSimulationResult prices the offer needed to receive an asked asset.
type ReverseSimulationResult struct {
	OfferAmount      string `json:"offer_amount"`
	SpreadAmount     string `json:"spread_amount"`
	CommissionAmount string `json:"commission_amount"`
}

// CumulativePricesResult carries the pool's TWAP accumulators.
type CumulativePricesResult struct {
	Assets               [2]Asset `json:"assets"`
	TotalShare           string   `json:"total_share"`
	Price0CumulativeLast string   `json:"price0_cumulative_last"`
	Price1CumulativeLast string   `json:"price1_cumulative_last"`
}
