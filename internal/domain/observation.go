package domain

// TokenObservation bundles the raw records collected for one token.
// Every sub-record is optional; absent records degrade to neutral features.
type TokenObservation struct {
	Mint     string        `json:"mint" yaml:"mint"`
	Market   *MarketData   `json:"market,omitempty" yaml:"market,omitempty"`
	Holders  *HolderData   `json:"holders,omitempty" yaml:"holders,omitempty"`
	Security *SecurityData `json:"security,omitempty" yaml:"security,omitempty"`
	Bundle   *BundleData   `json:"bundle,omitempty" yaml:"bundle,omitempty"`
	Trading  *TradingData  `json:"trading,omitempty" yaml:"trading,omitempty"`
	Creator  *CreatorData  `json:"creator,omitempty" yaml:"creator,omitempty"`
}

// MarketData holds pool-level market statistics.
type MarketData struct {
	LiquidityUSD        float64  `json:"liquidityUsd" yaml:"liquidity_usd"`
	Volume24hUSD        float64  `json:"volume24hUsd" yaml:"volume_24h_usd"`
	MarketCapUSD        float64  `json:"marketCapUsd" yaml:"market_cap_usd"`
	PriceChange1hPct    float64  `json:"priceChange1hPct" yaml:"price_change_1h_pct"`
	AgeHours            float64  `json:"ageHours" yaml:"age_hours"`
	HoursSinceLastTrade *float64 `json:"hoursSinceLastTrade,omitempty" yaml:"hours_since_last_trade,omitempty"`
}

// HolderData describes the holder distribution.
type HolderData struct {
	HolderCount      int       `json:"holderCount" yaml:"holder_count"`
	Top10Pct         float64   `json:"top10Pct" yaml:"top10_pct"`          // 0..100
	TopHolderPct     float64   `json:"topHolderPct" yaml:"top_holder_pct"` // 0..100
	WhaleCount       int       `json:"whaleCount" yaml:"whale_count"`
	FreshWalletRatio float64   `json:"freshWalletRatio" yaml:"fresh_wallet_ratio"` // 0..1
	HolderPcts       []float64 `json:"holderPcts,omitempty" yaml:"holder_pcts,omitempty"`
}

// SecurityData holds on-chain authority and LP state.
type SecurityData struct {
	MintAuthorityDisabled   bool `json:"mintAuthorityDisabled" yaml:"mint_authority_disabled"`
	FreezeAuthorityDisabled bool `json:"freezeAuthorityDisabled" yaml:"freeze_authority_disabled"`
	LPLocked                bool `json:"lpLocked" yaml:"lp_locked"`
	LPBurned                bool `json:"lpBurned" yaml:"lp_burned"`
}

// BundleData is the result of bundle detection.
type BundleData struct {
	Detected      bool    `json:"detected" yaml:"detected"`
	WalletCount   int     `json:"walletCount" yaml:"wallet_count"`
	SupplyPct     float64 `json:"supplyPct" yaml:"supply_pct"`          // 0..100
	RiskScore     float64 `json:"riskScore" yaml:"risk_score"`          // 0..1, higher = more coordinated
	SameSlotRatio float64 `json:"sameSlotRatio" yaml:"same_slot_ratio"` // 0..1
}

// TradingData summarises recent trading activity.
type TradingData struct {
	Buys24h           int     `json:"buys24h" yaml:"buys_24h"`
	Sells24h          int     `json:"sells24h" yaml:"sells_24h"`
	PriceChange24hPct float64 `json:"priceChange24hPct" yaml:"price_change_24h_pct"`
	WashTradingPct    float64 `json:"washTradingPct" yaml:"wash_trading_pct"` // 0..1
}

// CreatorData summarises the deployer's history.
type CreatorData struct {
	Wallet     string  `json:"wallet,omitempty" yaml:"wallet,omitempty"`
	RugCount   int     `json:"rugCount" yaml:"rug_count"`
	TokenCount int     `json:"tokenCount" yaml:"token_count"`
	HoldingPct float64 `json:"holdingPct" yaml:"holding_pct"` // 0..100
}
