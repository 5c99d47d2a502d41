package features

import (
	"math"

	"token-risk-lab/internal/domain"
)

// Log-scale divisors: the realistic upper bound of each heavy-tailed quantity
// maps close to 1.
const (
	liquidityLogDivisor     = 7.0 // $10M
	volumeLogDivisor        = 8.0 // $100M
	marketCapLogDivisor     = 9.0 // $1B
	holderCountLogDivisor   = 5.0 // 100k holders
	activityLogDivisor      = 5.0 // 100k tx/24h
	creatorTokensLogDivisor = 3.0 // 1k launches
)

// Linear caps for bounded counts.
const (
	whaleCountCap        = 20.0
	bundleWalletCountCap = 50.0
	creatorRugCountCap   = 5.0
	volumeLiquidityCap   = 10.0
)

// Decay horizons in hours.
const (
	ageDecayHours     = 24.0
	recencyDecayHours = 6.0
)

// Neutral values used when a substructure is missing and 0 would read as a
// strong signal in either direction.
const (
	unknownNeutral = 0.5
)

// Extract maps a raw observation into the fixed-order feature vector.
// It never fails: nil sub-records degrade to neutral defaults.
func Extract(obs *domain.TokenObservation) Vector {
	var v Vector
	if obs == nil {
		obs = &domain.TokenObservation{}
	}

	extractMarket(&v, obs.Market)
	extractHolders(&v, obs.Holders)
	extractSecurity(&v, obs.Security)
	extractBundle(&v, obs.Bundle)
	extractTrading(&v, obs.Trading)
	extractTime(&v, obs.Market)
	extractCreator(&v, obs.Creator)

	return v
}

func extractMarket(v *Vector, m *domain.MarketData) {
	if m == nil {
		return
	}
	v[IdxLiquidityLog] = logScale(m.LiquidityUSD, liquidityLogDivisor)
	v[IdxVolume24hLog] = logScale(m.Volume24hUSD, volumeLogDivisor)
	v[IdxMarketCapLog] = logScale(m.MarketCapUSD, marketCapLogDivisor)
	v[IdxPriceVelocity] = float32(clampSigned(m.PriceChange1hPct / 100))
	if m.LiquidityUSD > 0 {
		v[IdxVolumeLiquidityRatio] = float32(clamp01(m.Volume24hUSD / m.LiquidityUSD / volumeLiquidityCap))
	}
}

func extractHolders(v *Vector, h *domain.HolderData) {
	if h == nil {
		return
	}
	v[IdxHolderCountLog] = logScale(float64(h.HolderCount), holderCountLogDivisor)
	v[IdxTop10Concentration] = float32(clamp01(h.Top10Pct / 100))
	v[IdxGini] = float32(Gini(h.HolderPcts))
	v[IdxFreshWalletRatio] = float32(clamp01(h.FreshWalletRatio))
	v[IdxWhaleCount] = ratio(float64(h.WhaleCount), whaleCountCap)
	v[IdxTopWhalePct] = float32(clamp01(h.TopHolderPct / 100))
}

func extractSecurity(v *Vector, s *domain.SecurityData) {
	if s == nil {
		// Unknown authority state reads as neither safe nor risky.
		v[IdxMintDisabled] = unknownNeutral
		v[IdxFreezeDisabled] = unknownNeutral
		return
	}
	v[IdxMintDisabled] = boolFeature(s.MintAuthorityDisabled)
	v[IdxFreezeDisabled] = boolFeature(s.FreezeAuthorityDisabled)
	v[IdxLPLocked] = boolFeature(s.LPLocked)
	v[IdxLPBurned] = boolFeature(s.LPBurned)
}

func extractBundle(v *Vector, b *domain.BundleData) {
	if b == nil {
		return
	}
	v[IdxBundleDetected] = boolFeature(b.Detected)
	v[IdxBundleWalletCount] = ratio(float64(b.WalletCount), bundleWalletCountCap)
	v[IdxBundleSupplyPct] = float32(clamp01(b.SupplyPct / 100))
	v[IdxBundleRiskScore] = float32(clamp01(b.RiskScore))
	v[IdxBundleSameSlotRatio] = float32(clamp01(b.SameSlotRatio))
}

func extractTrading(v *Vector, t *domain.TradingData) {
	v[IdxBuyRatio] = unknownNeutral
	if t == nil {
		return
	}
	total := t.Buys24h + t.Sells24h
	if total > 0 {
		v[IdxBuyRatio] = float32(float64(t.Buys24h) / float64(total))
	}
	v[IdxActivityLevel] = logScale(float64(total), activityLogDivisor)
	v[IdxMomentum] = float32(clampSigned(t.PriceChange24hPct / 100))
	v[IdxWashTradingPct] = float32(clamp01(t.WashTradingPct))
}

func extractTime(v *Vector, m *domain.MarketData) {
	v[IdxRecency] = unknownNeutral
	if m == nil {
		return
	}
	v[IdxAgeDecay] = float32(math.Exp(-math.Max(m.AgeHours, 0) / ageDecayHours))
	if m.HoursSinceLastTrade != nil {
		v[IdxRecency] = float32(math.Exp(-math.Max(*m.HoursSinceLastTrade, 0) / recencyDecayHours))
	}
}

func extractCreator(v *Vector, c *domain.CreatorData) {
	if c == nil {
		return
	}
	v[IdxCreatorRugHistory] = ratio(float64(c.RugCount), creatorRugCountCap)
	v[IdxCreatorTokenCount] = logScale(float64(c.TokenCount), creatorTokensLogDivisor)
	v[IdxCreatorHoldingPct] = float32(clamp01(c.HoldingPct / 100))
}

// logScale computes min(1, log10(value+1)/k); negative values map to 0.
func logScale(value, k float64) float32 {
	if value <= 0 || math.IsNaN(value) {
		return 0
	}
	return float32(math.Min(1, math.Log10(value+1)/k))
}

func ratio(count, limit float64) float32 {
	return float32(clamp01(count / limit))
}

func boolFeature(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func clampSigned(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Max(-1, math.Min(1, x))
}
