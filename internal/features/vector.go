// Package features defines the fixed-order 29-float feature contract shared by
// the extractor and every trained model, and the extractor that produces it.
package features

import (
	"errors"
	"fmt"
	"math"

	"token-risk-lab/internal/domain"
)

// Count is the number of features in a vector.
// Changing it (or reordering indices) invalidates every trained artifact.
const Count = 29

// Feature indices. 27 are normalised to [0,1]; PriceVelocity and Momentum are signed [-1,1].
const (
	// market
	IdxLiquidityLog = iota
	IdxVolume24hLog
	IdxMarketCapLog
	IdxPriceVelocity
	IdxVolumeLiquidityRatio
	// holders
	IdxHolderCountLog
	IdxTop10Concentration
	IdxGini
	IdxFreshWalletRatio
	IdxWhaleCount
	IdxTopWhalePct
	// security
	IdxMintDisabled
	IdxFreezeDisabled
	IdxLPLocked
	IdxLPBurned
	// bundle
	IdxBundleDetected
	IdxBundleWalletCount
	IdxBundleSupplyPct
	IdxBundleRiskScore
	IdxBundleSameSlotRatio
	// trading
	IdxBuyRatio
	IdxActivityLevel
	IdxMomentum
	IdxWashTradingPct
	// time
	IdxAgeDecay
	IdxRecency
	// creator
	IdxCreatorRugHistory
	IdxCreatorTokenCount
	IdxCreatorHoldingPct
)

// Names lists feature names in index order.
// Model artifacts may embed this list so mismatches are caught by name.
var Names = [Count]string{
	"liquidity_log",
	"volume_24h_log",
	"market_cap_log",
	"price_velocity",
	"volume_liquidity_ratio",
	"holder_count_log",
	"top10_concentration",
	"gini",
	"fresh_wallet_ratio",
	"whale_count",
	"top_whale_pct",
	"mint_disabled",
	"freeze_disabled",
	"lp_locked",
	"lp_burned",
	"bundle_detected",
	"bundle_wallet_count",
	"bundle_supply_pct",
	"bundle_risk_score",
	"bundle_same_slot_ratio",
	"buy_ratio",
	"activity_level",
	"momentum",
	"wash_trading_pct",
	"age_decay",
	"recency",
	"creator_rug_history",
	"creator_token_count",
	"creator_holding_pct",
}

// CategoryRange is a half-open index range [Start, End) belonging to one category.
type CategoryRange struct {
	Category domain.Category
	Start    int
	End      int
}

// CategoryRanges maps the vector onto the seven categories:
// market(5), holders(6), security(4), bundle(5), trading(4), time(2), creator(3).
var CategoryRanges = []CategoryRange{
	{domain.CategoryMarket, IdxLiquidityLog, IdxHolderCountLog},
	{domain.CategoryHolders, IdxHolderCountLog, IdxMintDisabled},
	{domain.CategorySecurity, IdxMintDisabled, IdxBundleDetected},
	{domain.CategoryBundle, IdxBundleDetected, IdxBuyRatio},
	{domain.CategoryTrading, IdxBuyRatio, IdxAgeDecay},
	{domain.CategoryTime, IdxAgeDecay, IdxCreatorRugHistory},
	{domain.CategoryCreator, IdxCreatorRugHistory, Count},
}

// CategoryOf returns the category owning feature index i.
func CategoryOf(i int) domain.Category {
	for _, r := range CategoryRanges {
		if i >= r.Start && i < r.End {
			return r.Category
		}
	}
	return ""
}

// Vector is the fixed-size feature vector.
type Vector [Count]float32

// Slice returns a copy of v as a slice.
func (v Vector) Slice() []float32 {
	out := make([]float32, Count)
	copy(out, v[:])
	return out
}

// Errors returned by FromSlice.
var (
	// ErrInvalidDimension is matched by every *DimensionError.
	ErrInvalidDimension = errors.New("invalid feature vector dimension")

	// ErrNonFiniteFeature is returned when a feature is NaN or Inf.
	ErrNonFiniteFeature = errors.New("non-finite feature value")

	// ErrFeatureOutOfRange is matched by every *RangeError.
	ErrFeatureOutOfRange = errors.New("feature value out of range")
)

// Bounds returns the closed range feature i must lie in.
func Bounds(i int) (lo, hi float32) {
	if i == IdxPriceVelocity || i == IdxMomentum {
		return -1, 1
	}
	return 0, 1
}

// RangeError reports a feature outside its Bounds.
type RangeError struct {
	Index int
	Value float32
	Min   float32
	Max   float32
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("feature %s at index %d is %g, want [%g,%g]", Names[e.Index], e.Index, e.Value, e.Min, e.Max)
}

// Is makes errors.Is(err, ErrFeatureOutOfRange) match.
func (e *RangeError) Is(target error) bool {
	return target == ErrFeatureOutOfRange
}

// DimensionError reports a vector whose length differs from Count.
type DimensionError struct {
	Got  int
	Want int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("feature vector has %d elements, want %d", e.Got, e.Want)
}

// Is makes errors.Is(err, ErrInvalidDimension) match.
func (e *DimensionError) Is(target error) bool {
	return target == ErrInvalidDimension
}

// FromSlice validates s and converts it to a Vector.
// Under-length and over-length input is rejected; no defaulting happens here.
// Values outside Bounds are rejected, not clamped.
func FromSlice(s []float32) (Vector, error) {
	var v Vector
	if len(s) != Count {
		return v, &DimensionError{Got: len(s), Want: Count}
	}
	for i, x := range s {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return v, fmt.Errorf("%w: %s at index %d", ErrNonFiniteFeature, Names[i], i)
		}
		if lo, hi := Bounds(i); x < lo || x > hi {
			return v, &RangeError{Index: i, Value: x, Min: lo, Max: hi}
		}
		v[i] = x
	}
	return v, nil
}
