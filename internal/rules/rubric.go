// Package rules holds the single deterministic risk rubric. The rule-based
// classifier scores with it and the flag generator derives its flags from it,
// so thresholds cannot drift between the two.
package rules

import (
	"math"

	"token-risk-lab/internal/domain"
	"token-risk-lab/internal/features"
)

// Score anchors.
const (
	BaseScore = 35

	ScamThreshold       = 80
	DangerousThreshold  = 65
	SuspiciousThreshold = 55
)

// Binary penalties.
const (
	MintActivePenalty   = 20
	FreezeActivePenalty = 30
	RugHistoryPenalty   = 45
)

// Feature thresholds.
const (
	authorityDisabledMin = 0.5 // mint/freeze_disabled below this means "active"
	bundleDetectedMin    = 0.5 // bundle_detected at or above this means "detected"
	washTradingMin       = 0.2 // wash_trading_pct at or above this means "detected"
	serialRuggerMin      = 0.4 // creator_rug_history >= 2/5 rugs
	top10Max             = 0.8 // top10_concentration above this is penalised
	lowHolderCountMax    = 0.3 // holder_count_log below this is penalised
	concentrationPenalty = 15
	lowHolderPenalty     = 10
)

// Co-occurrence escalation floors.
const (
	escalateThreeFloor = 75
	escalateTwoFloor   = 65
)

type band struct {
	min      float32
	points   int
	severity domain.Severity
}

// Bundle penalty by bundle_risk_score, checked top-down (>=).
var bundleBands = []band{
	{0.75, 40, domain.SeverityCritical},
	{0.5, 30, domain.SeverityHigh},
	{0.25, 20, domain.SeverityMedium},
	{0, 10, domain.SeverityLow},
}

// Wash-trading penalty by wash_trading_pct, checked top-down (>=).
var washBands = []band{
	{0.6, 35, domain.SeverityHigh},
	{0.4, 25, domain.SeverityHigh},
	{washTradingMin, 15, domain.SeverityMedium},
}

// Top-whale penalty by top_whale_pct, checked top-down (strictly greater).
var whaleBands = []band{
	{0.5, 30, domain.SeverityCritical},
	{0.3, 20, domain.SeverityHigh},
	{0.2, 10, domain.SeverityMedium},
}

type floorBand struct {
	bound    float32
	floor    int
	severity domain.Severity
}

// New-token floors by age_decay (strictly greater).
var ageFloors = []floorBand{
	{0.9, 60, domain.SeverityMedium},
	{0.75, 55, domain.SeverityMedium},
	{0.5, 50, domain.SeverityLow},
}

// Low-liquidity floors by liquidity_log (strictly less).
var liquidityFloors = []floorBand{
	{0.3, 55, domain.SeverityHigh},
	{0.5, 50, domain.SeverityMedium},
}

// Finding is one triggered rubric entry.
// Additive entries carry Points; floor entries carry Floor.
type Finding struct {
	Flag     domain.RiskFlag
	Category domain.Category
	Points   int
	Floor    int
}

// Evaluate returns every rubric entry triggered by v, in rubric order:
// binary penalties, tiered penalties, concentration penalties, floors.
func Evaluate(v features.Vector) []Finding {
	var out []Finding
	add := func(ft domain.FlagType, cat domain.Category, sev domain.Severity, prob float64, points, floor int) {
		out = append(out, Finding{
			Flag:     domain.RiskFlag{Type: ft, Probability: clampProb(prob), Severity: sev},
			Category: cat,
			Points:   points,
			Floor:    floor,
		})
	}

	if mint := v[features.IdxMintDisabled]; mint < authorityDisabledMin {
		add(domain.FlagMintAuthorityActive, domain.CategorySecurity, domain.SeverityHigh, 1-float64(mint), MintActivePenalty, 0)
	}
	if freeze := v[features.IdxFreezeDisabled]; freeze < authorityDisabledMin {
		add(domain.FlagFreezeAuthorityActive, domain.CategorySecurity, domain.SeverityCritical, 1-float64(freeze), FreezeActivePenalty, 0)
	}
	if rugs := v[features.IdxCreatorRugHistory]; rugs > 0 {
		sev := domain.SeverityHigh
		if rugs >= serialRuggerMin {
			sev = domain.SeverityCritical
		}
		add(domain.FlagCreatorRugHistory, domain.CategoryCreator, sev, 0.7+float64(rugs), RugHistoryPenalty, 0)
	}

	if v[features.IdxBundleDetected] >= bundleDetectedMin {
		score := v[features.IdxBundleRiskScore]
		for _, b := range bundleBands {
			if score >= b.min {
				add(domain.FlagBundleDetected, domain.CategoryBundle, b.severity, math.Max(0.5, float64(score)), b.points, 0)
				break
			}
		}
	}
	if wash := v[features.IdxWashTradingPct]; wash >= washTradingMin {
		for _, b := range washBands {
			if wash >= b.min {
				add(domain.FlagWashTrading, domain.CategoryTrading, b.severity, float64(wash)/0.6, b.points, 0)
				break
			}
		}
	}

	if whale := v[features.IdxTopWhalePct]; whale > whaleBands[len(whaleBands)-1].min {
		for _, b := range whaleBands {
			if whale > b.min {
				add(domain.FlagWhaleDominance, domain.CategoryHolders, b.severity, float64(whale)/0.5, b.points, 0)
				break
			}
		}
	}
	if top10 := v[features.IdxTop10Concentration]; top10 > top10Max {
		add(domain.FlagConcentratedHoldings, domain.CategoryHolders, domain.SeverityHigh, float64(top10), concentrationPenalty, 0)
	}
	if holders := v[features.IdxHolderCountLog]; holders < lowHolderCountMax {
		add(domain.FlagLowHolderCount, domain.CategoryHolders, domain.SeverityMedium, 1-float64(holders)/lowHolderCountMax, lowHolderPenalty, 0)
	}

	if age := v[features.IdxAgeDecay]; age > ageFloors[len(ageFloors)-1].bound {
		for _, f := range ageFloors {
			if age > f.bound {
				add(domain.FlagNewToken, domain.CategoryTime, f.severity, float64(age), 0, f.floor)
				break
			}
		}
	}
	if liq := v[features.IdxLiquidityLog]; liq < liquidityFloors[len(liquidityFloors)-1].bound {
		for _, f := range liquidityFloors {
			if liq < f.bound {
				add(domain.FlagLowLiquidity, domain.CategoryMarket, f.severity, 1-float64(liq), 0, f.floor)
				break
			}
		}
	}

	return out
}

// LevelForScore maps a clamped score onto the four risk levels.
func LevelForScore(score int) domain.RiskLevel {
	switch {
	case score >= ScamThreshold:
		return domain.RiskLevelScam
	case score >= DangerousThreshold:
		return domain.RiskLevelDangerous
	case score >= SuspiciousThreshold:
		return domain.RiskLevelSuspicious
	default:
		return domain.RiskLevelSafe
	}
}

func clampProb(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
