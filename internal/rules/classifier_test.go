package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-risk-lab/internal/domain"
	"token-risk-lab/internal/features"
)

// safeBase is a well-established token: deep liquidity, many holders,
// authorities revoked, old enough that no age floor applies.
func safeBase() features.Vector {
	var v features.Vector
	v[features.IdxLiquidityLog] = 1
	v[features.IdxHolderCountLog] = 1
	v[features.IdxMintDisabled] = 1
	v[features.IdxFreezeDisabled] = 1
	v[features.IdxBuyRatio] = 0.5
	return v
}

func scenarioA() features.Vector {
	var v features.Vector
	v[features.IdxLiquidityLog] = 0.2
	v[features.IdxTopWhalePct] = 0.6
	v[features.IdxMintDisabled] = 0
	v[features.IdxFreezeDisabled] = 0
	v[features.IdxBundleDetected] = 1
	v[features.IdxCreatorRugHistory] = 0.2
	return v
}

func scenarioB() features.Vector {
	var v features.Vector
	v[features.IdxLiquidityLog] = 0.9
	v[features.IdxTopWhalePct] = 0.1
	v[features.IdxMintDisabled] = 1
	v[features.IdxFreezeDisabled] = 1
	return v
}

func TestClassify_ScenarioA(t *testing.T) {
	res := Classify(scenarioA())

	assert.NotEqual(t, domain.RiskLevelSafe, res.Level)
	assert.Equal(t, domain.RiskLevelScam, res.Level)
	assert.Equal(t, 100, res.Score)
	assert.GreaterOrEqual(t, len(res.Flags), 3)

	out := res.Output()
	assert.True(t, out.HasFlag(domain.FlagFreezeAuthorityActive))
	assert.True(t, out.HasFlag(domain.FlagCreatorRugHistory))
	assert.True(t, out.HasFlag(domain.FlagMintAuthorityActive))
	assert.True(t, out.HasFlag(domain.FlagBundleDetected))
	assert.Equal(t, domain.ScorerRuleBased, out.Mode)
}

func TestClassify_ScenarioB(t *testing.T) {
	res := Classify(scenarioB())

	assert.Equal(t, domain.RiskLevelSafe, res.Level)
	assert.Less(t, res.Score, SuspiciousThreshold)
	assert.Equal(t, 0, res.Output().CountSeverity(domain.SeverityCritical))
}

func TestClassify_BaseScoreOnly(t *testing.T) {
	res := Classify(safeBase())
	assert.Equal(t, BaseScore, res.Score)
	assert.Empty(t, res.Flags)
	assert.Empty(t, res.Steps)
	for _, c := range domain.Categories {
		assert.InDelta(t, 1.0/7, res.Importance[c], 1e-12, "no penalties means uniform importance")
	}
}

func TestClassify_BinaryPenalties(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(v *features.Vector)
		want    int
		flag    domain.FlagType
		sev     domain.Severity
		wantCat domain.Category
	}{
		{"mint active", func(v *features.Vector) { v[features.IdxMintDisabled] = 0 }, 55, domain.FlagMintAuthorityActive, domain.SeverityHigh, domain.CategorySecurity},
		{"freeze active", func(v *features.Vector) { v[features.IdxFreezeDisabled] = 0 }, 65, domain.FlagFreezeAuthorityActive, domain.SeverityCritical, domain.CategorySecurity},
		{"single rug", func(v *features.Vector) { v[features.IdxCreatorRugHistory] = 0.2 }, 80, domain.FlagCreatorRugHistory, domain.SeverityHigh, domain.CategoryCreator},
		{"serial rugger", func(v *features.Vector) { v[features.IdxCreatorRugHistory] = 0.4 }, 80, domain.FlagCreatorRugHistory, domain.SeverityCritical, domain.CategoryCreator},
		{"low holders", func(v *features.Vector) { v[features.IdxHolderCountLog] = 0.1 }, 45, domain.FlagLowHolderCount, domain.SeverityMedium, domain.CategoryHolders},
		{"top10 concentration", func(v *features.Vector) { v[features.IdxTop10Concentration] = 0.85 }, 50, domain.FlagConcentratedHoldings, domain.SeverityHigh, domain.CategoryHolders},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := safeBase()
			tt.mutate(&v)
			res := Classify(v)

			assert.Equal(t, tt.want, res.Score)
			require.Len(t, res.Flags, 1)
			assert.Equal(t, tt.flag, res.Flags[0].Type)
			assert.Equal(t, tt.sev, res.Flags[0].Severity)
			assert.InDelta(t, 1.0, res.Importance[tt.wantCat], 1e-12)
		})
	}
}

func TestClassify_BundleBands(t *testing.T) {
	tests := []struct {
		risk float32
		want int
		sev  domain.Severity
	}{
		{0, 45, domain.SeverityLow},
		{0.3, 55, domain.SeverityMedium},
		{0.5, 65, domain.SeverityHigh},
		{0.9, 75, domain.SeverityCritical},
	}
	for _, tt := range tests {
		v := safeBase()
		v[features.IdxBundleDetected] = 1
		v[features.IdxBundleRiskScore] = tt.risk

		res := Classify(v)
		assert.Equal(t, tt.want, res.Score, "bundle risk %v", tt.risk)
		require.Len(t, res.Flags, 1)
		assert.Equal(t, tt.sev, res.Flags[0].Severity)
	}

	// risk score without detection is ignored
	v := safeBase()
	v[features.IdxBundleRiskScore] = 0.9
	assert.Equal(t, BaseScore, Classify(v).Score)
}

func TestClassify_WashTradingBands(t *testing.T) {
	tests := []struct {
		pct  float32
		want int
	}{
		{0.1, 35},
		{0.2, 50},
		{0.45, 60},
		{0.7, 70},
	}
	for _, tt := range tests {
		v := safeBase()
		v[features.IdxWashTradingPct] = tt.pct
		assert.Equal(t, tt.want, Classify(v).Score, "wash pct %v", tt.pct)
	}
}

func TestClassify_WhaleMonotonic(t *testing.T) {
	prev := -1
	for step := 0; step <= 100; step++ {
		v := scenarioB()
		v[features.IdxTopWhalePct] = float32(step) / 100

		score := Classify(v).Score
		assert.GreaterOrEqual(t, score, prev, "whale %.2f decreased score", float32(step)/100)
		prev = score
	}
}

func TestClassify_WhaleTiers(t *testing.T) {
	tests := []struct {
		whale float32
		want  int
	}{
		{0.2, 35}, // strictly greater than 0.2 required
		{0.25, 45},
		{0.35, 55},
		{0.55, 65},
	}
	for _, tt := range tests {
		v := safeBase()
		v[features.IdxTopWhalePct] = tt.whale
		assert.Equal(t, tt.want, Classify(v).Score, "whale %v", tt.whale)
	}
}

func TestClassify_FloorsReplaceRatherThanAdd(t *testing.T) {
	v := safeBase()
	v[features.IdxAgeDecay] = 0.95
	res := Classify(v)
	assert.Equal(t, 60, res.Score)
	assert.Equal(t, domain.RiskLevelSuspicious, res.Level)
	assert.InDelta(t, 1.0, res.Importance[domain.CategoryTime], 1e-12)

	// whale penalty (+10) already below the floor: max(45, 60) = 60, not 70
	v[features.IdxTopWhalePct] = 0.25
	assert.Equal(t, 60, Classify(v).Score)

	// penalties above the floor are untouched
	v[features.IdxFreezeDisabled] = 0
	assert.Equal(t, 75, Classify(v).Score)
}

func TestClassify_AgeAndLiquidityFloors(t *testing.T) {
	tests := []struct {
		name string
		age  float32
		liq  float32
		want int
	}{
		{"old and liquid", 0.1, 1, 35},
		{"age > 0.5", 0.6, 1, 50},
		{"age > 0.75", 0.8, 1, 55},
		{"age > 0.9", 0.95, 1, 60},
		{"liquidity < 0.5", 0.1, 0.4, 50},
		{"liquidity < 0.3", 0.1, 0.1, 55},
		{"both, higher floor wins", 0.95, 0.1, 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := safeBase()
			v[features.IdxAgeDecay] = tt.age
			v[features.IdxLiquidityLog] = tt.liq
			assert.Equal(t, tt.want, Classify(v).Score)
		})
	}
}

func TestClassify_EscalationTwoSevere(t *testing.T) {
	// top10 (+15, HIGH) and liquidity floor 55 (HIGH): 50 -> 55 -> escalated 65
	v := safeBase()
	v[features.IdxTop10Concentration] = 0.85
	v[features.IdxLiquidityLog] = 0.2

	res := Classify(v)
	assert.Equal(t, 65, res.Score)
	assert.Equal(t, domain.RiskLevelDangerous, res.Level)
	require.NotEmpty(t, res.Steps)
	assert.Equal(t, "escalation", res.Steps[len(res.Steps)-1].Kind)
}

func TestClassify_EscalationThreeSevere(t *testing.T) {
	// mint (+20), top10 (+15) = 70, liquidity floor no-op, three severe -> 75
	v := safeBase()
	v[features.IdxMintDisabled] = 0
	v[features.IdxTop10Concentration] = 0.85
	v[features.IdxLiquidityLog] = 0.2

	res := Classify(v)
	assert.Equal(t, 75, res.Score)
	assert.Equal(t, domain.RiskLevelDangerous, res.Level)
}

func TestClassify_UnknownAuthorityIsNotPenalised(t *testing.T) {
	v := safeBase()
	v[features.IdxMintDisabled] = 0.5
	v[features.IdxFreezeDisabled] = 0.5
	assert.Equal(t, BaseScore, Classify(v).Score)
}

func TestClassify_Invariants(t *testing.T) {
	vectors := []features.Vector{scenarioA(), scenarioB(), safeBase(), {}}
	for _, v := range vectors {
		res := Classify(v)
		assert.GreaterOrEqual(t, res.Score, 0)
		assert.LessOrEqual(t, res.Score, 100)
		assert.GreaterOrEqual(t, res.Confidence, 50)
		assert.LessOrEqual(t, res.Confidence, 95)
		assert.True(t, res.Level.Valid())

		sum := 0.0
		for _, c := range domain.Categories {
			assert.GreaterOrEqual(t, res.Importance[c], 0.0)
			sum += res.Importance[c]
		}
		assert.InDelta(t, 1.0, sum, 1e-9)

		for _, f := range res.Flags {
			assert.GreaterOrEqual(t, f.Probability, 0.0)
			assert.LessOrEqual(t, f.Probability, 1.0)
		}
	}
}

func TestClassify_Deterministic(t *testing.T) {
	a := Classify(scenarioA())
	b := Classify(scenarioA())
	assert.Equal(t, a, b)
}

func TestLevelForScore(t *testing.T) {
	assert.Equal(t, domain.RiskLevelSafe, LevelForScore(54))
	assert.Equal(t, domain.RiskLevelSuspicious, LevelForScore(55))
	assert.Equal(t, domain.RiskLevelSuspicious, LevelForScore(64))
	assert.Equal(t, domain.RiskLevelDangerous, LevelForScore(65))
	assert.Equal(t, domain.RiskLevelDangerous, LevelForScore(79))
	assert.Equal(t, domain.RiskLevelScam, LevelForScore(80))
}

func TestConfidenceFor(t *testing.T) {
	assert.Equal(t, 50, confidenceFor(55))
	assert.Equal(t, 70, confidenceFor(35))
	assert.Equal(t, 95, confidenceFor(100))
}
