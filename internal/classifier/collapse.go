package classifier

import (
	"fmt"

	"token-risk-lab/internal/features"
	"token-risk-lab/internal/inference"
	"token-risk-lab/internal/rules"
)

// MinSeparation is the score gap between the risky and the clean probe
// below which a scorer is considered unable to tell them apart.
const MinSeparation = 20

// Check is one pass/fail line of a collapse report.
type Check struct {
	Name      string `json:"name"`
	Threshold string `json:"threshold"`
	Actual    string `json:"actual"`
	Pass      bool   `json:"pass"`
}

// CollapseReport compares how the neural and rule-based scorers separate
// the two probe vectors.
type CollapseReport struct {
	NeuralRisky      int     `json:"neuralRisky"`
	NeuralClean      int     `json:"neuralClean"`
	RuleRisky        int     `json:"ruleRisky"`
	RuleClean        int     `json:"ruleClean"`
	NeuralSeparation int     `json:"neuralSeparation"`
	RuleSeparation   int     `json:"ruleSeparation"`
	Collapsed        bool    `json:"collapsed"`
	Checks           []Check `json:"checks"`
}

// RiskyProbe is a token with every major red flag raised: thin liquidity,
// a dominant whale, live mint and freeze authorities, a detected bundle and
// a creator with a rug behind them.
func RiskyProbe() features.Vector {
	var v features.Vector
	v[features.IdxLiquidityLog] = 0.2
	v[features.IdxTopWhalePct] = 0.6
	v[features.IdxMintDisabled] = 0
	v[features.IdxFreezeDisabled] = 0
	v[features.IdxBundleDetected] = 1
	v[features.IdxCreatorRugHistory] = 0.2
	return v
}

// CleanProbe is a deep, well-distributed token with both authorities revoked
// and no bundle or creator history.
func CleanProbe() features.Vector {
	var v features.Vector
	v[features.IdxLiquidityLog] = 0.9
	v[features.IdxTopWhalePct] = 0.1
	v[features.IdxMintDisabled] = 1
	v[features.IdxFreezeDisabled] = 1
	return v
}

// DetectQuantizationCollapse reports whether the neural scorer fails to
// separate two inputs that the rule-based scorer clearly separates.
func DetectQuantizationCollapse(neuralA, neuralB, ruleA, ruleB int) bool {
	return abs(neuralA-neuralB) < MinSeparation && abs(ruleA-ruleB) >= MinSeparation
}

// CheckCollapse scores both probes with ie and with the rubric.
func CheckCollapse(ie *inference.Engine) *CollapseReport {
	risky, clean := RiskyProbe(), CleanProbe()

	r := &CollapseReport{
		NeuralRisky: ie.Predict(risky).RiskScore,
		NeuralClean: ie.Predict(clean).RiskScore,
		RuleRisky:   rules.Classify(risky).Score,
		RuleClean:   rules.Classify(clean).Score,
	}
	r.NeuralSeparation = abs(r.NeuralRisky - r.NeuralClean)
	r.RuleSeparation = abs(r.RuleRisky - r.RuleClean)
	r.Collapsed = DetectQuantizationCollapse(r.NeuralRisky, r.NeuralClean, r.RuleRisky, r.RuleClean)

	r.Checks = []Check{
		{
			Name:      "Rule-based separation",
			Threshold: fmt.Sprintf(">= %d", MinSeparation),
			Actual:    fmt.Sprintf("%d (risky=%d, clean=%d)", r.RuleSeparation, r.RuleRisky, r.RuleClean),
			Pass:      r.RuleSeparation >= MinSeparation,
		},
		{
			Name:      "Neural separation",
			Threshold: fmt.Sprintf(">= %d", MinSeparation),
			Actual:    fmt.Sprintf("%d (risky=%d, clean=%d)", r.NeuralSeparation, r.NeuralRisky, r.NeuralClean),
			Pass:      r.NeuralSeparation >= MinSeparation,
		},
		{
			Name:      "Neural ranks risky probe higher",
			Threshold: "risky > clean",
			Actual:    fmt.Sprintf("%d vs %d", r.NeuralRisky, r.NeuralClean),
			Pass:      r.NeuralRisky > r.NeuralClean,
		},
	}
	return r
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
