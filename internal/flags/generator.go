// Package flags derives advisory risk flags from a feature vector.
//
// Threshold flags come from the shared rubric in package rules, so the flags
// attached to a neural verdict are the same ones the rule-based scorer would
// have raised for that vector.
package flags

import (
	"sort"

	"token-risk-lab/internal/domain"
	"token-risk-lab/internal/features"
	"token-risk-lab/internal/rules"
)

// Volume-to-liquidity thresholds on the normalised ratio (ratio/10).
const (
	SuspiciousVolumeMin  = 0.5
	SuspiciousVolumeHigh = 0.9
)

// Scam-probability thresholds on P(SCAM) from the neural output.
const (
	HighScamProbabilityMin      = 0.5
	HighScamProbabilityCritical = 0.8
)

// Generate returns the flags for v. probs is the neural class probability
// vector in model class order; pass nil when the rule-based scorer ran.
func Generate(v features.Vector, probs []float64) []domain.RiskFlag {
	findings := rules.Evaluate(v)
	out := make([]domain.RiskFlag, 0, len(findings)+2)
	for _, f := range findings {
		out = append(out, f.Flag)
	}

	if ratio := v[features.IdxVolumeLiquidityRatio]; ratio >= SuspiciousVolumeMin {
		sev := domain.SeverityMedium
		if ratio >= SuspiciousVolumeHigh {
			sev = domain.SeverityHigh
		}
		out = append(out, domain.RiskFlag{
			Type:        domain.FlagSuspiciousVolume,
			Probability: float64(ratio),
			Severity:    sev,
		})
	}

	if scam := scamProbability(probs); scam >= HighScamProbabilityMin {
		sev := domain.SeverityHigh
		if scam >= HighScamProbabilityCritical {
			sev = domain.SeverityCritical
		}
		out = append(out, domain.RiskFlag{
			Type:        domain.FlagHighScamProbability,
			Probability: scam,
			Severity:    sev,
		})
	}

	return out
}

func scamProbability(probs []float64) float64 {
	idx := len(domain.RiskLevels) - 1
	if len(probs) <= idx {
		return 0
	}
	p := probs[idx]
	if p != p || p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// Merge combines flag lists, keeping one flag per type. On a clash the higher
// severity wins, then the higher probability. Output is ordered by severity
// (strongest first), then by first appearance. The result is never nil.
func Merge(lists ...[]domain.RiskFlag) []domain.RiskFlag {
	index := make(map[domain.FlagType]int)
	out := make([]domain.RiskFlag, 0)
	for _, list := range lists {
		for _, f := range list {
			i, ok := index[f.Type]
			if !ok {
				index[f.Type] = len(out)
				out = append(out, f)
				continue
			}
			if stronger(f, out[i]) {
				out[i] = f
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Severity.Rank() > out[j].Severity.Rank()
	})
	return out
}

func stronger(a, b domain.RiskFlag) bool {
	if a.Severity.Rank() != b.Severity.Rank() {
		return a.Severity.Rank() > b.Severity.Rank()
	}
	return a.Probability > b.Probability
}
