package rules

import (
	"math"

	"token-risk-lab/internal/domain"
	"token-risk-lab/internal/features"
	"token-risk-lab/internal/importance"
)

// Step records one score change for debugging and reports.
type Step struct {
	Rule   domain.FlagType // empty for escalation
	Kind   string          // "penalty", "floor", "escalation"
	Before int
	After  int
}

// Result is the outcome of rule-based scoring.
type Result struct {
	Score      int
	Level      domain.RiskLevel
	Confidence int
	Flags      []domain.RiskFlag
	Importance map[domain.Category]float64
	Steps      []Step
}

// Output converts the result into the unified classifier output.
func (r *Result) Output() *domain.ClassifierOutput {
	flags := make([]domain.RiskFlag, len(r.Flags))
	copy(flags, r.Flags)
	return &domain.ClassifierOutput{
		RiskScore:         r.Score,
		RiskLevel:         r.Level,
		Confidence:        r.Confidence,
		FeatureImportance: r.Importance,
		Flags:             flags,
		Mode:              domain.ScorerRuleBased,
	}
}

// Classify scores v with the rubric.
//
// Order: base score, additive penalties, floor-raising rules, co-occurrence
// escalation, clamp. Floors and escalation replace the score with
// max(score, floor) rather than adding to it.
func Classify(v features.Vector) *Result {
	findings := Evaluate(v)
	acc := importance.NewAccumulator()
	res := &Result{}

	score := BaseScore
	for _, f := range findings {
		if f.Points == 0 {
			continue
		}
		res.Steps = append(res.Steps, Step{Rule: f.Flag.Type, Kind: "penalty", Before: score, After: score + f.Points})
		score += f.Points
		acc.Add(f.Category, float64(f.Points))
	}

	for _, f := range findings {
		if f.Floor == 0 {
			continue
		}
		if f.Floor > score {
			res.Steps = append(res.Steps, Step{Rule: f.Flag.Type, Kind: "floor", Before: score, After: f.Floor})
			acc.Add(f.Category, float64(f.Floor-score))
			score = f.Floor
		}
	}

	// Only rubric penalties escalate; flags added after scoring
	// (SUSPICIOUS_VOLUME, HIGH_SCAM_PROBABILITY) never do.
	var severe []Finding
	for _, f := range findings {
		if f.Flag.Severity.AtLeastHigh() {
			severe = append(severe, f)
		}
	}
	floor := 0
	switch {
	case len(severe) >= 3:
		floor = escalateThreeFloor
	case len(severe) >= 2:
		floor = escalateTwoFloor
	}
	if floor > score {
		res.Steps = append(res.Steps, Step{Kind: "escalation", Before: score, After: floor})
		share := float64(floor-score) / float64(len(severe))
		for _, f := range severe {
			acc.Add(f.Category, share)
		}
		score = floor
	}

	score = clampScore(score)

	res.Score = score
	res.Level = LevelForScore(score)
	res.Confidence = confidenceFor(score)
	res.Importance = acc.Normalized()
	res.Flags = make([]domain.RiskFlag, 0, len(findings))
	for _, f := range findings {
		res.Flags = append(res.Flags, f.Flag)
	}
	return res
}

// confidenceFor grows with the distance from the SAFE/SUSPICIOUS boundary.
func confidenceFor(score int) int {
	c := 50 + math.Abs(float64(score-SuspiciousThreshold))
	return int(math.Max(50, math.Min(95, c)))
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
