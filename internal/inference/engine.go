// Package inference runs the forward pass of a loaded risk model.
package inference

import (
	"math"

	"token-risk-lab/internal/domain"
	"token-risk-lab/internal/features"
	"token-risk-lab/internal/model"
)

// Per-class score anchors: riskScore = Σ anchor_i · P(class_i).
var classScoreAnchors = [model.ClassCount]float64{15, 50, 75, 95}

// Prediction is the interpreted output of one forward pass.
type Prediction struct {
	Logits        []float32
	Probabilities []float64 // [P(SAFE), P(SUSPICIOUS), P(DANGEROUS), P(SCAM)]
	Class         int
	Level         domain.RiskLevel
	RiskScore     int
	Confidence    int
}

// Engine executes forward passes over an immutable layer sequence.
// It holds no per-call state and is safe for concurrent use.
type Engine struct {
	model *model.Model
}

// NewEngine creates an engine for a validated model.
func NewEngine(m *model.Model) *Engine {
	return &Engine{model: m}
}

// Model returns the loaded model.
func (e *Engine) Model() *model.Model {
	return e.model
}

// Forward returns the raw output logits for v.
// ReLU is applied after every hidden layer; the final layer is left linear.
func (e *Engine) Forward(v features.Vector) []float32 {
	act := v.Slice()
	last := len(e.model.Layers) - 1
	for k, layer := range e.model.Layers {
		out := make([]float32, layer.Cols())
		layer.Forward(act, out)
		if k < last {
			relu(out)
		}
		act = out
	}
	return act
}

// Predict runs the forward pass and interprets the class distribution.
func (e *Engine) Predict(v features.Vector) Prediction {
	logits := e.Forward(v)
	probs := Softmax(logits)
	class := ArgMax(probs)
	score, confidence := Interpret(probs)

	return Prediction{
		Logits:        logits,
		Probabilities: probs,
		Class:         class,
		Level:         domain.RiskLevels[class],
		RiskScore:     score,
		Confidence:    confidence,
	}
}

// Finite reports whether every logit and probability is a finite number.
// Weights that overflow float32 in the forward pass make it false.
func (p Prediction) Finite() bool {
	for _, l := range p.Logits {
		if math.IsNaN(float64(l)) || math.IsInf(float64(l), 0) {
			return false
		}
	}
	for _, q := range p.Probabilities {
		if math.IsNaN(q) || math.IsInf(q, 0) {
			return false
		}
	}
	return true
}

func relu(xs []float32) {
	for i, x := range xs {
		if x < 0 {
			xs[i] = 0
		}
	}
}

// Softmax converts logits into probabilities, subtracting the max logit
// before exponentiating so large logits cannot overflow.
func Softmax(logits []float32) []float64 {
	probs := make([]float64, len(logits))
	if len(logits) == 0 {
		return probs
	}

	maxLogit := float64(logits[0])
	for _, l := range logits[1:] {
		maxLogit = math.Max(maxLogit, float64(l))
	}

	sum := 0.0
	for i, l := range logits {
		probs[i] = math.Exp(float64(l) - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// ArgMax returns the index of the largest probability; ties go to the lower index.
func ArgMax(probs []float64) int {
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return best
}

// Interpret maps class probabilities to (riskScore, confidence).
// riskScore = round(clamp(15·P0 + 50·P1 + 75·P2 + 95·P3, 0, 100));
// confidence = round(100 · max(P)).
func Interpret(probs []float64) (int, int) {
	score := 0.0
	maxP := 0.0
	for i, p := range probs {
		if i < len(classScoreAnchors) {
			score += classScoreAnchors[i] * p
		}
		maxP = math.Max(maxP, p)
	}
	score = math.Max(0, math.Min(100, score))
	return int(math.Round(score)), int(math.Round(100 * maxP))
}
