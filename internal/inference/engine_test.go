package inference

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-risk-lab/internal/domain"
	"token-risk-lab/internal/features"
	"token-risk-lab/internal/model"
	"token-risk-lab/internal/model/stub"
)

func loadStub(t *testing.T, a *model.Artifact) *model.Model {
	t.Helper()
	data, err := stub.Encode(a)
	require.NoError(t, err)
	m, err := model.Parse(data)
	require.NoError(t, err)
	return m
}

// probeVectors returns a spread of valid vectors, including signed features.
func probeVectors() []features.Vector {
	var out []features.Vector
	for s := 0; s < 16; s++ {
		var v features.Vector
		for i := range v {
			x := math.Mod(float64(s*31+i*17)*0.0137, 1)
			v[i] = float32(x)
		}
		v[features.IdxPriceVelocity] = float32(math.Sin(float64(s)))
		v[features.IdxMomentum] = float32(math.Cos(float64(s)))
		out = append(out, v)
	}
	return out
}

func TestTernaryDenseEquivalence(t *testing.T) {
	ternary := loadStub(t, stub.Artifact(model.QuantizationTernary, 32, 16))

	denseLayers := make([]model.Layer, 0, len(ternary.Layers))
	for _, l := range ternary.Layers {
		tl, ok := l.(*model.TernaryLayer)
		require.True(t, ok)
		denseLayers = append(denseLayers, tl.ToDense())
	}
	dense, err := model.NewModel(denseLayers)
	require.NoError(t, err)

	te := NewEngine(ternary)
	de := NewEngine(dense)

	for n, v := range probeVectors() {
		tl := te.Forward(v)
		dl := de.Forward(v)
		require.Len(t, dl, len(tl))
		for i := range tl {
			if tl[i] != dl[i] {
				t.Fatalf("vector %d logit %d: ternary %v != dense %v", n, i, tl[i], dl[i])
			}
		}
	}
}

func TestTernaryLayer_AddSubtractSkip(t *testing.T) {
	// one output: +in0 -in1 +0*in2 with bias 0.25
	l := model.NewTernaryLayer(3, 1, []int8{1, -1, 0}, []float32{0.25})
	out := make([]float32, 1)
	l.Forward([]float32{0.5, 0.125, 100}, out)
	assert.Equal(t, float32(0.625), out[0])
}

func TestPredict_Deterministic(t *testing.T) {
	e := NewEngine(loadStub(t, stub.Artifact(model.QuantizationDense, 24, 12)))

	for _, v := range probeVectors() {
		first := e.Predict(v)
		for i := 0; i < 5; i++ {
			again := e.Predict(v)
			assert.Equal(t, first, again)
		}
	}
}

func TestPredict_RangeInvariants(t *testing.T) {
	for _, q := range []model.Quantization{model.QuantizationTernary, model.QuantizationDense} {
		e := NewEngine(loadStub(t, stub.Artifact(q, 20)))
		for _, v := range probeVectors() {
			p := e.Predict(v)

			sum := 0.0
			for _, x := range p.Probabilities {
				assert.GreaterOrEqual(t, x, 0.0)
				sum += x
			}
			assert.InDelta(t, 1.0, sum, 1e-5)
			assert.GreaterOrEqual(t, p.RiskScore, 0)
			assert.LessOrEqual(t, p.RiskScore, 100)
			assert.GreaterOrEqual(t, p.Confidence, 0)
			assert.LessOrEqual(t, p.Confidence, 100)
			assert.True(t, p.Level.Valid())
			assert.Equal(t, domain.RiskLevels[ArgMax(p.Probabilities)], p.Level)
		}
	}
}

func TestForward_HiddenReLU(t *testing.T) {
	// hidden layer outputs -1 (bias) for every input; ReLU zeroes it, so the
	// output layer sees zeros and returns only its bias.
	hidden := model.NewDenseLayer(features.Count, 2, make([]float32, features.Count*2), []float32{-1, -1})
	outW := []float32{1, 1, 1, 1, 1, 1, 1, 1}
	out := model.NewDenseLayer(2, model.ClassCount, outW, []float32{0.1, 0.2, 0.3, 0.4})

	m, err := model.NewModel([]model.Layer{hidden, out})
	require.NoError(t, err)

	var v features.Vector
	logits := NewEngine(m).Forward(v)
	assert.Equal(t, []float32{0.1, 0.2, 0.3, 0.4}, logits)
}

func TestSoftmax_Stable(t *testing.T) {
	probs := Softmax([]float32{1000, 1000, 999, -1000})
	for _, p := range probs {
		assert.False(t, math.IsNaN(p) || math.IsInf(p, 0))
	}
	assert.InDelta(t, probs[0], probs[1], 1e-12)
	assert.InDelta(t, 0.0, probs[3], 1e-12)

	sum := 0.0
	for _, p := range probs {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
}

func TestSoftmax_Uniform(t *testing.T) {
	probs := Softmax([]float32{0, 0, 0, 0})
	for _, p := range probs {
		assert.InDelta(t, 0.25, p, 1e-12)
	}
}

func TestInterpret(t *testing.T) {
	tests := []struct {
		name       string
		probs      []float64
		score      int
		confidence int
	}{
		{"certain safe", []float64{1, 0, 0, 0}, 15, 100},
		{"certain scam", []float64{0, 0, 0, 1}, 95, 100},
		{"uniform", []float64{0.25, 0.25, 0.25, 0.25}, 59, 25}, // 58.75 rounds up
		{"split", []float64{0.5, 0.5, 0, 0}, 33, 50},           // 32.5 rounds half away from zero
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, confidence := Interpret(tt.probs)
			assert.Equal(t, tt.score, score)
			assert.Equal(t, tt.confidence, confidence)
		})
	}
}

func TestArgMax_TieGoesToLowerRisk(t *testing.T) {
	assert.Equal(t, 0, ArgMax([]float64{0.25, 0.25, 0.25, 0.25}))
	assert.Equal(t, 2, ArgMax([]float64{0.1, 0.2, 0.4, 0.3}))
}
