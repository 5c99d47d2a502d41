package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-risk-lab/internal/inference"
	"token-risk-lab/internal/model"
	"token-risk-lab/internal/model/stub"
)

func inferenceEngine(t *testing.T, a *model.Artifact) *inference.Engine {
	t.Helper()
	m, err := model.Parse(encodeArtifact(t, a))
	require.NoError(t, err)
	return inference.NewEngine(m)
}

func TestDetectQuantizationCollapse(t *testing.T) {
	tests := []struct {
		name                           string
		neuralA, neuralB, ruleA, ruleB int
		want                           bool
	}{
		{"neural flat, rules separate", 58, 55, 100, 45, true},
		{"neural flat at boundary", 70, 51, 100, 45, true},
		{"neural separates", 84, 20, 100, 45, false},
		{"neural separates exactly 20", 60, 40, 100, 45, false},
		{"neither separates", 50, 50, 50, 45, false},
		{"rules separate exactly 20", 50, 50, 65, 45, true},
		{"order does not matter", 20, 84, 45, 100, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectQuantizationCollapse(tt.neuralA, tt.neuralB, tt.ruleA, tt.ruleB))
		})
	}
}

func TestCheckCollapse_CollapsedModel(t *testing.T) {
	r := CheckCollapse(inferenceEngine(t, stub.Collapsed()))

	assert.True(t, r.Collapsed)
	assert.Equal(t, 0, r.NeuralSeparation)
	assert.Equal(t, r.NeuralRisky, r.NeuralClean)
	assert.Equal(t, 100, r.RuleRisky)
	assert.Equal(t, 45, r.RuleClean)
	assert.GreaterOrEqual(t, r.RuleSeparation, MinSeparation)

	require.Len(t, r.Checks, 3)
	assert.True(t, r.Checks[0].Pass, "rule-based separation")
	assert.False(t, r.Checks[1].Pass, "neural separation")
}

func TestCheckCollapse_DiscriminatingModel(t *testing.T) {
	r := CheckCollapse(inferenceEngine(t, stub.Discriminating()))

	assert.False(t, r.Collapsed)
	assert.GreaterOrEqual(t, r.NeuralSeparation, MinSeparation)
	assert.Greater(t, r.NeuralRisky, r.NeuralClean)
	for _, c := range r.Checks {
		assert.True(t, c.Pass, c.Name)
	}
}

func TestProbes_RuleBasedSeparation(t *testing.T) {
	// the probes are only useful as a reference if the rubric separates them
	r := CheckCollapse(inferenceEngine(t, stub.Collapsed()))
	assert.Equal(t, 55, r.RuleSeparation)
}
