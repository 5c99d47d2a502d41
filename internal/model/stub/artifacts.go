// Package stub builds model artifacts for tests and local experiments.
package stub

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"token-risk-lab/internal/features"
	"token-risk-lab/internal/model"
)

var classes = []string{"SAFE", "SUSPICIOUS", "DANGEROUS", "SCAM"}

// Artifact builds a deterministic artifact with the given hidden widths.
// Ternary weights cycle through {-1,0,+1}; dense weights follow a sine pattern.
func Artifact(q model.Quantization, hidden ...int) *model.Artifact {
	arch := append([]int{features.Count}, hidden...)
	arch = append(arch, model.ClassCount)

	a := &model.Artifact{
		Version:      1,
		Architecture: arch,
		Quantization: q,
		Weights:      make(map[string][]float64),
		Biases:       make(map[string][]float64),
		Classes:      append([]string(nil), classes...),
		FeatureCount: features.Count,
		Accuracy:     0.87,
		TrainedOn:    1200,
		TrainedAt:    "2026-01-15T10:00:00Z",
	}

	for k := 1; k < len(arch); k++ {
		rows, cols := arch[k-1], arch[k]
		w := make([]float64, rows*cols)
		for i := range w {
			if q == model.QuantizationTernary {
				w[i] = float64((i*7+k*3)%3 - 1)
			} else {
				w[i] = math.Round(math.Sin(float64(i+k))*1000) / 1000
			}
		}
		b := make([]float64, cols)
		for j := range b {
			b[j] = float64(j%2) * 0.05
		}
		a.Weights[model.LayerKey(k)] = w
		a.Biases[model.LayerKey(k)] = b
	}
	return a
}

// Discriminating returns a single-layer ternary artifact whose SCAM logit
// rises with risky features and whose SAFE logit rises with protective ones.
func Discriminating() *model.Artifact {
	a := Artifact(model.QuantizationTernary)
	w := make([]float64, features.Count*model.ClassCount)
	set := func(feature, class int, v float64) {
		w[feature*model.ClassCount+class] = v
	}

	risky := []int{
		features.IdxTopWhalePct, features.IdxTop10Concentration, features.IdxBundleDetected,
		features.IdxBundleRiskScore, features.IdxCreatorRugHistory, features.IdxWashTradingPct,
	}
	protective := []int{
		features.IdxLiquidityLog, features.IdxMintDisabled, features.IdxFreezeDisabled,
		features.IdxLPBurned, features.IdxLPLocked, features.IdxHolderCountLog,
	}
	for _, f := range risky {
		set(f, 3, 1)
		set(f, 0, -1)
	}
	for _, f := range protective {
		set(f, 0, 1)
		set(f, 3, -1)
	}

	a.Weights[model.LayerKey(1)] = w
	a.Biases[model.LayerKey(1)] = []float64{0, 0, 0, 0}
	return a
}

// Collapsed returns a ternary artifact whose weights are all zero, so every
// input produces the same output distribution.
func Collapsed() *model.Artifact {
	a := Artifact(model.QuantizationTernary, 8)
	for k, w := range a.Weights {
		a.Weights[k] = make([]float64, len(w))
	}
	return a
}

// Encode marshals an artifact to JSON.
func Encode(a *model.Artifact) ([]byte, error) {
	return json.Marshal(a)
}

// Write stores the artifact as JSON under dir/name and returns the path.
// Missing parent directories are created.
func Write(dir, name string, a *model.Artifact) (string, error) {
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}
	data, err := Encode(a)
	if err != nil {
		return "", fmt.Errorf("marshal artifact: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return path, nil
}
