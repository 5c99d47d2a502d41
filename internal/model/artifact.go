// Package model loads and validates trained risk-classifier artifacts and
// builds the quantization-tagged layer sequence used for inference.
package model

import (
	"fmt"
	"math"

	"token-risk-lab/internal/domain"
	"token-risk-lab/internal/features"
)

// ClassCount is the number of output classes.
const ClassCount = 4

// Quantization selects the weight representation of every layer.
type Quantization string

const (
	QuantizationTernary Quantization = "ternary"
	QuantizationDense   Quantization = "dense"
)

// Artifact is the on-disk model document.
// Layer k (1-based) is stored under weights["layer<k>"] as a row-major
// architecture[k-1] x architecture[k] matrix (row = input, column = output).
type Artifact struct {
	Version      int                  `json:"version"`
	Architecture []int                `json:"architecture"`
	Quantization Quantization         `json:"quantization"`
	Weights      map[string][]float64 `json:"weights"`
	Biases       map[string][]float64 `json:"biases"`
	Classes      []string             `json:"classes"`
	FeatureCount int                  `json:"featureCount"`
	FeatureNames []string             `json:"featureNames,omitempty"`
	Accuracy     float64              `json:"accuracy"`
	TrainedOn    int                  `json:"trainedOn"`
	TrainedAt    string               `json:"trainedAt"`
}

// LayerKey returns the weights/biases key for 1-based layer k.
func LayerKey(k int) string {
	return fmt.Sprintf("layer%d", k)
}

// Validate checks the artifact invariants:
// architecture[0] == 29, architecture[last] == 4, weight length == rows*cols,
// bias length == cols, every weight and bias finite in float32, ternary
// weights in {-1,0,+1}, class order fixed.
func (a *Artifact) Validate() error {
	if a.FeatureCount != features.Count {
		return invalid("featureCount", "got %d, runtime expects %d", a.FeatureCount, features.Count)
	}
	if len(a.Architecture) < 2 {
		return invalid("architecture", "need at least input and output widths, got %d entries", len(a.Architecture))
	}
	if a.Architecture[0] != features.Count {
		return invalid("architecture", "input width %d, want %d", a.Architecture[0], features.Count)
	}
	if last := a.Architecture[len(a.Architecture)-1]; last != ClassCount {
		return invalid("architecture", "output width %d, want %d", last, ClassCount)
	}
	for i, w := range a.Architecture {
		if w <= 0 {
			return invalid("architecture", "layer width %d at position %d", w, i)
		}
	}

	switch a.Quantization {
	case QuantizationTernary, QuantizationDense:
	default:
		return invalid("quantization", "unsupported mode %q", a.Quantization)
	}

	if len(a.Classes) != ClassCount {
		return invalid("classes", "got %d classes, want %d", len(a.Classes), ClassCount)
	}
	for i, c := range a.Classes {
		if domain.RiskLevel(c) != domain.RiskLevels[i] {
			return invalid("classes", "class %d is %q, want %q", i, c, domain.RiskLevels[i])
		}
	}

	if len(a.FeatureNames) > 0 {
		if len(a.FeatureNames) != features.Count {
			return invalid("featureNames", "got %d names, want %d", len(a.FeatureNames), features.Count)
		}
		for i, name := range a.FeatureNames {
			if name != features.Names[i] {
				return invalid("featureNames", "index %d is %q, runtime expects %q", i, name, features.Names[i])
			}
		}
	}

	if a.Accuracy < 0 || a.Accuracy > 1 {
		return invalid("accuracy", "%f outside [0,1]", a.Accuracy)
	}

	for k := 1; k < len(a.Architecture); k++ {
		key := LayerKey(k)
		rows, cols := a.Architecture[k-1], a.Architecture[k]

		w, ok := a.Weights[key]
		if !ok {
			return invalid("weights."+key, "missing")
		}
		if len(w) != rows*cols {
			return invalid("weights."+key, "length %d, want %dx%d=%d", len(w), rows, cols, rows*cols)
		}
		b, ok := a.Biases[key]
		if !ok {
			return invalid("biases."+key, "missing")
		}
		if len(b) != cols {
			return invalid("biases."+key, "length %d, want %d", len(b), cols)
		}
		if i, ok := firstUnrepresentable(w); !ok {
			return invalid("weights."+key, "value %v at index %d does not fit float32", w[i], i)
		}
		if i, ok := firstUnrepresentable(b); !ok {
			return invalid("biases."+key, "value %v at index %d does not fit float32", b[i], i)
		}
		if a.Quantization == QuantizationTernary {
			for i, x := range w {
				if x != -1 && x != 0 && x != 1 {
					return invalid("weights."+key, "non-ternary weight %v at index %d", x, i)
				}
			}
		}
	}

	return nil
}

// firstUnrepresentable returns the index of the first value that is NaN, Inf
// or larger in magnitude than math.MaxFloat32.
func firstUnrepresentable(xs []float64) (int, bool) {
	for i, x := range xs {
		if math.IsNaN(x) || math.Abs(x) > math.MaxFloat32 {
			return i, false
		}
	}
	return 0, true
}
