package model

import (
	"fmt"

	"token-risk-lab/internal/domain"
	"token-risk-lab/internal/features"
)

// Model is a validated, loaded artifact ready for inference.
// It is owned by the inference engine for the life of the process.
type Model struct {
	Layers       []Layer
	Version      int
	Architecture []int
	Quantization Quantization
	Classes      []string
	Accuracy     float64
	TrainedOn    int
	TrainedAt    string
	Fingerprint  string // first 16 hex chars of SHA256(artifact bytes)
	Path         string // file the model was loaded from, empty for in-memory models
}

// TotalWeights returns the number of weights across all layers.
func (m *Model) TotalWeights() int {
	n := 0
	for _, l := range m.Layers {
		n += l.WeightCount()
	}
	return n
}

// FirstLayer returns the input layer.
func (m *Model) FirstLayer() Layer {
	return m.Layers[0]
}

// NewModel assembles an in-memory model from prebuilt layers and checks that
// consecutive widths chain from 29 inputs to 4 outputs.
func NewModel(layers []Layer) (*Model, error) {
	if len(layers) == 0 {
		return nil, invalid("layers", "empty")
	}
	if layers[0].Rows() != features.Count {
		return nil, invalid("layers", "input width %d, want %d", layers[0].Rows(), features.Count)
	}
	if out := layers[len(layers)-1].Cols(); out != ClassCount {
		return nil, invalid("layers", "output width %d, want %d", out, ClassCount)
	}

	q := layers[0].Quantization()
	arch := []int{layers[0].Rows()}
	for i, l := range layers {
		if i > 0 && l.Rows() != layers[i-1].Cols() {
			return nil, invalid("layers", "layer %d has %d inputs, previous layer has %d outputs", i+1, l.Rows(), layers[i-1].Cols())
		}
		if l.Quantization() != q {
			return nil, invalid("layers", "mixed quantization: layer %d is %s, layer 1 is %s", i+1, l.Quantization(), q)
		}
		arch = append(arch, l.Cols())
	}

	classes := make([]string, 0, ClassCount)
	for _, level := range domain.RiskLevels {
		classes = append(classes, string(level))
	}

	return &Model{
		Layers:       layers,
		Version:      1,
		Architecture: arch,
		Quantization: q,
		Classes:      classes,
	}, nil
}

// String summarises the model for logs.
func (m *Model) String() string {
	return fmt.Sprintf("%s %v (%d weights, accuracy %.3f)", m.Quantization, m.Architecture, m.TotalWeights(), m.Accuracy)
}
