package model_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-risk-lab/internal/features"
	"token-risk-lab/internal/model"
	"token-risk-lab/internal/model/stub"
)

func writeArtifact(t *testing.T, dir, name string, a *model.Artifact) string {
	t.Helper()
	path, err := stub.Write(dir, name, a)
	require.NoError(t, err)
	return path
}

func encodeArtifact(t *testing.T, a *model.Artifact) []byte {
	t.Helper()
	data, err := stub.Encode(a)
	require.NoError(t, err)
	return data
}

func TestParse_Ternary(t *testing.T) {
	m, err := model.Parse(encodeArtifact(t, stub.Artifact(model.QuantizationTernary, 16, 8)))
	require.NoError(t, err)

	assert.Equal(t, model.QuantizationTernary, m.Quantization)
	assert.Equal(t, []int{29, 16, 8, 4}, m.Architecture)
	assert.Equal(t, 29*16+16*8+8*4, m.TotalWeights())
	assert.Len(t, m.Layers, 3)
	assert.Len(t, m.Fingerprint, 16)
	for _, l := range m.Layers {
		_, ok := l.(*model.TernaryLayer)
		assert.True(t, ok, "expected ternary layer, got %T", l)
	}
}

func TestParse_Dense(t *testing.T) {
	m, err := model.Parse(encodeArtifact(t, stub.Artifact(model.QuantizationDense, 12)))
	require.NoError(t, err)

	assert.Equal(t, model.QuantizationDense, m.Quantization)
	_, ok := m.FirstLayer().(*model.DenseLayer)
	assert.True(t, ok)
	assert.Equal(t, 0.87, m.Accuracy)
	assert.Equal(t, 1200, m.TrainedOn)
}

func TestParse_TransposesRowMajorWeights(t *testing.T) {
	a := stub.Artifact(model.QuantizationDense)
	w := make([]float64, features.Count*model.ClassCount)
	// input 2 -> output 3
	w[2*model.ClassCount+3] = 0.5
	a.Weights["layer1"] = w

	m, err := model.Parse(encodeArtifact(t, a))
	require.NoError(t, err)

	dense := m.FirstLayer().(*model.DenseLayer)
	assert.Equal(t, float32(0.5), dense.Weight(2, 3))
	assert.Equal(t, float32(0), dense.Weight(3, 2))

	in := make([]float32, features.Count)
	in[2] = 1
	out := make([]float32, model.ClassCount)
	dense.Forward(in, out)
	assert.Equal(t, float32(0.5)+float32(0.05), out[3], "bias of output 3 is 0.05")
}

func TestParse_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(a *model.Artifact)
		field  string
	}{
		{"feature count mismatch", func(a *model.Artifact) { a.FeatureCount = 28 }, "featureCount"},
		{"wrong input width", func(a *model.Artifact) { a.Architecture[0] = 30 }, "architecture"},
		{"wrong class count", func(a *model.Artifact) { a.Architecture[len(a.Architecture)-1] = 3 }, "architecture"},
		{"missing layer key", func(a *model.Artifact) { delete(a.Weights, "layer2") }, "weights.layer2"},
		{"missing bias key", func(a *model.Artifact) { delete(a.Biases, "layer1") }, "biases.layer1"},
		{"short weights", func(a *model.Artifact) { a.Weights["layer1"] = a.Weights["layer1"][:10] }, "weights.layer1"},
		{"short bias", func(a *model.Artifact) { a.Biases["layer2"] = []float64{0} }, "biases.layer2"},
		{"non-ternary weight", func(a *model.Artifact) { a.Weights["layer1"][5] = 0.5 }, "weights.layer1"},
		{"weight overflows float32", func(a *model.Artifact) { a.Weights["layer2"][0] = 1e39 }, "weights.layer2"},
		{"bias overflows float32", func(a *model.Artifact) { a.Biases["layer1"][2] = -1e39 }, "biases.layer1"},
		{"class order", func(a *model.Artifact) { a.Classes[0], a.Classes[3] = a.Classes[3], a.Classes[0] }, "classes"},
		{"accuracy range", func(a *model.Artifact) { a.Accuracy = 1.5 }, "accuracy"},
		{"feature names mismatch", func(a *model.Artifact) {
			a.FeatureNames = append([]string(nil), features.Names[:]...)
			a.FeatureNames[0], a.FeatureNames[1] = a.FeatureNames[1], a.FeatureNames[0]
		}, "featureNames"},
		{"unknown quantization", func(a *model.Artifact) { a.Quantization = "binary" }, "document"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := stub.Artifact(model.QuantizationTernary, 6)
			tt.mutate(a)

			_, err := model.Parse(encodeArtifact(t, a))
			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrInvalidArtifact), "got %v", err)

			var vErr *model.ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestParse_AcceptsMatchingFeatureNames(t *testing.T) {
	a := stub.Artifact(model.QuantizationTernary)
	a.FeatureNames = append([]string(nil), features.Names[:]...)

	_, err := model.Parse(encodeArtifact(t, a))
	assert.NoError(t, err)
}

func TestParse_MalformedJSON(t *testing.T) {
	_, err := model.Parse([]byte(`{"version": 1, "architecture": [29,`))
	assert.True(t, errors.Is(err, model.ErrInvalidArtifact))

	_, err = model.Parse([]byte(`{"version": 1}`))
	assert.True(t, errors.Is(err, model.ErrInvalidArtifact), "missing required fields")
}

func TestLoader_ConfiguredPathWins(t *testing.T) {
	dir := t.TempDir()
	configured := writeArtifact(t, dir, "custom.json", stub.Artifact(model.QuantizationDense))
	fallback := writeArtifact(t, dir, "fallback.json", stub.Artifact(model.QuantizationTernary))

	loader := model.NewLoader(model.LoaderOptions{
		Path:          configured,
		FallbackPaths: []string{fallback},
	})

	m, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, configured, m.Path)
	assert.Equal(t, model.QuantizationDense, m.Quantization)
}

func TestLoader_FallbackOrder(t *testing.T) {
	dir := t.TempDir()
	second := writeArtifact(t, dir, "b/model.json", stub.Artifact(model.QuantizationTernary))
	third := writeArtifact(t, dir, "c/model.json", stub.Artifact(model.QuantizationDense))

	loader := model.NewLoader(model.LoaderOptions{
		Path:          filepath.Join(dir, "missing.json"),
		FallbackPaths: []string{filepath.Join(dir, "a/model.json"), second, third},
	})

	path, err := loader.Discover()
	require.NoError(t, err)
	assert.Equal(t, second, path)
}

func TestLoader_NothingFound(t *testing.T) {
	dir := t.TempDir()
	loader := model.NewLoader(model.LoaderOptions{
		Path:          filepath.Join(dir, "nope.json"),
		FallbackPaths: []string{filepath.Join(dir, "also-nope.json"), dir},
	})

	_, err := loader.Load(context.Background())
	assert.ErrorIs(t, err, model.ErrArtifactNotFound)
}

func TestLoader_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := model.NewLoader(model.LoaderOptions{}).Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadFile_Gzip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json.gz")

	f, err := os.Create(path)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write(encodeArtifact(t, stub.Artifact(model.QuantizationTernary, 4)))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	m, err := model.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []int{29, 4, 4}, m.Architecture)
}

func TestLoadFile_Empty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o644))

	_, err := model.LoadFile(path)
	assert.ErrorIs(t, err, model.ErrInvalidArtifact)
}

func TestNewModel(t *testing.T) {
	hidden := model.NewDenseLayer(features.Count, 3, make([]float32, features.Count*3), make([]float32, 3))
	out := model.NewDenseLayer(3, model.ClassCount, make([]float32, 3*model.ClassCount), make([]float32, model.ClassCount))

	m, err := model.NewModel([]model.Layer{hidden, out})
	require.NoError(t, err)
	assert.Equal(t, []int{29, 3, 4}, m.Architecture)
	assert.Equal(t, []string{"SAFE", "SUSPICIOUS", "DANGEROUS", "SCAM"}, m.Classes)

	bad := model.NewDenseLayer(5, model.ClassCount, make([]float32, 5*model.ClassCount), make([]float32, model.ClassCount))
	_, err = model.NewModel([]model.Layer{hidden, bad})
	assert.ErrorIs(t, err, model.ErrInvalidArtifact)

	ternaryOut := model.NewTernaryLayer(3, model.ClassCount, make([]int8, 3*model.ClassCount), make([]float32, model.ClassCount))
	_, err = model.NewModel([]model.Layer{hidden, ternaryOut})
	assert.ErrorIs(t, err, model.ErrInvalidArtifact, "mixed quantization")
}
