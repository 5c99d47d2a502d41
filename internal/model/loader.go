package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"token-risk-lab/internal/idhash"
)

// maxArtifactBytes bounds the decompressed artifact size.
const maxArtifactBytes = 64 << 20

// DefaultFallbackPaths are probed in order when the configured path is absent.
var DefaultFallbackPaths = []string{
	"models/risk-classifier.json",
	"models/risk-classifier.json.gz",
	"model/ternary-model.json",
	"data/models/risk-classifier.json",
	"../models/risk-classifier.json",
}

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	// Path is tried first. Empty means "fallbacks only".
	Path string
	// FallbackPaths overrides DefaultFallbackPaths when non-nil.
	FallbackPaths []string
	Logger        *zap.Logger
}

// Loader locates, parses and validates a model artifact.
type Loader struct {
	path      string
	fallbacks []string
	logger    *zap.Logger
}

// NewLoader creates a new Loader.
func NewLoader(opts LoaderOptions) *Loader {
	fallbacks := opts.FallbackPaths
	if fallbacks == nil {
		fallbacks = DefaultFallbackPaths
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		path:      opts.Path,
		fallbacks: fallbacks,
		logger:    logger,
	}
}

// Candidates returns the probe order: configured path first, then fallbacks.
func (l *Loader) Candidates() []string {
	out := make([]string, 0, len(l.fallbacks)+1)
	if l.path != "" {
		out = append(out, l.path)
	}
	return append(out, l.fallbacks...)
}

// Discover returns the first candidate path that exists as a regular file.
// Returns ErrArtifactNotFound when none does.
func (l *Loader) Discover() (string, error) {
	for _, p := range l.Candidates() {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if info.Mode().IsRegular() {
			return p, nil
		}
	}
	return "", ErrArtifactNotFound
}

// Load discovers, reads and parses the artifact.
func (l *Loader) Load(ctx context.Context) (*Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := l.Discover()
	if err != nil {
		return nil, err
	}

	m, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	l.logger.Info("model artifact loaded",
		zap.String("path", path),
		zap.String("quantization", string(m.Quantization)),
		zap.Ints("architecture", m.Architecture),
		zap.Int("total_weights", m.TotalWeights()),
		zap.Float64("accuracy", m.Accuracy),
		zap.String("fingerprint", m.Fingerprint),
	)
	return m, nil
}

// LoadFile reads and parses one artifact file. Files ending in .gz are
// decompressed first.
func LoadFile(path string) (*Model, error) {
	data, err := readArtifact(path)
	if err != nil {
		return nil, err
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	m.Path = path
	return m, nil
}

// Parse validates raw artifact JSON and builds the layer sequence.
func Parse(data []byte) (*Model, error) {
	if err := validateSchema(data); err != nil {
		return nil, err
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, invalid("document", "decode: %v", err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}

	return &Model{
		Layers:       buildLayers(&a),
		Version:      a.Version,
		Architecture: append([]int(nil), a.Architecture...),
		Quantization: a.Quantization,
		Classes:      append([]string(nil), a.Classes...),
		Accuracy:     a.Accuracy,
		TrainedOn:    a.TrainedOn,
		TrainedAt:    a.TrainedAt,
		Fingerprint:  idhash.ComputeArtifactFingerprint(data),
	}, nil
}

func readArtifact(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrArtifactNotFound
		}
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, invalid("document", "gzip header: %v", err)
		}
		defer zr.Close()
		r = zr
	}

	data, err := io.ReadAll(io.LimitReader(r, maxArtifactBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	if len(data) > maxArtifactBytes {
		return nil, invalid("document", "larger than %d bytes", maxArtifactBytes)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, invalid("document", "empty")
	}
	return data, nil
}
