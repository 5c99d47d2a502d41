package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"token-risk-lab/internal/classifier"
	"token-risk-lab/internal/domain"
)

// input is one classification request read from disk. Exactly one of
// Features or Observation must be set.
type input struct {
	Mint        string                   `json:"mint,omitempty" yaml:"mint,omitempty"`
	Features    []float32                `json:"features,omitempty" yaml:"features,omitempty"`
	Observation *domain.TokenObservation `json:"observation,omitempty" yaml:"observation,omitempty"`
}

var errAmbiguousInput = errors.New("input must carry exactly one of features or observation")

// readInput decodes a .json, .yaml or .yml request file.
func readInput(path string) (*input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var in input
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&in)
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&in)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if (in.Features == nil) == (in.Observation == nil) {
		return nil, fmt.Errorf("%s: %w", path, errAmbiguousInput)
	}
	if in.Observation != nil && in.Observation.Mint == "" {
		in.Observation.Mint = in.Mint
	}
	return &in, nil
}

// mint returns the token the input refers to.
func (in *input) mint() string {
	if in.Observation != nil {
		return in.Observation.Mint
	}
	return in.Mint
}

// classify runs the input through engine.
func (in *input) classify(ctx context.Context, engine *classifier.Engine) (*domain.ClassifierOutput, error) {
	if in.Observation != nil {
		out, _, err := engine.ClassifyObservation(ctx, in.Observation)
		return out, err
	}
	return engine.Classify(ctx, in.Features)
}

// listInputs returns the request files in dir, sorted by name.
func listInputs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".yaml", ".yml":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
