// Package classifier is the risk-classification entry point. It owns the
// scorer state machine (lazy model load, neural or rule-based mode), the
// per-process inference statistics and the optional metrics side channel.
package classifier

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"token-risk-lab/internal/domain"
	"token-risk-lab/internal/features"
	"token-risk-lab/internal/flags"
	"token-risk-lab/internal/importance"
	"token-risk-lab/internal/inference"
	"token-risk-lab/internal/model"
	"token-risk-lab/internal/observability"
	"token-risk-lab/internal/rules"
)

// State is the scorer lifecycle state. Transitions are one-way:
// Uninitialized -> NeuralReady | RuleBasedReady.
type State int32

const (
	StateUninitialized State = iota
	StateNeuralReady
	StateRuleBasedReady
)

func (s State) String() string {
	switch s {
	case StateNeuralReady:
		return "NEURAL_READY"
	case StateRuleBasedReady:
		return "RULE_BASED_READY"
	default:
		return "UNINITIALIZED"
	}
}

// Model load outcomes, used as metric labels.
const (
	loadOutcomeLoaded   = "loaded"
	loadOutcomeNotFound = "not_found"
	loadOutcomeRejected = "rejected"
)

// Options configures an Engine.
type Options struct {
	// Loader discovers the artifact. Nil means a loader with default fallbacks.
	Loader *model.Loader
	// Model skips discovery and uses an already-built model.
	Model *model.Model
	// DisableModel forces rule-based mode without probing for an artifact.
	DisableModel bool
	// SkipCollapseCheck disables the load-time quantization collapse probe.
	SkipCollapseCheck bool

	// MetricsEndpoint receives a best-effort report after every classification.
	MetricsEndpoint string
	ReportRate      float64
	ReportBurst     int
	HTTPClient      *http.Client

	Logger *zap.Logger
}

// ModelInfo describes the active scorer.
type ModelInfo struct {
	State             string             `json:"state"`
	Mode              domain.ScorerMode  `json:"mode"`
	Quantization      model.Quantization `json:"quantization,omitempty"`
	Architecture      []int              `json:"architecture,omitempty"`
	Accuracy          *float64           `json:"accuracy,omitempty"`
	TrainedOn         *int               `json:"trainedOn,omitempty"`
	TrainedAt         string             `json:"trainedAt,omitempty"`
	TotalWeights      int                `json:"totalWeights,omitempty"`
	Fingerprint       string             `json:"fingerprint,omitempty"`
	Path              string             `json:"path,omitempty"`
	CollapseSuspected bool               `json:"collapseSuspected"`
}

// InferenceStats are process-wide classification counters.
type InferenceStats struct {
	LastLatencyMs   float64 `json:"lastLatencyMs"`
	AvgLatencyMs    float64 `json:"avgLatencyMs"`
	TotalInferences int64   `json:"totalInferences"`
}

// Engine classifies feature vectors. It is safe for concurrent use.
//
// The model is loaded at most once. Concurrent first callers share a single
// in-flight load; a failed load leaves the engine in rule-based mode for the
// rest of its life.
type Engine struct {
	opts     Options
	loader   *model.Loader
	logger   *zap.Logger
	reporter *Reporter

	state    atomic.Int32
	loads    singleflight.Group
	neural   atomic.Pointer[inference.Engine]
	collapse atomic.Pointer[CollapseReport]

	totalInferences atomic.Int64
	totalLatencyNs  atomic.Int64
	lastLatencyNs   atomic.Int64
}

// New creates an engine in the Uninitialized state. Nothing is loaded until
// Init or the first classification.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	loader := opts.Loader
	if loader == nil {
		loader = model.NewLoader(model.LoaderOptions{Logger: logger})
	}

	e := &Engine{
		opts:   opts,
		loader: loader,
		logger: logger,
	}
	if opts.MetricsEndpoint != "" {
		ropts := []ReporterOption{WithReportLogger(logger)}
		if opts.ReportRate != 0 || opts.ReportBurst != 0 {
			ropts = append(ropts, WithReportRate(opts.ReportRate, opts.ReportBurst))
		}
		if opts.HTTPClient != nil {
			ropts = append(ropts, WithReportClient(opts.HTTPClient))
		}
		e.reporter = NewReporter(opts.MetricsEndpoint, ropts...)
	}
	return e
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Init loads the model if the engine is still uninitialized. It never fails
// because of the artifact: a missing or invalid one selects rule-based mode.
// It returns an error only when ctx ends before the shared load completes;
// the load itself keeps running for the other callers.
func (e *Engine) Init(ctx context.Context) error {
	if e.State() != StateUninitialized {
		return nil
	}

	ch := e.loads.DoChan("model", func() (interface{}, error) {
		if e.State() == StateUninitialized {
			e.load(context.WithoutCancel(ctx))
		}
		return nil, nil
	})

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) load(ctx context.Context) {
	if e.opts.DisableModel {
		e.logger.Info("neural model disabled, using rule-based scorer")
		e.becomeRuleBased()
		return
	}

	m := e.opts.Model
	if m == nil {
		var err error
		m, err = e.loader.Load(ctx)
		switch {
		case errors.Is(err, model.ErrArtifactNotFound):
			observability.RecordModelLoad(loadOutcomeNotFound)
			e.logger.Info("no model artifact found, using rule-based scorer",
				zap.Strings("candidates", e.loader.Candidates()))
			e.becomeRuleBased()
			return
		case err != nil:
			observability.RecordModelLoad(loadOutcomeRejected)
			e.logger.Warn("model artifact rejected, using rule-based fallback", zap.Error(err))
			e.becomeRuleBased()
			return
		}
	}

	ie := inference.NewEngine(m)
	if !e.opts.SkipCollapseCheck {
		report := CheckCollapse(ie)
		e.collapse.Store(report)
		if report.Collapsed {
			observability.RecordCollapseDetected()
			e.logger.Warn("quantization collapse suspected: model does not separate risky and clean probes",
				zap.Int("neural_separation", report.NeuralSeparation),
				zap.Int("rule_separation", report.RuleSeparation),
				zap.String("fingerprint", m.Fingerprint),
			)
		}
	}

	e.neural.Store(ie)
	e.state.Store(int32(StateNeuralReady))
	observability.RecordModelLoad(loadOutcomeLoaded)
	observability.UpdateModelInfo(m.TotalWeights(), m.Accuracy)
	observability.SetModelMode(string(domain.ScorerNeural), string(domain.ScorerNeural), string(domain.ScorerRuleBased))
}

func (e *Engine) becomeRuleBased() {
	e.state.Store(int32(StateRuleBasedReady))
	observability.SetModelMode(string(domain.ScorerRuleBased), string(domain.ScorerNeural), string(domain.ScorerRuleBased))
}

// Classify validates a raw vector and classifies it.
// Vectors whose length is not features.Count, that hold NaN or Inf, or whose
// values fall outside features.Bounds are rejected with a
// *features.DimensionError, features.ErrNonFiniteFeature or *features.RangeError.
func (e *Engine) Classify(ctx context.Context, vector []float32) (*domain.ClassifierOutput, error) {
	v, err := features.FromSlice(vector)
	if err != nil {
		reason := "non_finite"
		switch {
		case errors.Is(err, features.ErrInvalidDimension):
			reason = "dimension"
		case errors.Is(err, features.ErrFeatureOutOfRange):
			reason = "range"
		}
		observability.RecordRejectedInput(reason)
		return nil, err
	}
	return e.ClassifyVector(ctx, v)
}

// ClassifyObservation extracts the feature vector from obs and classifies it.
func (e *Engine) ClassifyObservation(ctx context.Context, obs *domain.TokenObservation) (*domain.ClassifierOutput, features.Vector, error) {
	v := features.Extract(obs)
	out, err := e.ClassifyVector(ctx, v)
	return out, v, err
}

// ClassifyVector classifies an already-validated vector. Only the first call
// on an uninitialized engine can block (model load); afterwards it is
// synchronous and cannot fail.
func (e *Engine) ClassifyVector(ctx context.Context, v features.Vector) (*domain.ClassifierOutput, error) {
	if e.State() == StateUninitialized {
		if err := e.Init(ctx); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	out := e.score(v)
	elapsed := time.Since(start)

	out.InferenceLatencyMs = float64(elapsed.Nanoseconds()) / 1e6
	e.record(elapsed)
	observability.RecordInference(string(out.Mode), elapsed.Seconds(), start.Unix())

	if e.reporter != nil {
		e.reporter.Enqueue(Report{
			InferenceMs: out.InferenceLatencyMs,
			Confidence:  out.Confidence,
			Timestamp:   start.UnixMilli(),
		})
	}
	return out, nil
}

func (e *Engine) score(v features.Vector) *domain.ClassifierOutput {
	ie := e.neural.Load()
	if ie == nil {
		return ruleOutput(v)
	}

	pred := ie.Predict(v)
	if !pred.Finite() {
		// A NaN distribution has no meaningful score or level.
		e.logger.Warn("non-finite neural output, using rule-based scorer",
			zap.Float32s("logits", pred.Logits),
		)
		observability.RecordNonFiniteOutput()
		return ruleOutput(v)
	}
	return &domain.ClassifierOutput{
		RiskScore:         pred.RiskScore,
		RiskLevel:         pred.Level,
		Confidence:        pred.Confidence,
		FeatureImportance: importance.Analyze(ie.Model().FirstLayer(), v),
		Flags:             flags.Merge(flags.Generate(v, pred.Probabilities)),
		Probabilities:     pred.Probabilities,
		Mode:              domain.ScorerNeural,
	}
}

func ruleOutput(v features.Vector) *domain.ClassifierOutput {
	out := rules.Classify(v).Output()
	out.Flags = flags.Merge(flags.Generate(v, nil))
	return out
}

func (e *Engine) record(elapsed time.Duration) {
	ns := elapsed.Nanoseconds()
	e.lastLatencyNs.Store(ns)
	e.totalLatencyNs.Add(ns)
	e.totalInferences.Add(1)
}

// IsNeuralModelLoaded reports whether classifications use the neural scorer.
func (e *Engine) IsNeuralModelLoaded() bool {
	return e.State() == StateNeuralReady
}

// ModelInfo describes the active scorer. It does not trigger a load; an
// uninitialized engine reports rule-based mode.
func (e *Engine) ModelInfo() ModelInfo {
	info := ModelInfo{
		State: e.State().String(),
		Mode:  domain.ScorerRuleBased,
	}
	ie := e.neural.Load()
	if ie == nil {
		return info
	}

	m := ie.Model()
	accuracy, trainedOn := m.Accuracy, m.TrainedOn
	info.Mode = domain.ScorerNeural
	info.Quantization = m.Quantization
	info.Architecture = append([]int(nil), m.Architecture...)
	info.Accuracy = &accuracy
	info.TrainedOn = &trainedOn
	info.TrainedAt = m.TrainedAt
	info.TotalWeights = m.TotalWeights()
	info.Fingerprint = m.Fingerprint
	info.Path = m.Path
	if r := e.collapse.Load(); r != nil {
		info.CollapseSuspected = r.Collapsed
	}
	return info
}

// CollapseReport returns the load-time collapse check, or nil when no model
// is loaded or the check was skipped.
func (e *Engine) CollapseReport() *CollapseReport {
	return e.collapse.Load()
}

// ModelFingerprint returns the loaded artifact fingerprint, or "" in
// rule-based mode.
func (e *Engine) ModelFingerprint() string {
	if ie := e.neural.Load(); ie != nil {
		return ie.Model().Fingerprint
	}
	return ""
}

// Stats returns the inference counters.
func (e *Engine) Stats() InferenceStats {
	total := e.totalInferences.Load()
	stats := InferenceStats{
		LastLatencyMs:   float64(e.lastLatencyNs.Load()) / 1e6,
		TotalInferences: total,
	}
	if total > 0 {
		stats.AvgLatencyMs = float64(e.totalLatencyNs.Load()) / float64(total) / 1e6
	}
	return stats
}

// Close flushes pending metrics reports.
func (e *Engine) Close() {
	if e.reporter != nil {
		e.reporter.Close()
	}
}
