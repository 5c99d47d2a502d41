package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"token-risk-lab/internal/observability"
)

// Reporter defaults.
const (
	DefaultReportTimeout = 2 * time.Second
	DefaultReportRate    = 50.0
	DefaultReportBurst   = 100
	DefaultReportQueue   = 256
)

// Report is the payload POSTed to the metrics endpoint after a classification.
type Report struct {
	InferenceMs float64 `json:"inferenceMs"`
	Confidence  int     `json:"confidence"`
	Timestamp   int64   `json:"timestamp"` // Unix milliseconds
}

// Reporter sends best-effort metrics reports to an HTTP endpoint.
// Reports are queued and sent by a single background worker; a full queue or
// an exhausted rate limit drops the report. Errors are logged at debug level
// and never reach the caller.
type Reporter struct {
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
	logger   *zap.Logger

	mu     sync.Mutex
	closed bool
	queue  chan Report
	done   chan struct{}
}

// ReporterOption configures Reporter.
type ReporterOption func(*Reporter)

// WithReportClient sets the HTTP client used for reports.
func WithReportClient(c *http.Client) ReporterOption {
	return func(r *Reporter) {
		r.client = c
	}
}

// WithReportRate limits reports to perSecond with the given burst.
// A non-positive perSecond disables limiting.
func WithReportRate(perSecond float64, burst int) ReporterOption {
	return func(r *Reporter) {
		if perSecond <= 0 {
			r.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithReportLogger sets the reporter logger.
func WithReportLogger(l *zap.Logger) ReporterOption {
	return func(r *Reporter) {
		r.logger = l
	}
}

// NewReporter creates a reporter for endpoint and starts its worker.
func NewReporter(endpoint string, opts ...ReporterOption) *Reporter {
	r := &Reporter{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultReportTimeout},
		limiter:  rate.NewLimiter(rate.Limit(DefaultReportRate), DefaultReportBurst),
		logger:   zap.NewNop(),
		queue:    make(chan Report, DefaultReportQueue),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	go r.run()
	return r
}

// Enqueue schedules a report. It never blocks.
func (r *Reporter) Enqueue(rep Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if !r.limiter.Allow() {
		observability.RecordMetricsReport("rate_limited")
		return
	}
	select {
	case r.queue <- rep:
	default:
		observability.RecordMetricsReport("dropped")
	}
}

// Close stops accepting reports and waits for queued ones to be sent.
func (r *Reporter) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()
	<-r.done
}

func (r *Reporter) run() {
	defer close(r.done)
	for rep := range r.queue {
		if err := r.send(rep); err != nil {
			observability.RecordMetricsReport("failed")
			r.logger.Debug("metrics report failed", zap.String("endpoint", r.endpoint), zap.Error(err))
			continue
		}
		observability.RecordMetricsReport("sent")
	}
}

func (r *Reporter) send(rep Report) error {
	body, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultReportTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("post report: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
