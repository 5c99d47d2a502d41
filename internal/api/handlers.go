package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"token-risk-lab/internal/domain"
	"token-risk-lab/internal/features"
	"token-risk-lab/internal/solana"
	"token-risk-lab/internal/storage"
)

// defaultVerdictLimit caps /v1/tokens/{mint}/verdicts when no limit is given.
const defaultVerdictLimit = 50

// ClassifyRequest carries a raw feature vector.
type ClassifyRequest struct {
	Mint     string    `json:"mint,omitempty"`
	Features []float32 `json:"features"`
}

// ClassifyResponse is returned by both classify endpoints.
type ClassifyResponse struct {
	RequestID string                   `json:"requestId"`
	VerdictID string                   `json:"verdictId,omitempty"`
	Output    *domain.ClassifierOutput `json:"output"`
}

// VerdictView is the JSON form of a stored verdict.
type VerdictView struct {
	VerdictID        string            `json:"verdictId"`
	Mint             string            `json:"mint,omitempty"`
	VectorHash       string            `json:"vectorHash"`
	ModelFingerprint *string           `json:"modelFingerprint,omitempty"`
	Mode             domain.ScorerMode `json:"mode"`
	RiskScore        int               `json:"riskScore"`
	RiskLevel        domain.RiskLevel  `json:"riskLevel"`
	Confidence       int               `json:"confidence"`
	Flags            []domain.RiskFlag `json:"flags"`
	ClassifiedAt     int64             `json:"classifiedAt"`
}

func newVerdictView(v *domain.Verdict) VerdictView {
	flags := v.Flags
	if flags == nil {
		flags = []domain.RiskFlag{}
	}
	return VerdictView{
		VerdictID:        v.VerdictID,
		Mint:             v.Mint,
		VectorHash:       v.VectorHash,
		ModelFingerprint: v.ModelFingerprint,
		Mode:             v.Mode,
		RiskScore:        v.RiskScore,
		RiskLevel:        v.RiskLevel,
		Confidence:       v.Confidence,
		Flags:            flags,
		ClassifiedAt:     v.ClassifiedAt,
	}
}

var errInvalidMint = errors.New("invalid mint address")

func validateMint(mint string) error {
	if mint == "" || solana.ValidMint(mint) {
		return nil
	}
	return fmt.Errorf("%w: %q", errInvalidMint, mint)
}

// classifyVector scores a raw vector and records the verdict.
func (s *Server) classifyVector(ctx context.Context, mint string, vals []float32) (*ClassifyResponse, int, error) {
	if err := validateMint(mint); err != nil {
		return nil, http.StatusBadRequest, err
	}
	out, err := s.engine.Classify(ctx, vals)
	if err != nil {
		return nil, statusFor(err), err
	}
	return s.finish(ctx, mint, vals, out), http.StatusOK, nil
}

// classifyObservation extracts features from obs, scores them and records the verdict.
func (s *Server) classifyObservation(ctx context.Context, obs *domain.TokenObservation) (*ClassifyResponse, int, error) {
	if err := validateMint(obs.Mint); err != nil {
		return nil, http.StatusBadRequest, err
	}
	out, v, err := s.engine.ClassifyObservation(ctx, obs)
	if err != nil {
		return nil, statusFor(err), err
	}
	return s.finish(ctx, obs.Mint, v.Slice(), out), http.StatusOK, nil
}

func (s *Server) finish(ctx context.Context, mint string, vals []float32, out *domain.ClassifierOutput) *ClassifyResponse {
	resp := &ClassifyResponse{RequestID: requestIDFrom(ctx), Output: out}
	if s.recorder != nil {
		fp := ""
		if out.Mode == domain.ScorerNeural {
			fp = s.engine.ModelFingerprint()
		}
		resp.VerdictID = s.recorder.Record(ctx, mint, vals, out, fp).VerdictID
	}
	return resp
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, features.ErrInvalidDimension), errors.Is(err, features.ErrNonFiniteFeature),
		errors.Is(err, features.ErrFeatureOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, err)
		return
	}
	resp, status, err := s.classifyVector(r.Context(), req.Mint, req.Features)
	if err != nil {
		s.respondError(w, r, status, err)
		return
	}
	s.respondJSON(w, status, resp)
}

func (s *Server) handleClassifyObservation(w http.ResponseWriter, r *http.Request) {
	var obs domain.TokenObservation
	if err := decodeBody(w, r, &obs); err != nil {
		s.respondError(w, r, http.StatusBadRequest, err)
		return
	}
	resp, status, err := s.classifyObservation(r.Context(), &obs)
	if err != nil {
		s.respondError(w, r, status, err)
		return
	}
	s.respondJSON(w, status, resp)
}

func (s *Server) handleModel(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, s.engine.ModelInfo())
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, s.engine.Stats())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"state":  s.engine.State().String(),
	})
}

func (s *Server) handleGetVerdict(w http.ResponseWriter, r *http.Request) {
	if s.recorder == nil {
		s.respondError(w, r, http.StatusNotFound, storage.ErrNotFound)
		return
	}
	v, err := s.recorder.Verdict(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, storage.ErrNotFound) {
			status = http.StatusNotFound
		}
		s.respondError(w, r, status, err)
		return
	}
	s.respondJSON(w, http.StatusOK, newVerdictView(v))
}

func (s *Server) handleTokenVerdicts(w http.ResponseWriter, r *http.Request) {
	mint := chi.URLParam(r, "mint")
	if err := validateMint(mint); err != nil {
		s.respondError(w, r, http.StatusBadRequest, err)
		return
	}

	limit := defaultVerdictLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.respondError(w, r, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = n
	}

	views := []VerdictView{}
	if s.recorder != nil {
		verdicts, err := s.recorder.VerdictsForMint(r.Context(), mint, limit)
		if err != nil {
			s.respondError(w, r, http.StatusInternalServerError, err)
			return
		}
		for _, v := range verdicts {
			views = append(views, newVerdictView(v))
		}
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"mint":     mint,
		"verdicts": views,
		"count":    len(views),
	})
}
