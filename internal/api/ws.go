package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"token-risk-lab/internal/domain"
	"token-risk-lab/internal/observability"
)

// WebSocket stream settings.
const (
	wsWriteTimeout = 10 * time.Second
	wsPongWait     = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsMaxFrame     = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// StreamRequest is one inbound frame on /v1/ws. Exactly one of Features or
// Observation must be set.
type StreamRequest struct {
	ID          string                   `json:"id,omitempty"`
	Mint        string                   `json:"mint,omitempty"`
	Features    []float32                `json:"features,omitempty"`
	Observation *domain.TokenObservation `json:"observation,omitempty"`
}

// StreamResponse answers one StreamRequest.
type StreamResponse struct {
	ID        string                   `json:"id"`
	VerdictID string                   `json:"verdictId,omitempty"`
	Output    *domain.ClassifierOutput `json:"output,omitempty"`
	Error     string                   `json:"error,omitempty"`
}

var errAmbiguousFrame = errors.New("frame must carry exactly one of features or observation")

// wsConn serializes writes from the reader loop and the pinger.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteJSON(v)
}

func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
}

// handleWS streams classifications: one JSON frame in, one verdict frame out.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	observability.WSConnected(1)
	defer observability.WSConnected(-1)

	wc := &wsConn{conn: conn}
	defer conn.Close()

	log := s.logger.With(zap.String("request_id", requestIDFrom(r.Context())))

	conn.SetReadLimit(wsMaxFrame)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go s.pingLoop(ctx, wc)

	for {
		var req StreamRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("websocket read failed", zap.Error(err))
			}
			return
		}

		resp := s.handleFrame(ctx, &req)
		if err := wc.writeJSON(resp); err != nil {
			log.Debug("websocket write failed", zap.Error(err))
			return
		}
	}
}

func (s *Server) handleFrame(ctx context.Context, req *StreamRequest) *StreamResponse {
	id := req.ID
	if id == "" {
		id = uuid.New().String()
	}
	ctx = context.WithValue(ctx, requestIDKey, id)

	var (
		resp *ClassifyResponse
		err  error
	)
	switch {
	case (req.Features == nil) == (req.Observation == nil):
		err = errAmbiguousFrame
	case req.Observation != nil:
		if req.Observation.Mint == "" {
			req.Observation.Mint = req.Mint
		}
		resp, _, err = s.classifyObservation(ctx, req.Observation)
	default:
		resp, _, err = s.classifyVector(ctx, req.Mint, req.Features)
	}

	if err != nil {
		return &StreamResponse{ID: id, Error: err.Error()}
	}
	return &StreamResponse{ID: id, VerdictID: resp.VerdictID, Output: resp.Output}
}

func (s *Server) pingLoop(ctx context.Context, wc *wsConn) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := wc.ping(); err != nil {
				return
			}
		}
	}
}
