package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/luxio/internal/apierr"
	"github.com/muurk/luxio/internal/logging"
	"github.com/muurk/luxio/internal/rpc"
)

// Error codes answered by the transport itself.
const (
	errInvalidMethod = "invalid_method"
	errNotFound      = "not_found"
	errUnavailable   = "unavailable"
)

// maxBodySize bounds a POST body.
const maxBodySize = 64 << 10

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r, s.config.RequestTimeout)
	defer cancel()

	state, err := s.backend.FullState(ctx)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{errUnavailable})
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{apierr.CodeInvalidRequest})
		return
	}

	req, err := rpc.DecodeRequest(body)
	switch {
	case errors.Is(err, rpc.ErrInvalidMethod):
		writeJSON(w, http.StatusBadRequest, errorBody{errInvalidMethod})
		return
	case err != nil:
		writeJSON(w, http.StatusBadRequest, errorBody{apierr.CodeInvalidRequest})
		return
	}

	ctx, cancel := contextWithTimeout(r, s.config.RequestTimeout)
	defer cancel()

	resp, err := s.backend.Execute(ctx, req)
	if err != nil {
		logging.Warn("Request not executed",
			zap.String("method", req.Method),
			zap.Error(err),
		)
		writeJSON(w, http.StatusServiceUnavailable, errorBody{errUnavailable})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorBody{errNotFound})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error("Failed to marshal response", zap.Error(err))
		status = http.StatusInternalServerError
		data = []byte(`{"error":"internal_error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack hands the connection to the WebSocket upgrader.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer %T cannot hijack", r.ResponseWriter)
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path, rec.status)
	})
}

func contextWithTimeout(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), d)
}
