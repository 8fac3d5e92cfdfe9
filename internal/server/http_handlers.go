// HTTP API of the record store.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sanonone/jsonkv/internal/server/ui"
	"github.com/sanonone/jsonkv/pkg/engine"
)

// registerHTTPHandlers sets up the routes of the REST API.
func (s *Server) registerHTTPHandlers(mux *http.ServeMux) {
	// --- Legacy routes (plain text responses) ---
	mux.HandleFunc("GET /write/{userId}", s.handleLegacyWrite)
	mux.HandleFunc("GET /read/{userId}", s.handleLegacyRead)
	mux.HandleFunc("GET /delete/{userId}", s.handleLegacyDelete)

	// --- KV endpoints (JSON responses) ---
	mux.HandleFunc("GET /kv", s.handleKVList)
	mux.HandleFunc("GET /kv/{key...}", s.handleKVGet)
	mux.HandleFunc("PUT /kv/{key...}", s.handleKVSet)
	mux.HandleFunc("POST /kv/{key...}", s.handleKVSet)
	mux.HandleFunc("DELETE /kv/{key...}", s.handleKVDelete)

	// --- System ---
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /{$}", ui.GetHandler())
}

// --- Legacy handlers ---

func (s *Server) handleLegacyWrite(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	raw := r.URL.Query().Get("json")
	if raw == "" {
		s.writeText(w, http.StatusBadRequest, "Missing json query parameter")
		return
	}
	if limit := s.cfg.HTTP.MaxValueBytes; limit > 0 && int64(len(raw)) > limit {
		s.writeText(w, http.StatusRequestEntityTooLarge, "Value too large")
		return
	}

	if err := s.Engine.Put(r.Context(), userID, json.RawMessage(raw)); err != nil {
		status, msg := s.mapEngineError(r, err)
		if status == http.StatusBadRequest {
			msg = "Invalid JSON in json query parameter: " + msg
		}
		s.writeText(w, status, msg)
		return
	}
	s.writeText(w, http.StatusOK, fmt.Sprintf("Data for user %s has been written", userID))
}

func (s *Server) handleLegacyRead(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	value, err := s.Engine.Get(userID)
	if errors.Is(err, engine.ErrNotFound) {
		s.writeText(w, http.StatusNotFound, fmt.Sprintf("No data found for user %s", userID))
		return
	}
	if err != nil {
		status, msg := s.mapEngineError(r, err)
		s.writeText(w, status, msg)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(value)
}

func (s *Server) handleLegacyDelete(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	err := s.Engine.Delete(r.Context(), userID)
	if errors.Is(err, engine.ErrNotFound) {
		s.writeText(w, http.StatusNotFound, fmt.Sprintf("No data found for user %s", userID))
		return
	}
	if err != nil {
		status, msg := s.mapEngineError(r, err)
		s.writeText(w, status, msg)
		return
	}
	s.writeText(w, http.StatusOK, fmt.Sprintf("Data for user %s has been deleted", userID))
}

// --- KV handlers ---

func (s *Server) handleKVGet(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	value, err := s.Engine.Get(key)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, KVResponse{Key: key, Value: value})
}

func (s *Server) handleKVSet(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	body := r.Body
	if limit := s.cfg.HTTP.MaxValueBytes; limit > 0 {
		body = http.MaxBytesReader(w, r.Body, limit)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeHTTPError(w, http.StatusRequestEntityTooLarge, "Value too large")
			return
		}
		s.writeHTTPError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	if err := s.Engine.Put(r.Context(), key, raw); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, StatusResponse{Status: "OK", Key: key})
}

func (s *Server) handleKVDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.Delete(r.Context(), r.PathValue("key")); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleKVList(w http.ResponseWriter, r *http.Request) {
	keys := s.Engine.Keys(r.URL.Query().Get("prefix"))
	s.writeHTTPResponse(w, http.StatusOK, KeysResponse{Keys: keys, Count: len(keys)})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	st := s.Engine.Stats()
	s.writeHTTPResponse(w, http.StatusOK, HealthResponse{
		Status:     "ok",
		Keys:       st.Keys,
		StoreBytes: st.StoreBytes,
	})
}

// --- Error mapping ---

// mapEngineError translates an engine error into a status code and a message
// safe to show to the client. Server-side failures are logged here.
func (s *Server) mapEngineError(r *http.Request, err error) (int, string) {
	var perr *engine.PersistenceError
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return http.StatusNotFound, "Key not found"
	case errors.Is(err, engine.ErrInvalidValue):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, engine.ErrClosed):
		return http.StatusServiceUnavailable, "Server is shutting down"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "Request cancelled"
	case errors.As(err, &perr):
		s.logger.Error("Failed to persist mutation",
			"request_id", RequestID(r.Context()),
			"op", perr.Op,
			"key", perr.Key,
			"error", perr.Err,
		)
		return http.StatusInternalServerError, "Failed to persist data"
	default:
		s.logger.Error("Unexpected engine error", "request_id", RequestID(r.Context()), "error", err)
		return http.StatusInternalServerError, "Internal Server Error"
	}
}

func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := s.mapEngineError(r, err)
	s.writeHTTPError(w, status, msg)
}

// --- HTTP response helpers ---

func (s *Server) writeHTTPResponse(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeHTTPError(w http.ResponseWriter, statusCode int, message string) {
	s.writeHTTPResponse(w, statusCode, ErrorResponse{Error: message})
}

func (s *Server) writeText(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode)
	io.WriteString(w, message)
}
