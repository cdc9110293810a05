package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"finbot/internal/core"
	applog "finbot/internal/log"
)

const maxMessageBytes = 16 << 10

type messageRequest struct {
	UserID int64  `json:"user_id"`
	Text   string `json:"text"`
}

type messageResponse struct {
	Reply string `json:"reply"`
	OK    bool   `json:"ok"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleMessage feeds one chat line to the dispatcher. Command failures are
// still 200 with ok=false; only malformed requests get an error status.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	var req messageRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes))
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "message too large"})
			return
		}
		if errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "empty body"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if req.UserID <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "user_id must be a positive integer"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "text is required"})
		return
	}

	reply := s.dispatcher.Handle(ctx, req.UserID, req.Text)
	logger.DebugContext(ctx, "Message handled", applog.FieldUserID, req.UserID, applog.FieldSuccess, reply.OK)
	writeJSON(w, http.StatusOK, messageResponse{Reply: reply.Text, OK: reply.OK})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || userID <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user id"})
		return
	}

	res, err := s.exporter.Export(ctx, userID, r.URL.Query().Get("format"))
	if err != nil {
		switch core.Kind(err) {
		case core.KindValidation:
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "format must be json or csv"})
		case core.KindNotFound:
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "user not found"})
		default:
			applog.FromContext(ctx).ErrorContext(ctx, "Export failed", applog.FieldUserID, userID, applog.FieldError, err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "export failed"})
		}
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Body)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"requests":  s.tracer.TotalRequests(),
	})
}

// handleReady checks that the store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	status, code := "ready", http.StatusOK
	if s.ready == nil {
		checks["store"] = "not_configured"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else if err := s.ready.Ping(ctx); err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
		checks["store"] = "failed"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":         status,
		"checks":         checks,
		"active_clients": s.limiter.ActiveClients(),
	})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded, try again later"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
