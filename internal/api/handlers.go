package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/leadledger/internal/export"
	"github.com/sells-group/leadledger/internal/model"
	"github.com/sells-group/leadledger/internal/summary"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	res, err := s.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, model.ErrUnauthorized) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"success": false,
				"message": "Access Denied: " + model.ErrUnauthorized.Error(),
			})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleSync returns the snapshot even when a source failed; the status is
// 502 and the report lists the failed sources.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.SyncAll(r.Context(), userFrom(r))
	if err != nil {
		if errors.Is(err, model.ErrSourceUnavailable) {
			writeJSON(w, http.StatusBadGateway, map[string]any{
				"error":    model.ErrSourceUnavailable.Error(),
				"details":  err.Error(),
				"snapshot": snap,
			})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Snapshot(r.Context(), userFrom(r)))
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	var lead model.Lead
	if err := json.NewDecoder(r.Body).Decode(&lead); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	snap, err := s.svc.Commit(r.Context(), userFrom(r), lead)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if !adminOnly(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"threshold_secs": int(s.svc.Threshold() / time.Second),
		"alerts":         s.svc.Alerts(r.Context()),
	})
}

func (s *Server) handleAck(w http.ResponseWriter, r *http.Request) {
	if !adminOnly(w, r) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.svc.AcknowledgeAlert(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "acknowledged", "id": id})
}

type thresholdRequest struct {
	Seconds float64 `json:"seconds"`
}

func (s *Server) handleThreshold(w http.ResponseWriter, r *http.Request) {
	if !adminOnly(w, r) {
		return
	}
	var req thresholdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	if err := s.svc.SetThreshold(time.Duration(req.Seconds * float64(time.Second))); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"threshold_secs": req.Seconds})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(s.now())+`"`)
	if err := s.svc.ExportArchive(r.Context(), userFrom(r), w); err != nil {
		// Headers are already sent; the body is truncated.
		zap.L().Error("api: export failed", zap.Error(err))
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Stats(r.Context(), userFrom(r), r.URL.Query().Get("owner")))
}

func (s *Server) handleWipe(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Wipe(r.Context(), userFrom(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "wiped"})
}

// handleSummary is the summary proxy: POST {prompt} -> {text}.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed"})
		return
	}

	var req summary.ProxyRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Missing prompt in request body"})
		return
	}

	if s.completer == nil {
		writeJSON(w, http.StatusInternalServerError, summary.ProxyResponse{
			Error:   "Command Center communication failure",
			Details: "no summary provider configured",
		})
		return
	}

	text, err := s.completer.Complete(r.Context(), req.Prompt)
	if err != nil {
		zap.L().Warn("api: summary generation failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, summary.ProxyResponse{
			Error:   "Command Center communication failure",
			Details: err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, summary.ProxyResponse{Text: text})
}
