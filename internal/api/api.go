// Package api exposes the command surface over HTTP for the web UI.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/leadledger/internal/crm"
	"github.com/sells-group/leadledger/internal/model"
	"github.com/sells-group/leadledger/internal/stats"
	"github.com/sells-group/leadledger/internal/summary"
)

// Service is the command surface the handlers drive.
type Service interface {
	Authenticate(username, password string) (model.User, error)
	Login(ctx context.Context, username, password string) (crm.LoginResult, error)
	SyncAll(ctx context.Context, user model.User) (model.Snapshot, error)
	Commit(ctx context.Context, user model.User, lead model.Lead) (model.Snapshot, error)
	Snapshot(ctx context.Context, user model.User) model.Snapshot
	Alerts(ctx context.Context) []model.SystemAlert
	AcknowledgeAlert(ctx context.Context, id string) error
	SetThreshold(d time.Duration) error
	Threshold() time.Duration
	ExportArchive(ctx context.Context, user model.User, w io.Writer) error
	Stats(ctx context.Context, user model.User, owner string) stats.Report
	Wipe(ctx context.Context, user model.User) error
}

// Server holds the handler dependencies.
type Server struct {
	svc       Service
	completer summary.Completer
	origins   []string
	now       func() time.Time
}

// New creates a Server. completer may be nil when summaries are disabled.
func New(svc Service, completer summary.Completer, allowedOrigins []string) *Server {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return &Server{svc: svc, completer: completer, origins: allowedOrigins, now: time.Now}
}

// Router builds the chi router with every route mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		// Method checks happen in the handler so non-POST gets a JSON 405.
		r.HandleFunc("/summary", s.handleSummary)
		r.HandleFunc("/gemini", s.handleSummary)

		r.Group(func(r chi.Router) {
			r.Use(s.basicAuth)
			r.Post("/sync", s.handleSync)
			r.Get("/snapshot", s.handleSnapshot)
			r.Post("/commit", s.handleCommit)
			r.Get("/alerts", s.handleAlerts)
			r.Post("/alerts/{id}/ack", s.handleAck)
			r.Put("/alerts/threshold", s.handleThreshold)
			r.Get("/export.csv", s.handleExport)
			r.Get("/stats", s.handleStats)
			r.Delete("/state", s.handleWipe)
		})
	})
	return r
}

type userKey struct{}

// basicAuth resolves the caller from HTTP basic credentials.
func (s *Server) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="leadledger"`)
			writeError(w, model.ErrUnauthorized)
			return
		}
		user, err := s.svc.Authenticate(username, password)
		if err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, user)))
	})
}

func userFrom(r *http.Request) model.User {
	u, _ := r.Context().Value(userKey{}).(model.User)
	return u
}

func adminOnly(w http.ResponseWriter, r *http.Request) bool {
	if userFrom(r).IsAdmin() {
		return true
	}
	writeJSON(w, http.StatusForbidden, errorBody{Error: "admin only"})
	return false
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

// statusFor maps outcome sentinels onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrValidationRejected):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrSourceUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, model.ErrAlertNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}

	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		body.Error = verr.Message
	case status == http.StatusUnauthorized:
		body.Error = model.ErrUnauthorized.Error()
	case status == http.StatusBadGateway:
		body = errorBody{Error: model.ErrSourceUnavailable.Error(), Details: err.Error()}
	case status == http.StatusInternalServerError:
		zap.L().Error("api: request failed", zap.Error(err))
	}
	writeJSON(w, status, body)
}
