// Package http exposes the trivia service over HTTP: JSON, SOAP-style XML and websocket adapters.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"trivia-service/internal/domain"
	"trivia-service/internal/metrics"
)

// Trivia is the question lifecycle the adapters drive.
type Trivia interface {
	NextQuestion(ctx context.Context) (domain.TriviaQuestion, error)
	Reconcile(ctx context.Context, sub domain.AnswerSubmission) (domain.AnswerResult, error)
}

// Users manages user identities.
type Users interface {
	Create(ctx context.Context, username, email string) (domain.User, error)
	Get(ctx context.Context, id int64) (domain.User, error)
	Update(ctx context.Context, id int64, username, email string) (domain.User, error)
	Delete(ctx context.Context, id int64) (domain.User, error)
}

const maxBodyBytes = 1 << 20

type Handler struct {
	trivia   Trivia
	users    Users
	log      *slog.Logger
	metrics  *metrics.Manager
	cors     bool
	upgrader websocket.Upgrader
}

type Option func(*Handler)

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

// WithMetrics records request metrics and serves /metrics from m.
func WithMetrics(m *metrics.Manager) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithCORS allows cross-origin requests from any origin.
func WithCORS(enabled bool) Option {
	return func(h *Handler) { h.cors = enabled }
}

func NewHandler(trivia Trivia, users Users, opts ...Option) *Handler {
	h := &Handler{
		trivia: trivia,
		users:  users,
		log:    slog.Default(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes builds the router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(h.observe)
	r.Use(middleware.Recoverer)
	if h.cors {
		r.Use(cors.AllowAll().Handler)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}

	r.Post("/user", h.createUser)
	r.Get("/user/{id}", h.getUser)
	r.Put("/user/{id}", h.updateUser)
	r.Delete("/user/{id}", h.deleteUser)

	r.Get("/question", h.nextQuestion)
	r.Post("/submit_answer", h.submitAnswer)
	r.Post("/answer", h.submitAnswerXML)
	r.Get("/ws", h.serveWS)
	return r
}

// observe logs each request and records its metrics under the matched route pattern.
func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		h.metrics.HTTPRequest(route, r.Method, strconv.Itoa(status), elapsed.Seconds())

		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		h.log.LogAttrs(r.Context(), level, "http request",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("route", route),
			slog.Int("status", status),
			slog.Duration("duration", elapsed))
	})
}
