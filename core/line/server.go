package line

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/m3rciful/choicebot/core/answer"
	"github.com/m3rciful/choicebot/core/logger"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// EventHandler processes one normalized inbound event.
type EventHandler interface {
	Handle(ctx context.Context, ev answer.Event) error
}

// Server exposes the LINE webhook and health endpoints.
type Server struct {
	secret  string
	handler EventHandler
	mux     *http.ServeMux
}

// NewServer builds the webhook routes. secret verifies X-Line-Signature.
func NewServer(secret string, handler EventHandler) *Server {
	s := &Server{secret: secret, handler: handler, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /callback", s.handleWebhook)
	s.mux.HandleFunc("POST /webhook", s.handleWebhook)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	s.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "LINE webhook is running.")
	})
	return s
}

// Handler returns the routes wrapped with panic recovery and access logging.
func (s *Server) Handler() http.Handler {
	return recoverMiddleware(accessLog(s.mux))
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(_ net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info(ctx, "http", "server.listen",
		slog.String("status", "ok"),
		slog.String("listen", addr),
	)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("line: serve %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("line: shutdown: %w", err)
	}
	logger.Info(ctx, "http", "server.stop", slog.String("status", "ok"))
	return nil
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cb, err := webhook.ParseRequest(s.secret, r)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			logger.Warn(ctx, "http", "webhook.reject",
				slog.String("status", "reject"),
				slog.Int("http_code", http.StatusUnauthorized),
				slog.String("err", err.Error()),
			)
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
		logger.Error(ctx, "http", "webhook.parse",
			slog.String("status", "fail"),
			slog.Int("http_code", http.StatusInternalServerError),
			slog.String("err", err.Error()),
		)
		http.Error(w, "failed to parse webhook", http.StatusInternalServerError)
		return
	}

	for _, ev := range cb.Events {
		s.dispatch(ctx, ev)
	}
	_, _ = io.WriteString(w, "OK")
}

// dispatch runs one event; failures are logged and never change the HTTP status.
func (s *Server) dispatch(ctx context.Context, ev webhook.EventInterface) {
	msg, ok := TextEvent(ev)
	if !ok {
		logger.Debug(ctx, "line", "event.ignored",
			slog.String("status", "skip"),
			slog.String("event_type", eventType(ev)),
		)
		return
	}
	if logger.ShouldSampleDebug() {
		logger.Debug(ctx, "line", "event.received",
			slog.String("status", "ok"),
			slog.String("user_id", msg.UserID),
			slog.String("event_id", msg.EventID),
			slog.String("payload", logger.SanitizeLimit(msg.Text, 256)),
		)
	}
	if err := s.handler.Handle(ctx, msg); err != nil {
		logger.Error(ctx, "line", "event.failed",
			slog.String("status", "fail"),
			slog.String("user_id", msg.UserID),
			slog.String("event_id", msg.EventID),
			slog.String("err", err.Error()),
		)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logger.WithRID(r.Context(), logger.NewRID())
		ctx = logger.WithLogger(ctx, logger.Component("http"))
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}

		next.ServeHTTP(rec, r.WithContext(ctx))

		level := slog.LevelDebug
		status := "ok"
		if rec.code >= http.StatusBadRequest {
			level = slog.LevelWarn
			status = "fail"
		}
		logger.Event(ctx, "http", level, "http.request",
			slog.String("status", status),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("http_code", rec.code),
			slog.Duration("duration", logger.Took(start)),
		)
	})
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error(r.Context(), "http", "http.panic",
					slog.String("status", "fail"),
					slog.String("path", r.URL.Path),
					slog.Any("err", rec),
					slog.String("stack", string(debug.Stack())),
				)
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
