package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/replyflow/replyflow/internal/channels/facebook"
	"github.com/replyflow/replyflow/internal/channels/instagram"
	"github.com/replyflow/replyflow/internal/store"
)

// SessionReader exposes chat sessions for operational inspection. A session
// stuck in processing is the signal that a pipeline run failed.
type SessionReader interface {
	GetSession(ctx context.Context, chatID string) (*store.ChatSession, error)
}

// Config holds router configuration.
type Config struct {
	FacebookWebhook  *facebook.WebhookHandler
	InstagramWebhook *instagram.WebhookHandler
	Sessions         SessionReader
	MetricsHandler   http.Handler
}

// New creates a new Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.Sessions != nil {
		r.Get("/sessions/{chatID}", handleGetSession(cfg.Sessions))
	}

	if cfg.FacebookWebhook != nil {
		r.Route("/webhooks/facebook", func(r chi.Router) {
			r.Get("/", cfg.FacebookWebhook.HandleVerification)
			r.Post("/", cfg.FacebookWebhook.HandleInbound)
		})
	}

	if cfg.InstagramWebhook != nil {
		r.Route("/webhooks/instagram", func(r chi.Router) {
			r.Get("/", cfg.InstagramWebhook.HandleVerification)
			r.Post("/", cfg.InstagramWebhook.HandleInbound)
		})
	}

	return r
}

type sessionResponse struct {
	ID          string                 `json:"id"`
	ChatID      string                 `json:"chat_id"`
	Status      string                 `json:"status"`
	ChannelType string                 `json:"channel_type"`
	UserRole    string                 `json:"user_role"`
	Messages    []store.SessionMessage `json:"messages"`
}

func handleGetSession(sessions SessionReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chatID := chi.URLParam(r, "chatID")
		sess, err := sessions.GetSession(r.Context(), chatID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "Not Found", http.StatusNotFound)
				return
			}
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(sessionResponse{
			ID:          sess.ID.String(),
			ChatID:      sess.ChatID,
			Status:      sess.Status,
			ChannelType: sess.ChannelType,
			UserRole:    sess.UserRole,
			Messages:    sess.Messages,
		})
	}
}
