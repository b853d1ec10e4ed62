package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/unclebandit/outreach-backend/internal/controller"
	"github.com/unclebandit/outreach-backend/internal/httputil"
	"github.com/unclebandit/outreach-backend/internal/middleware"
)

type RouterConfig struct {
	JWTSecret      string
	AllowedOrigins string
	RateLimit      int
}

type Handlers struct {
	Campaigns *controller.CampaignController
	Prospects *ProspectHandler
	Accounts  *AccountHandler
	Messages  *MessageHandler
	Auth      *AuthHandler
	DB        *sql.DB
	Redis     *redis.Client
}

func NewRouter(h Handlers, cfg RouterConfig, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(cfg.AllowedOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", health(h.DB, h.Redis))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(h.Redis, cfg.RateLimit, time.Minute))

		r.Post("/auth/login", h.Auth.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret, log))

			r.Get("/prospects", h.Prospects.List)
			r.Post("/prospects", h.Prospects.Create)
			r.Get("/prospects/{id}", h.Prospects.Get)
			r.Patch("/prospects/{id}/status", h.Prospects.UpdateStatus)

			r.Get("/campaigns", h.Campaigns.ListCampaigns)
			r.Post("/campaigns", h.Campaigns.CreateCampaign)
			r.Get("/campaigns/{id}", h.Campaigns.GetCampaignDetails)
			r.Patch("/campaigns/{id}/status", h.Campaigns.UpdateStatus)
			r.Post("/campaigns/{id}/run", h.Campaigns.RunCampaign)
			r.Get("/campaigns/{id}/quota", h.Campaigns.Quota)
			r.Post("/campaigns/{id}/preview", h.Campaigns.PersonalizedPreview)

			r.Get("/accounts", h.Accounts.List)
			r.Post("/accounts", h.Accounts.Create)
			r.Get("/accounts/{id}", h.Accounts.Get)
			r.Patch("/accounts/{id}/status", h.Accounts.UpdateStatus)
			r.Delete("/accounts/{id}", h.Accounts.Delete)

			r.Get("/messages", h.Messages.List)
		})
	})

	return r
}

func health(db *sql.DB, rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				status["status"], status["database"] = "degraded", err.Error()
				code = http.StatusServiceUnavailable
			}
		}
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				status["status"], status["redis"] = "degraded", err.Error()
				code = http.StatusServiceUnavailable
			}
		}
		httputil.JSON(w, code, status)
	}
}
