package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/gdg-garage/ecsnova-registration-api/internal/auth"
	"github.com/gdg-garage/ecsnova-registration-api/internal/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type HealthOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

type EventsOutput struct {
	Body struct {
		Events []string `json:"events"`
	}
}

func RegisterRoutes(
	r *chi.Mux,
	cfg *config.Config,
	authHandler *auth.AuthHandler,
	registrationHandler *RegistrationHandler,
	uploadHandler *UploadHandler,
	metricsHandler http.Handler,
) huma.API {
	huma.NewError = newError

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestSize(cfg.MaxUploadBytes))
	if cfg.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Initialize Huma API
	humaConfig := huma.DefaultConfig("ECS Nova Registration API", "1.0.0")
	// Response bodies carry only their documented fields, no "$schema" link.
	humaConfig.CreateHooks = nil
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"cookieAuth": {
			Type: "apiKey",
			In:   "cookie",
			Name: auth.CookieName,
		},
		"bearerAuth": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}
	api := humachi.New(r, humaConfig)

	protected := func(o *huma.Operation) {
		o.Security = []map[string][]string{{"cookieAuth": {}}, {"bearerAuth": {}}}
		o.Middlewares = append(o.Middlewares, authHandler.RequireSession(api))
	}

	// Public routes
	huma.Get(api, "/health", func(ctx context.Context, input *struct{}) (*HealthOutput, error) {
		res := &HealthOutput{}
		res.Body.Status = "Server is running"
		return res, nil
	})
	huma.Get(api, "/api/events", func(ctx context.Context, input *struct{}) (*EventsOutput, error) {
		res := &EventsOutput{}
		res.Body.Events = cfg.Events
		return res, nil
	})
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	huma.Post(api, "/api/upload", uploadHandler.HandleUpload, func(o *huma.Operation) {
		o.MaxBodyBytes = cfg.MaxUploadBytes
	})
	r.Get("/uploads/{name}", uploadHandler.HandleServe)

	huma.Post(api, "/api/register", registrationHandler.HandleRegister, func(o *huma.Operation) {
		o.DefaultStatus = http.StatusCreated
	})

	// Dashboard session
	huma.Post(api, "/api/dashboard/login", authHandler.HandleLogin)
	huma.Post(api, "/api/dashboard/logout", authHandler.HandleLogout, func(o *huma.Operation) {
		o.DefaultStatus = http.StatusNoContent
	})
	huma.Get(api, "/api/dashboard/me", authHandler.HandleMe, protected)

	if cfg.DiscordLoginEnabled() {
		r.Get("/auth/discord/login", authHandler.HandleDiscordLogin)
		r.Get("/auth/discord/callback", authHandler.HandleDiscordCallback)
	}

	// Protected routes
	huma.Get(api, "/api/registrations", registrationHandler.HandleList, protected)
	huma.Get(api, "/api/registrations/{id}", registrationHandler.HandleGet, protected)

	return api
}
