package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/shopdesk/backend/internal/handler/chat"
	"github.com/zhouzirui/shopdesk/backend/internal/handler/tools"
	middlewarePkg "github.com/zhouzirui/shopdesk/backend/internal/middleware"
	"github.com/zhouzirui/shopdesk/backend/pkg/utils"
)

// Deps are the services exposed over HTTP.
type Deps struct {
	Runner     chat.Runner
	Transcript chat.Transcript
	Catalogue  tools.Catalogue
	Verifier   middlewarePkg.TokenVerifier
	Logger     zerolog.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		tools.New(deps.Catalogue).RegisterRoutes(api)

		api.Group(func(secured chi.Router) {
			secured.Use(middlewarePkg.Auth(deps.Verifier, deps.Logger))

			if deps.Runner == nil {
				secured.Post("/chat", func(w http.ResponseWriter, r *http.Request) {
					utils.RespondError(w, http.StatusServiceUnavailable, "assistant unavailable")
				})
				return
			}
			chat.New(deps.Runner, deps.Transcript, deps.Logger).RegisterRoutes(secured)
		})
	})

	return r
}
