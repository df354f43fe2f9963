package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/secmon-lab/briareus/pkg/usecase"
)

// Server is the HTTP surface over the sync engine: status reads and sync
// triggers consumed by operators and the UI
type Server struct {
	router *chi.Mux
	uc     *usecase.UseCases
}

// Options is a functional option for Server configuration
type Options func(*Server)

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		uc:     uc,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/workspaces", workspacesHandler(uc.Sync))

		r.Route("/sync/{workspaceID}", func(r chi.Router) {
			r.Get("/status", statusHandler(uc.Sync))
			r.Post("/start", startSyncHandler(uc.Sync))

			r.Route("/channels/{channelID}", func(r chi.Router) {
				r.Get("/", channelStatusHandler(uc.Sync))
				r.Get("/messages", channelMessagesHandler(uc.Sync))
				r.Post("/sync", syncChannelHandler(uc.Sync))
				r.Patch("/active", channelActiveHandler(uc.Sync))
			})
		})
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
