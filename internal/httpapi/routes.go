package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/whist-live/backend/internal/auth"
	"github.com/whist-live/backend/internal/hub"
	"github.com/whist-live/backend/internal/invite"
	"github.com/whist-live/backend/internal/store"
	"github.com/whist-live/backend/internal/ws"
)

type Deps struct {
	Hub      *hub.Hub
	Games    *store.GameRepository
	Rounds   *store.RoundRepository
	Live     *store.LiveStore
	Verifier *auth.Verifier
	Mailer   invite.Mailer
	BaseURL  string
	Origins  []string
	Log      *zap.Logger
}

func SetupRoutes(d Deps) http.Handler {
	api := &api{d: d}

	r := chi.NewRouter()
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   d.Origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler)

	r.Get("/healthz", Healthz)
	r.Get("/ws/games/{gameID}", ws.Handler(d.Hub, d.Games, d.Live, d.Verifier, d.Log))

	r.Route("/api/v1/games", func(r chi.Router) {
		r.With(d.Verifier.Require).Post("/", api.createGame)
		r.With(d.Verifier.Require).Get("/", api.listGames)
		r.Get("/{gameID}", api.getGame)
		r.Put("/{gameID}", api.updateGame)
		r.Delete("/{gameID}", api.deleteGame)
		r.Get("/{gameID}/rounds", api.listRounds)
		r.With(d.Verifier.Require).Post("/{gameID}/invitations", api.sendInvitation)
	})

	return r
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
