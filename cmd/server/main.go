package main

import (
	"context"
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/whist-live/backend/internal/auth"
	"github.com/whist-live/backend/internal/config"
	"github.com/whist-live/backend/internal/httpapi"
	"github.com/whist-live/backend/internal/hub"
	"github.com/whist-live/backend/internal/invite"
	"github.com/whist-live/backend/internal/store"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	if err := store.Migrate(db); err != nil {
		logger.Fatal("migrate database", zap.Error(err))
	}

	games := store.NewGameRepository(db)
	rounds := store.NewRoundRepository(db)
	live := store.NewLiveStore(games, rounds)

	ctx := context.Background()
	h := hub.NewHub(ctx, live, logger)

	var mailer invite.Mailer = invite.NopMailer{}
	if cfg.SMTPHost != "" {
		mailer = invite.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	}

	handler := httpapi.SetupRoutes(httpapi.Deps{
		Hub:      h,
		Games:    games,
		Rounds:   rounds,
		Live:     live,
		Verifier: auth.NewVerifier(cfg.JWTSecret),
		Mailer:   mailer,
		BaseURL:  cfg.AppBaseURL,
		Origins:  cfg.CORSOrigins,
		Log:      logger,
	})

	logger.Info("listening", zap.String("addr", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
