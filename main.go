package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"quizslot/internal/api"
	"quizslot/internal/auth"
	"quizslot/internal/choice"
	"quizslot/internal/config"
	"quizslot/internal/control"
	"quizslot/internal/database"
	"quizslot/internal/events"
	"quizslot/internal/game"
	"quizslot/internal/question"
	"quizslot/internal/ranking"
	"quizslot/internal/reel"
	"quizslot/internal/rng"
)

func main() {
	// Missing .env is fine; the environment may be set directly.
	godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	cfg := config.Load()

	db, err := database.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	rngSvc := rng.New()
	eventSvc := events.New(db.DB)
	controlSvc := control.New(eventSvc)
	rankingSvc := ranking.New(db.DB)

	authSvc, err := auth.New(db.DB, &cfg.Auth, eventSvc)
	if err != nil {
		logger.Fatal("failed to initialize auth", zap.Error(err))
	}

	store := question.NewStore()
	selector := question.NewSelector(rngSvc, cfg.Game.MaxAttempts)
	mapper := reel.NewMapper(reel.Config{
		SymbolHeight: cfg.Game.SymbolHeight,
		VisibleRows:  cfg.Game.VisibleRows,
		CycleSymbols: cfg.Game.CycleSymbols,
		SpinInterval: cfg.Game.SpinInterval,
	}, rngSvc)
	builder := choice.NewBuilder(rngSvc)

	engine := game.New(db.DB, store, selector, mapper, builder,
		rankingSvc, eventSvc, controlSvc, cfg.Game.HistorySize, logger)

	if n, err := engine.LoadWorkbook(context.Background(), cfg.Game.WorkbookPath); err != nil {
		logger.Warn("starting without question content",
			zap.String("path", cfg.Game.WorkbookPath), zap.Error(err))
	} else {
		logger.Info("question content ready", zap.Int("questions", n))
	}

	handler := api.New(authSvc, engine, rankingSvc, eventSvc, controlSvc,
		rngSvc, cfg.Game.WorkbookPath, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler.SetupRouter(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("quizslot host listening", zap.String("port", cfg.Server.Port))
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
