// assistant-api resolves free-text French health queries against the public
// medication database, the practitioner directory and regional
// access-to-care statistics, with an LLM fallback for interpretation.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mediflux/assistant-api/cache"
	"github.com/mediflux/assistant-api/classifier"
	"github.com/mediflux/assistant-api/config"
	"github.com/mediflux/assistant-api/data"
	"github.com/mediflux/assistant-api/extractor"
	"github.com/mediflux/assistant-api/formatter"
	"github.com/mediflux/assistant-api/handlers"
	"github.com/mediflux/assistant-api/health"
	"github.com/mediflux/assistant-api/interfaces"
	"github.com/mediflux/assistant-api/llm"
	"github.com/mediflux/assistant-api/logging"
	"github.com/mediflux/assistant-api/orchestrator"
	"github.com/mediflux/assistant-api/profile"
	"github.com/mediflux/assistant-api/scheduler"
	"github.com/mediflux/assistant-api/server"
	"github.com/mediflux/assistant-api/sources"
	"github.com/mediflux/assistant-api/validation"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logging.InitLogger(cfg.LogDir, cfg.LogRetentionWeeks, cfg.MaxLogFileSize, cfg.SlogLevel())
	defer logging.CloseLogger()

	store := data.NewContainer()
	store.SetServerStartTime(time.Now())

	responseCache := cache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer responseCache.Close()

	profiles, err := buildProfileStore(cfg)
	if err != nil {
		return fmt.Errorf("loading profile seed: %w", err)
	}

	llmClient, err := llm.New(llm.Config{
		BaseURL:       cfg.LLMBaseURL,
		APIKey:        cfg.LLMAPIKey,
		Model:         cfg.LLMModel,
		Timeout:       cfg.LLMTimeout,
		RatePerMinute: cfg.LLMRatePerMinute,
	})
	if err != nil {
		return fmt.Errorf("building LLM client: %w", err)
	}
	if cfg.LLMAPIKey == "" {
		logging.Warn("LLM fallback disabled: no API key configured")
	}

	medications := sources.NewBdpmClient(sources.BdpmConfig{
		BaseURL: cfg.BdpmURL,
		Timeout: cfg.SourceTimeout,
	})
	directory := sources.NewAnnuaireClient(sources.AnnuaireConfig{
		BaseURL: cfg.AnnuaireURL,
		APIKey:  cfg.AnnuaireAPIKey,
		Timeout: cfg.SourceTimeout,
	})
	stats := sources.NewOdisseClient(sources.OdisseConfig{
		BaseURL: cfg.OdisseURL,
		Timeout: cfg.SourceTimeout,
	})

	orch := orchestrator.New(orchestrator.Deps{
		Store:       store,
		Extractor:   extractor.New(store),
		Classifier:  classifier.New(llmClient, cfg.ConfidenceFloor),
		Medications: medications,
		Directory:   directory,
		Stats:       stats,
		Profiles:    profiles,
		Cache:       responseCache,
	}, orchestrator.Config{
		SourceTimeout: cfg.SourceTimeout,
		CacheTTL:      cfg.CacheTTL,
		ResultLimit:   cfg.ResultLimit,
	})

	handler := handlers.NewHandler(
		orch,
		formatter.New(),
		validation.NewQueryValidator(),
		medications,
		health.NewHealthChecker(store),
		store,
	)

	// Initial reference load plus the daily 06:00 reload and cache sweeps
	sched := scheduler.NewScheduler(store, responseCache, data.Load, cfg.ReferenceDir)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	srv := server.NewServer(cfg, handler)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-stop:
		logging.Info("Received shutdown signal", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// buildProfileStore returns the seeded store when a seed file is configured,
// an empty one otherwise.
func buildProfileStore(cfg *config.Config) (interfaces.ProfileStore, error) {
	if cfg.ProfileSeed == "" {
		return profile.NewStore(), nil
	}
	return profile.NewStoreFromSeed(cfg.ProfileSeed)
}
