package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"AyurAhar_V1/internal/config"
	"AyurAhar_V1/internal/dietplan"
	"AyurAhar_V1/internal/dosha"
	"AyurAhar_V1/internal/geminiservice"
	"AyurAhar_V1/internal/nutrition"
	"AyurAhar_V1/internal/policy"
	"AyurAhar_V1/internal/server"
	"AyurAhar_V1/internal/speech"
	"AyurAhar_V1/internal/weather"
	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Info().Msg("shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown with error")
	}

	log.Info().Msg("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func setupLogging(cfg *config.Config) {
	zerolog.SetGlobalLevel(cfg.LogLevel)
	if cfg.IsLocal() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	// Code that logs through a context without a request logger falls back to the global one.
	zerolog.DefaultContextLogger = &log.Logger
}

// openStore opens the configured reference store. Failure here is fatal: the
// service cannot enrich plans without it.
func openStore(ctx context.Context, cfg *config.Config) (nutrition.Store, error) {
	var (
		inner nutrition.Store
		err   error
	)
	switch cfg.NutritionDriver {
	case "postgres":
		inner, err = nutrition.OpenPostgres(ctx, cfg.NutritionDBURL)
	default:
		inner, err = nutrition.OpenSQLite(ctx, cfg.NutritionDBPath)
	}
	if err != nil {
		return nil, err
	}

	if cfg.NutritionCacheSize <= 0 {
		return inner, nil
	}
	cached, err := nutrition.NewCachedStore(inner, cfg.NutritionCacheSize)
	if err != nil {
		inner.Close()
		return nil, err
	}
	return cached, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	setupLogging(cfg)

	startupCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	store, err := openStore(startupCtx, cfg)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.NutritionDriver).Msg("Unable to open nutrition reference store")
	}
	defer store.Close()

	classifier, err := dosha.NewClassifier()
	if err != nil {
		log.Fatal().Err(err).Msg("Unable to load dosha weight table")
	}
	policies, err := policy.NewSelector()
	if err != nil {
		log.Fatal().Err(err).Msg("Unable to load dietary guideline corpus")
	}

	if cfg.GeminiAPIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set; generation routes will answer 503")
	}
	backend := geminiservice.NewClient(geminiservice.Config{
		APIKey:     cfg.GeminiAPIKey,
		Model:      cfg.GeminiModel,
		BaseURL:    cfg.GeminiBaseURL,
		MaxRetries: cfg.GeminiMaxRetries,
	})

	plans := dietplan.NewSynthesizer(store, policies, backend, dietplan.Options{
		MaxNutritionRecords:  cfg.MaxNutritionRecords,
		MaxPolicyExcerpts:    cfg.MaxPolicyExcerpts,
		MaxAlternatives:      cfg.MaxAlternatives,
		Timeout:              cfg.GenerationTimeout,
		ReportUnmatchedFoods: cfg.ReportUnmatchedFoods,
	})

	deps := server.Dependencies{
		Store:      store,
		Classifier: classifier,
		Plans:      plans,
	}
	if cfg.SpeechAPIKey != "" {
		deps.Speech = speech.NewClient(cfg.SpeechAPIKey)
	}
	if cfg.WeatherAPIKey != "" {
		deps.Weather = weather.NewClient(cfg.WeatherAPIKey, "")
	}

	apiServer := server.NewServer(cfg, deps)

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(apiServer, done)

	log.Info().
		Int("port", cfg.Port).
		Str("env", cfg.AppEnv).
		Str("store", cfg.NutritionDriver).
		Int("policy_corpus_version", policies.Version()).
		Msg("Starting diet plan service")

	err = apiServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Info().Msg("Graceful shutdown complete.")
}
