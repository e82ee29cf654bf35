/*
Package server implements the application's network transport layer.
It initializes the HTTP server, configures timeouts, and exposes the nutrition
lookups, dosha analysis and generation flows over JSON.
*/
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"AyurAhar_V1/internal/config"
	"AyurAhar_V1/internal/dietplan"
	"AyurAhar_V1/internal/dosha"
	"AyurAhar_V1/internal/nutrition"
	"AyurAhar_V1/internal/weather"
)

// PlanService is the generation core used by the handlers.
type PlanService interface {
	Generate(ctx context.Context, req dietplan.Request) (*dietplan.Result, error)
	SuggestAlternatives(ctx context.Context, foodName, reason string) ([]dietplan.Alternative, error)
	GenerateMealTimings(ctx context.Context, doshaType, dailyRoutine string) (*dietplan.MealTimingSchedule, error)
}

// SpeechService forwards audio requests.
type SpeechService interface {
	TextToSpeech(ctx context.Context, text, languageCode, voiceName string) ([]byte, error)
	SpeechToText(ctx context.Context, audio []byte, languageCode string) (string, error)
}

// WeatherService looks up current conditions.
type WeatherService interface {
	GetWeather(ctx context.Context, lat, lon float64) (*weather.Report, error)
	GetWeatherByCity(ctx context.Context, city string) (*weather.Report, error)
}

// Dependencies are the services the handlers are wired to. Speech and Weather
// may be nil, in which case their routes answer 503.
type Dependencies struct {
	Store      nutrition.Store
	Classifier *dosha.Classifier
	Plans      PlanService
	Speech     SpeechService
	Weather    WeatherService
}

// Server defines the configuration and dependencies for the HTTP service.
type Server struct {
	// port specifies the TCP port the server will listen on.
	port int

	// rateLimit is the per-client request rate on generation routes; 0 disables it.
	rateLimit float64

	// trustedProxies are the hops allowed to report the client address in X-Forwarded-For.
	trustedProxies []*net.IPNet

	store      nutrition.Store
	classifier *dosha.Classifier
	plans      PlanService
	speech     SpeechService
	weather    WeatherService
}

// NewServer builds the Server and returns a configured *http.Server.
func NewServer(cfg *config.Config, deps Dependencies) *http.Server {
	newApp := &Server{
		port:           cfg.Port,
		rateLimit:      cfg.RateLimitRPS,
		trustedProxies: cfg.TrustedProxies,
		store:          deps.Store,
		classifier:     deps.Classifier,
		plans:          deps.Plans,
		speech:         deps.Speech,
		weather:        deps.Weather,
	}

	// Writes must outlast a full generation call.
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", newApp.port),
		Handler:      newApp.RegisterRoutes(), // Injected from routes.go
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.GenerationTimeout + 15*time.Second,
	}

	return server
}
