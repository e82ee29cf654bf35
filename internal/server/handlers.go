package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"AyurAhar_V1/internal/dietplan"
	"AyurAhar_V1/internal/dosha"
	"AyurAhar_V1/internal/geminiservice"
	"AyurAhar_V1/internal/nutrition"
	"AyurAhar_V1/internal/speech"
	"AyurAhar_V1/internal/utility"
	"AyurAhar_V1/internal/weather"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// maxAudioSize bounds uploads to the speech-to-text route.
const maxAudioSize = 10 * 1024 * 1024

/* ====================================================================
                   		Nutrition Reference
==================================================================== */

func (s *Server) searchNutritionHandler(c echo.Context) error {
	q := c.QueryParam("q")
	records, err := s.store.FindByName(c.Request().Context(), q)
	if err != nil {
		return s.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"query":   q,
		"count":   len(records),
		"results": records,
	})
}

func (s *Server) nutrientRangeHandler(c echo.Context) error {
	key := c.QueryParam("nutrient")
	min, errMin := strconv.ParseFloat(c.QueryParam("min"), 64)
	max, errMax := strconv.ParseFloat(c.QueryParam("max"), 64)
	if key == "" || errMin != nil || errMax != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "nutrient, min and max are required; min and max must be numbers"})
	}
	if min > max {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "min must not exceed max"})
	}

	records, err := s.store.FindByNutrientRange(c.Request().Context(), key, min, max)
	if err != nil {
		return s.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"nutrient": key,
		"count":    len(records),
		"results":  records,
	})
}

func (s *Server) getNutritionHandler(c echo.Context) error {
	code := c.Param("code")
	rec, found, err := s.store.FindByCode(c.Request().Context(), code)
	if err != nil {
		return s.errorResponse(c, err)
	}
	if !found {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "food not found"})
	}
	return c.JSON(http.StatusOK, rec)
}

/* ====================================================================
                   		Dosha Analysis
==================================================================== */

type analyzeDoshaRequest struct {
	Symptoms        []string `json:"symptoms"`
	Characteristics []string `json:"characteristics"`
	Preferences     []string `json:"preferences"`
}

func (s *Server) analyzeDoshaHandler(c echo.Context) error {
	var req analyzeDoshaRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	return c.JSON(http.StatusOK, s.classifier.Analyze(req.Symptoms, req.Characteristics, req.Preferences))
}

/* ====================================================================
                   		Generation Flows
==================================================================== */

type location struct {
	Lat  *float64 `json:"lat"`
	Lon  *float64 `json:"lon"`
	City string   `json:"city"`
}

type dietPlanRequest struct {
	dietplan.Request
	// Location, when set and no environment is given, is used to fetch the weather.
	Location *location `json:"location,omitempty"`
}

type dietPlanResponse struct {
	PlanID      string    `json:"plan_id"`
	GeneratedAt time.Time `json:"generated_at"`
	*dietplan.Result
}

func (s *Server) generateDietPlanHandler(c echo.Context) error {
	var req dietPlanRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	if req.Location != nil && req.Environment == "" {
		req.Environment = s.environmentFor(c, req.Location)
	}

	result, err := s.plans.Generate(c.Request().Context(), req.Request)
	if err != nil {
		return s.errorResponse(c, err)
	}

	planID := uuid.New().String()
	utility.Logger(c).Info().
		Str("plan_id", planID).
		Int("nutrition_records", len(result.NutritionalData)).
		Int("warnings", len(result.Warnings)).
		Msg("Diet plan generated")

	return c.JSON(http.StatusOK, dietPlanResponse{
		PlanID:      planID,
		GeneratedAt: time.Now().UTC(),
		Result:      result,
	})
}

// environmentFor fetches the weather summary for loc. Failures only cost the
// plan its weather context.
func (s *Server) environmentFor(c echo.Context, loc *location) string {
	if s.weather == nil {
		return ""
	}
	ctx := c.Request().Context()

	var (
		report *weather.Report
		err    error
	)
	switch {
	case loc.Lat != nil && loc.Lon != nil:
		report, err = s.weather.GetWeather(ctx, *loc.Lat, *loc.Lon)
	case loc.City != "":
		report, err = s.weather.GetWeatherByCity(ctx, loc.City)
	default:
		return ""
	}
	if err != nil {
		utility.Logger(c).Warn().Err(err).Msg("Weather lookup failed, generating without environment context")
		return ""
	}
	return report.Summary()
}

type alternativesRequest struct {
	FoodName string `json:"food_name"`
	Reason   string `json:"reason"`
}

func (s *Server) suggestAlternativesHandler(c echo.Context) error {
	var req alternativesRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	alts, err := s.plans.SuggestAlternatives(c.Request().Context(), req.FoodName, req.Reason)
	if errors.Is(err, dietplan.ErrNoAlternativesFound) {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"food_name":    req.FoodName,
			"alternatives": []dietplan.Alternative{},
			"message":      "No alternatives found for this food",
		})
	}
	if err != nil {
		return s.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"food_name":    req.FoodName,
		"alternatives": alts,
	})
}

type mealTimingsRequest struct {
	DoshaType    string `json:"dosha_type"`
	DailyRoutine string `json:"daily_routine"`
}

func (s *Server) mealTimingsHandler(c echo.Context) error {
	var req mealTimingsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	schedule, err := s.plans.GenerateMealTimings(c.Request().Context(), req.DoshaType, req.DailyRoutine)
	if err != nil {
		return s.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, schedule)
}

/* ====================================================================
                   		Speech & Weather Pass-through
==================================================================== */

type ttsRequest struct {
	Text         string `json:"text"`
	LanguageCode string `json:"language_code"`
	VoiceName    string `json:"voice_name"`
}

func (s *Server) textToSpeechHandler(c echo.Context) error {
	if s.speech == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "speech service is not configured"})
	}
	var req ttsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	audio, err := s.speech.TextToSpeech(c.Request().Context(), req.Text, req.LanguageCode, req.VoiceName)
	if err != nil {
		return s.errorResponse(c, err)
	}
	return c.Blob(http.StatusOK, "audio/mpeg", audio)
}

func (s *Server) speechToTextHandler(c echo.Context) error {
	if s.speech == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "speech service is not configured"})
	}

	audio, err := io.ReadAll(io.LimitReader(c.Request().Body, maxAudioSize+1))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to read audio"})
	}
	if len(audio) > maxAudioSize {
		return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{"error": "audio exceeds 10MB"})
	}

	text, err := s.speech.SpeechToText(c.Request().Context(), audio, c.QueryParam("language_code"))
	if err != nil {
		return s.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"text": text})
}

func (s *Server) weatherHandler(c echo.Context) error {
	if s.weather == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "weather service is not configured"})
	}
	ctx := c.Request().Context()

	var (
		report *weather.Report
		err    error
	)
	if city := strings.TrimSpace(c.QueryParam("city")); city != "" {
		report, err = s.weather.GetWeatherByCity(ctx, city)
	} else {
		lat, errLat := strconv.ParseFloat(c.QueryParam("lat"), 64)
		lon, errLon := strconv.ParseFloat(c.QueryParam("lon"), 64)
		if errLat != nil || errLon != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "provide city, or numeric lat and lon"})
		}
		report, err = s.weather.GetWeather(ctx, lat, lon)
	}
	if err != nil {
		return s.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"summary": report.Summary(),
		"report":  report,
	})
}

/* ====================================================================
                   		Error Mapping
==================================================================== */

// errorResponse maps domain errors onto HTTP statuses.
func (s *Server) errorResponse(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	msg := "internal server error"

	switch {
	case errors.Is(err, nutrition.ErrInvalidNutrientKey),
		errors.Is(err, dosha.ErrInvalidDoshaType),
		errors.Is(err, dietplan.ErrMissingFood),
		errors.Is(err, speech.ErrEmptyInput),
		errors.Is(err, weather.ErrInvalidLocation):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, geminiservice.ErrNotConfigured),
		errors.Is(err, speech.ErrNotConfigured),
		errors.Is(err, weather.ErrNotConfigured):
		status, msg = http.StatusServiceUnavailable, "backend service is not configured"
	case errors.Is(err, nutrition.ErrStoreUnavailable):
		status, msg = http.StatusServiceUnavailable, "nutrition reference store is unavailable"
	case errors.Is(err, dietplan.ErrGenerationContractViolation):
		status, msg = http.StatusBadGateway, "generation backend returned an invalid response"
	case errors.Is(err, dietplan.ErrGenerationBackend):
		status, msg = http.StatusBadGateway, "generation backend is unavailable"
	case errors.Is(err, speech.ErrEmptyResult):
		status, msg = http.StatusBadGateway, err.Error()
	case errors.Is(err, speech.ErrBackend), errors.Is(err, weather.ErrBackend):
		status, msg = http.StatusBadGateway, "upstream service is unavailable"
	}

	body := map[string]string{"error": msg}
	logger := utility.Logger(c)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", status).Msg("Request failed")
		// Lets the caller quote the id when reporting the failure.
		body["request_id"] = utility.RequestID(c)
	} else {
		logger.Info().Err(err).Int("status", status).Msg("Request rejected")
	}
	return c.JSON(status, body)
}
