package weather

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const puneJSON = `{"name":"Pune","coord":{"lat":18.52,"lon":73.86},
	"main":{"temp":34.2,"feels_like":36,"humidity":40},
	"weather":[{"main":"Clear","description":"clear sky"}],"wind":{"speed":3.1}}`

func TestGetWeather(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weather", r.URL.Path)
		assert.Equal(t, "18.52", r.URL.Query().Get("lat"))
		assert.Equal(t, "73.86", r.URL.Query().Get("lon"))
		assert.Equal(t, "k", r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		_, _ = w.Write([]byte(puneJSON))
	}))
	defer srv.Close()

	r, err := NewClient("k", srv.URL).GetWeather(context.Background(), 18.52, 73.86)
	require.NoError(t, err)
	assert.Equal(t, "Pune", r.Name)
	assert.Equal(t, 40, r.Main.Humidity)
	assert.Equal(t, "Weather in Pune: 34.2°C, humidity 40%, clear sky (hot weather)", r.Summary())
}

func TestGetWeatherByCity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "Pune,IN" {
			http.Error(w, `{"message":"city not found"}`, http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(puneJSON))
	}))
	defer srv.Close()

	c := NewClient("k", srv.URL)
	_, err := c.GetWeatherByCity(context.Background(), "Pune,IN")
	require.NoError(t, err)

	_, err = c.GetWeatherByCity(context.Background(), "Atlantis")
	assert.ErrorContains(t, err, "404")
}

func TestInvalidLocation(t *testing.T) {
	c := NewClient("k", "http://127.0.0.1:1")
	_, err := c.GetWeather(context.Background(), 91, 0)
	assert.ErrorIs(t, err, ErrInvalidLocation)
	_, err = c.GetWeather(context.Background(), math.NaN(), 0)
	assert.ErrorIs(t, err, ErrInvalidLocation)
	_, err = c.GetWeather(context.Background(), 0, math.Inf(1))
	assert.ErrorIs(t, err, ErrInvalidLocation)
	_, err = c.GetWeatherByCity(context.Background(), " ")
	assert.ErrorIs(t, err, ErrInvalidLocation)

	_, err = NewClient("", "").GetWeather(context.Background(), 10, 10)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSummary(t *testing.T) {
	var r Report
	r.Main.Temp = 12
	r.Main.Humidity = 85
	r.Weather = append(r.Weather, struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	}{Main: "Rain", Description: "light rain"})

	assert.Equal(t, "Weather: 12.0°C, humidity 85%, light rain (cold weather, humid, rainy)", r.Summary())
}

func TestTransportErrorHidesAPIKey(t *testing.T) {
	_, err := NewClient("SECRET-KEY-123", "http://127.0.0.1:1").GetWeatherByCity(context.Background(), "Pune")
	require.ErrorIs(t, err, ErrBackend)
	assert.NotContains(t, err.Error(), "SECRET-KEY-123")
}

func TestMalformedBodyIsBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":`))
	}))
	defer srv.Close()

	_, err := NewClient("k", srv.URL).GetWeatherByCity(context.Background(), "Pune")
	assert.ErrorIs(t, err, ErrBackend)
}
