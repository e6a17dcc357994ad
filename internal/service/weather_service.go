package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fleetcore/backend/internal/domain"
)

const openWeatherBaseURL = "https://api.openweathermap.org/data/2.5/weather"

// stormWindSpeed is the wind speed (m/s) treated as a storm regardless of sky
const stormWindSpeed = 17.0

// WeatherProvider reports the weather at a point
type WeatherProvider interface {
	CurrentWeather(ctx context.Context, at domain.GeoPoint) (domain.Weather, error)
}

// WeatherService handles weather data fetching
type WeatherService struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// NewWeatherService creates a new weather service
func NewWeatherService(apiKey string) *WeatherService {
	return &WeatherService{
		apiKey:  apiKey,
		baseURL: openWeatherBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		now: time.Now,
	}
}

// OpenWeatherResponse represents the OpenWeatherMap API response
type OpenWeatherResponse struct {
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Visibility int    `json:"visibility"`
	Name       string `json:"name"`
}

// CurrentWeather fetches current weather at a point
func (s *WeatherService) CurrentWeather(ctx context.Context, at domain.GeoPoint) (domain.Weather, error) {
	// Return mock data if no API key
	if s.apiKey == "" {
		return s.getMockWeather(), nil
	}

	url := fmt.Sprintf("%s?lat=%f&lon=%f&appid=%s&units=metric", s.baseURL, at.Lat, at.Lng, s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Weather{}, fmt.Errorf("weather: failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		// Fallback to mock on network error
		return s.getMockWeather(), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return s.getMockWeather(), nil
	}

	var owResp OpenWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&owResp); err != nil {
		return domain.Weather{}, fmt.Errorf("weather: failed to decode response: %w", err)
	}

	weather := domain.Weather{
		Condition:   domain.WeatherClear,
		Temperature: owResp.Main.Temp,
		FeelsLike:   owResp.Main.FeelsLike,
		Humidity:    owResp.Main.Humidity,
		WindSpeed:   owResp.Wind.Speed,
		Visibility:  owResp.Visibility,
		City:        owResp.Name,
		Timestamp:   s.now(),
	}

	if len(owResp.Weather) > 0 {
		weather.Description = owResp.Weather[0].Description
		weather.Condition = classifyWeather(owResp.Weather[0].Main)
	}
	if weather.WindSpeed >= stormWindSpeed {
		weather.Condition = domain.WeatherStorm
	}

	return weather, nil
}

// classifyWeather maps OpenWeatherMap's "main" group onto the ETA classes
func classifyWeather(group string) domain.WeatherCondition {
	switch strings.ToLower(group) {
	case "thunderstorm", "tornado", "squall":
		return domain.WeatherStorm
	case "snow":
		return domain.WeatherSnow
	case "rain", "drizzle":
		return domain.WeatherRain
	case "mist", "fog", "haze", "smoke", "dust", "sand", "ash":
		return domain.WeatherFog
	default:
		return domain.WeatherClear
	}
}

// getMockWeather returns seasonal weather when the API is unavailable
func (s *WeatherService) getMockWeather() domain.Weather {
	month := s.now().Month()
	var temp, feelsLike float64
	var description string
	condition := domain.WeatherClear

	switch {
	case month >= 12 || month <= 2: // Winter
		temp = -2.0
		feelsLike = -7.0
		description = "Light snow"
		condition = domain.WeatherSnow
	case month >= 3 && month <= 5: // Spring
		temp = 16.0
		feelsLike = 15.0
		description = "Light rain"
		condition = domain.WeatherRain
	case month >= 6 && month <= 8: // Summer
		temp = 30.0
		feelsLike = 32.0
		description = "Clear sky"
	default: // Autumn
		temp = 12.0
		feelsLike = 10.0
		description = "Overcast clouds"
	}

	return domain.Weather{
		Condition:   condition,
		Temperature: temp,
		FeelsLike:   feelsLike,
		Humidity:    65,
		Description: description,
		WindSpeed:   3.5,
		Visibility:  8000,
		Timestamp:   s.now(),
		IsMock:      true,
	}
}
