package domain

import "time"

// WeatherCondition is the weather class the ETA engine works with
type WeatherCondition string

const (
	WeatherClear WeatherCondition = "clear"
	WeatherRain  WeatherCondition = "rain"
	WeatherFog   WeatherCondition = "fog"
	WeatherSnow  WeatherCondition = "snow"
	WeatherStorm WeatherCondition = "storm"
)

// Weather represents weather data for a location
type Weather struct {
	Condition   WeatherCondition `json:"condition"`
	Temperature float64          `json:"temperature"`
	FeelsLike   float64          `json:"feelsLike"`
	Humidity    int              `json:"humidity"`
	Description string           `json:"description"`
	WindSpeed   float64          `json:"windSpeed"`
	Visibility  int              `json:"visibility"`
	City        string           `json:"city"`
	Timestamp   time.Time        `json:"timestamp"`
	IsMock      bool             `json:"isMock"`
}

// Conditions is the combined traffic and weather picture at a location
type Conditions struct {
	Location  GeoPoint  `json:"location"`
	Weather   Weather   `json:"weather"`
	Traffic   Traffic   `json:"traffic"`
	Timestamp time.Time `json:"timestamp"`
}
