package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	Env             string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	LogLevel  string
	LogFormat string

	DatabaseURL       string
	OpenWeatherAPIKey string
	TomTomAPIKey      string

	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MQTTEnabled       bool
	MQTTBrokerURL     string
	MQTTClientID      string
	MQTTUsername      string
	MQTTPassword      string
	MQTTPositionTopic string
	MQTTAlertTopic    string

	AlertHistorySize int
}

// Load reads an optional .env file and then the process environment.
// It reports whether a .env file was found.
func Load() (*Config, bool) {
	dotenv := godotenv.Load() == nil
	return FromEnv(), dotenv
}

// FromEnv builds a Config from the process environment only
func FromEnv() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("GO_ENV", "development"),
		ReadTimeout:     getDurationEnv("READ_TIMEOUT", 10*time.Second),
		WriteTimeout:    getDurationEnv("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 5*time.Second),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		DatabaseURL:       getEnv("DATABASE_URL", ""),
		OpenWeatherAPIKey: getEnv("OPENWEATHER_API_KEY", ""),
		TomTomAPIKey:      getEnv("TOMTOM_API_KEY", ""),

		RedisEnabled:  getBoolEnv("REDIS_ENABLED", false),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		MQTTEnabled:       getBoolEnv("MQTT_ENABLED", false),
		MQTTBrokerURL:     getEnv("MQTT_BROKER_URL", "mqtt://localhost:1883"),
		MQTTClientID:      getEnv("MQTT_CLIENT_ID", "fleet-backend"),
		MQTTUsername:      getEnv("MQTT_USERNAME", ""),
		MQTTPassword:      getEnv("MQTT_PASSWORD", ""),
		MQTTPositionTopic: getEnv("MQTT_POSITION_TOPIC", "fleet/vehicles/+/position"),
		MQTTAlertTopic:    getEnv("MQTT_ALERT_TOPIC", "fleet/alerts"),

		AlertHistorySize: getIntEnv("ALERT_HISTORY_SIZE", 500),
	}
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}
