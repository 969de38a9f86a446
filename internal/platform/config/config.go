package config

import (
	"os"
	"strconv"
	"strings"
)

// Service captures process-level configuration for the enrichment service.
type Service struct {
	Addr           string
	GeocodeBaseURL string
	GeocodeAPIKey  string
	DatabaseURL    string
	RedisURL       string
	KafkaBrokers   []string
	KafkaTopic     string
	KafkaGroup     string
	WatchMode      string // "kafka" or "memory"
	MaxConcurrent  int
}

// FromEnv builds a Service config from environment variables so main stays lean.
func FromEnv() Service {
	addr := os.Getenv("GEOFLOW_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	baseURL := os.Getenv("GEOCODE_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.openweathermap.org"
	}

	topic := os.Getenv("KAFKA_TOPIC")
	if topic == "" {
		topic = "users.changes"
	}
	group := os.Getenv("KAFKA_GROUP")
	if group == "" {
		group = "geoflow-enricher"
	}

	mode := os.Getenv("WATCH_MODE")
	if mode == "" {
		mode = "kafka"
	}

	maxConcurrent := 5
	if raw := os.Getenv("MAX_CONCURRENT_RUNS"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			maxConcurrent = n
		}
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	return Service{
		Addr:           addr,
		GeocodeBaseURL: baseURL,
		GeocodeAPIKey:  os.Getenv("OPENWEATHER_API_KEY"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		KafkaBrokers:   brokers,
		KafkaTopic:     topic,
		KafkaGroup:     group,
		WatchMode:      mode,
		MaxConcurrent:  maxConcurrent,
	}
}
