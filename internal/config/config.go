package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"tiledesk-relay/internal/hours"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	LogLevel         string
	HTTPListenAddr   string
	MetricsNamespace string

	// BotCredentials maps bot id to that bot's Dialogflow service-account
	// JSON. Loaded once at startup; handlers never touch the environment.
	BotCredentials      map[string]string
	DialogflowLanguage  string
	DialogflowTimeout   time.Duration
	MaxFallbacks        int
	ConfidenceThreshold float64

	AgentIntent   string
	BusinessHours hours.Policy
	// HoursOffset shifts the wall clock before business-hours evaluation.
	// The upstream deployment ran one hour behind the business timezone.
	HoursOffset  time.Duration
	ContactURLEN string
	ContactURLIT string

	TiledeskAPIURL  string
	TiledeskTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTLS      bool
	SessionTTL    time.Duration
}

// Load returns configuration populated from environment variables with fallbacks.
func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:             getenvDefault("APP_ENV", "development"),
		LogLevel:           getenvDefault("LOG_LEVEL", "info"),
		HTTPListenAddr:     getenvDefault("HTTP_LISTEN_ADDR", ":3000"),
		MetricsNamespace:   getenvDefault("METRICS_NAMESPACE", "tiledesk_relay"),
		DialogflowLanguage: getenvDefault("DIALOGFLOW_LANGUAGE", "en"),
		AgentIntent:        getenvDefault("AGENT_INTENT", "talk to agent"),
		ContactURLEN:       getenvDefault("CONTACT_URL_EN", "https://netvalue.eu/en/contact-us/"),
		ContactURLIT:       getenvDefault("CONTACT_URL_IT", "https://netvalue.eu/contatti/"),
		TiledeskAPIURL:     getenvDefault("TILEDESK_API_URL", "https://api.tiledesk.com/v2"),
		RedisAddr:          trimmedEnv("REDIS_ADDR"),
		RedisPassword:      trimmedEnv("REDIS_PASSWORD"),
	}

	var err error
	if cfg.DialogflowTimeout, err = durationEnv("DIALOGFLOW_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.TiledeskTimeout, err = durationEnv("TILEDESK_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.HoursOffset, err = durationEnv("BUSINESS_HOURS_OFFSET", "1h"); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = durationEnv("SESSION_TTL", "24h"); err != nil {
		return nil, err
	}

	maxFallbacksStr := getenvDefault("MAX_FALLBACKS", "4")
	if cfg.MaxFallbacks, err = strconv.Atoi(maxFallbacksStr); err != nil {
		return nil, fmt.Errorf("invalid MAX_FALLBACKS value: %w", err)
	}
	if cfg.MaxFallbacks < 1 {
		return nil, fmt.Errorf("MAX_FALLBACKS must be at least 1")
	}

	if thresholdStr := getenvDefault("CONFIDENCE_THRESHOLD", "0"); thresholdStr != "" {
		if cfg.ConfidenceThreshold, err = strconv.ParseFloat(thresholdStr, 64); err != nil {
			return nil, fmt.Errorf("invalid CONFIDENCE_THRESHOLD value: %w", err)
		}
		if cfg.ConfidenceThreshold < 0 || cfg.ConfidenceThreshold > 1 {
			return nil, fmt.Errorf("CONFIDENCE_THRESHOLD must be within [0,1]")
		}
	}

	intervals, err := hours.ParseIntervals(getenvDefault("BUSINESS_HOURS", "09:00-13:00,14:00-18:00"))
	if err != nil {
		return nil, fmt.Errorf("invalid BUSINESS_HOURS: %w", err)
	}
	closed, err := hours.ParseWeekdays(getenvDefault("BUSINESS_DAYS_CLOSED", "sat,sun"))
	if err != nil {
		return nil, fmt.Errorf("invalid BUSINESS_DAYS_CLOSED: %w", err)
	}
	cfg.BusinessHours = hours.Policy{Intervals: intervals, Closed: closed}
	if err := cfg.BusinessHours.Validate(); err != nil {
		return nil, fmt.Errorf("invalid business hours policy: %w", err)
	}

	cfg.BotCredentials = map[string]string{}
	for _, botID := range splitAndTrim(trimmedEnv("DIALOGFLOW_BOTS")) {
		creds := trimmedEnv(botID)
		if creds == "" {
			return nil, fmt.Errorf("bot %q listed in DIALOGFLOW_BOTS but env var %s is empty", botID, botID)
		}
		cfg.BotCredentials[botID] = creds
	}

	if redisDBStr := getenvDefault("REDIS_DB", "0"); redisDBStr != "" {
		db, convErr := strconv.Atoi(redisDBStr)
		if convErr != nil {
			return nil, fmt.Errorf("invalid REDIS_DB value: %w", convErr)
		}
		cfg.RedisDB = db
	}
	cfg.RedisTLS = strings.EqualFold(getenvDefault("REDIS_TLS", "false"), "true")

	cfg.TiledeskAPIURL = strings.TrimRight(cfg.TiledeskAPIURL, "/")

	return cfg, nil
}

func durationEnv(key, fallback string) (time.Duration, error) {
	val := getenvDefault(key, fallback)
	dur, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return dur, nil
}

func getenvDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		if trimmed := strings.TrimSpace(val); trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func splitAndTrim(val string) []string {
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			res = append(res, trimmed)
		}
	}
	return res
}

func trimmedEnv(key string) string {
	if val, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(val)
	}
	return ""
}
