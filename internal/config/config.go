package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve on hosts without zoneinfo

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/sounding-forecast/internal/adapter/storage"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Upper-air soundings.
	SoundingBaseURL string
	SoundingHour    string

	// Surface observations and labels.
	ObservationBaseURL         string
	ObservationStation         string
	TrainingObservationStation string
	LabelStation               string
	WeatherAPIKey              string
	ObservationInterval        time.Duration

	// Retrieval session and page cache.
	FetchTimeout     time.Duration
	FetchMaxAttempts int
	FetchMaxBackoff  time.Duration
	BreakerTimeout   time.Duration
	BreakerWaits     int
	FetchCacheSize   int
	RedisURL         string
	RedisCacheTTL    time.Duration

	// Training backfill.
	TrainingStartMonth int
	TrainingEndMonth   int
	OutputDir          string

	// Model artifacts.
	ModelDir    string
	ModelName   string
	ModelFactor float64

	// Artifact storage.
	StorageMode      storage.Mode
	LocalArtifactDir string
	GCSBucket        string

	DatabaseURL      string
	Timezone         *time.Location
	ForecastSchedule string
	JobTimeout       time.Duration

	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		SoundingBaseURL: sharedcfg.EnvOrDefault("SOUNDING_BASE_URL", "https://weather.uwyo.edu/cgi-bin/sounding"),
		SoundingHour:    sharedcfg.EnvOrDefault("SOUNDING_HOUR", "12"),

		ObservationBaseURL:         sharedcfg.EnvOrDefault("OBSERVATION_BASE_URL", "https://api.weather.com/v2/pws/history"),
		ObservationStation:         sharedcfg.EnvOrDefault("OBSERVATION_STATION", "KNJATCO14"),
		TrainingObservationStation: sharedcfg.EnvOrDefault("TRAINING_OBSERVATION_STATION", "KNJATCO2"),
		LabelStation:               sharedcfg.EnvOrDefault("LABEL_STATION", "KNJATCO14"),
		WeatherAPIKey:              sharedcfg.EnvOrDefault("WEATHER_API_KEY", os.Getenv("API_KEY")),

		RedisURL:  os.Getenv("REDIS_URL"),
		OutputDir: sharedcfg.EnvOrDefault("OUTPUT_DIR", "data"),

		ModelDir:  sharedcfg.EnvOrDefault("MODEL_DIR", "artifacts"),
		ModelName: sharedcfg.EnvOrDefault("MODEL_NAME", "randomforest"),

		StorageMode:      storage.Mode(sharedcfg.EnvOrDefault("STORAGE_MODE", string(storage.ModeLocal))),
		LocalArtifactDir: sharedcfg.EnvOrDefault("LOCAL_ARTIFACT_DIR", "predictions"),
		GCSBucket:        os.Getenv("GCS_BUCKET"),

		DatabaseURL:      databaseURL(),
		ForecastSchedule: sharedcfg.EnvOrDefault("FORECAST_SCHEDULE", "0 9 * * *"),

		KafkaEnabled: os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "sounding-forecasts"),
	}

	if cfg.ObservationInterval, err = parseDuration("OBSERVATION_INTERVAL", "2s"); err != nil {
		return nil, err
	}
	if cfg.FetchTimeout, err = parseDuration("FETCH_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.FetchMaxBackoff, err = parseDuration("FETCH_MAX_BACKOFF", "10s"); err != nil {
		return nil, err
	}
	if cfg.BreakerTimeout, err = parseDuration("BREAKER_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.BreakerWaits, err = parsePositiveInt("BREAKER_WAITS", "10"); err != nil {
		return nil, err
	}
	if cfg.RedisCacheTTL, err = parseDuration("REDIS_CACHE_TTL", "720h"); err != nil {
		return nil, err
	}
	if cfg.JobTimeout, err = parseDuration("JOB_TIMEOUT", "30m"); err != nil {
		return nil, err
	}
	if cfg.FetchMaxAttempts, err = parsePositiveInt("FETCH_MAX_ATTEMPTS", "10"); err != nil {
		return nil, err
	}
	if cfg.FetchCacheSize, err = parsePositiveInt("FETCH_CACHE_SIZE", "1000"); err != nil {
		return nil, err
	}
	if cfg.TrainingStartMonth, err = parseYearMonth("TRAINING_START_MONTH", "202001"); err != nil {
		return nil, err
	}
	if cfg.TrainingEndMonth, err = parseYearMonth("TRAINING_END_MONTH", "202410"); err != nil {
		return nil, err
	}
	if cfg.ModelFactor, err = parseFactor(); err != nil {
		return nil, err
	}

	tz := sharedcfg.EnvOrDefault("TIMEZONE", "US/Eastern")
	if cfg.Timezone, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageMode {
	case storage.ModeLocal:
	case storage.ModeGCS:
		if c.GCSBucket == "" {
			return errors.New("GCS_BUCKET is required when STORAGE_MODE is gcs")
		}
	default:
		return fmt.Errorf("invalid STORAGE_MODE %q", c.StorageMode)
	}
	if c.SoundingHour != "00" && c.SoundingHour != "12" {
		return fmt.Errorf("invalid SOUNDING_HOUR %q", c.SoundingHour)
	}
	if c.TrainingStartMonth > c.TrainingEndMonth {
		return errors.New("TRAINING_START_MONTH is after TRAINING_END_MONTH")
	}
	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if c.KafkaTopic == "" {
			return errors.New("KAFKA_TOPIC is required when KAFKA_ENABLED is true")
		}
	}
	return nil
}

// RequireForecast checks the settings only the forecast service needs.
func (c *Config) RequireForecast() error {
	if c.WeatherAPIKey == "" {
		return errors.New("WEATHER_API_KEY is required")
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	return nil
}

// RequireBackfill checks the settings only the training backfill needs.
func (c *Config) RequireBackfill() error {
	if c.WeatherAPIKey == "" {
		return errors.New("WEATHER_API_KEY is required")
	}
	return nil
}

// databaseURL prefers DATABASE_URL and otherwise assembles one from the
// discrete DB_HOST, DB_PORT, DB_USER, DB_PASS and DB_NAME variables.
func databaseURL() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}
	host := os.Getenv("DB_HOST")
	if host == "" {
		return ""
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(os.Getenv("DB_USER"), os.Getenv("DB_PASS")),
		Host:   host + ":" + sharedcfg.EnvOrDefault("DB_PORT", "5432"),
		Path:   "/" + os.Getenv("DB_NAME"),
	}
	return u.String()
}

func parseDuration(name, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(name, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return d, nil
}

func parsePositiveInt(name, def string) (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault(name, def))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return n, nil
}

func parseYearMonth(name, def string) (int, error) {
	s := sharedcfg.EnvOrDefault(name, def)
	n, err := strconv.Atoi(s)
	if err != nil || len(s) != 6 || n%100 < 1 || n%100 > 12 {
		return 0, fmt.Errorf("invalid %s %q: want YYYYMM", name, s)
	}
	return n, nil
}

func parseFactor() (float64, error) {
	f, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("MODEL_FACTOR", "1"), 64)
	if err != nil || f <= 0 {
		return 0, errors.New("invalid MODEL_FACTOR")
	}
	return f, nil
}
