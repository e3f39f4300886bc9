package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Server
	ServerPort      string        `yaml:"server_port"`
	ServerHost      string        `yaml:"server_host"`
	ArchivePort     string        `yaml:"archive_port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxRequestBody  int64         `yaml:"max_request_body_bytes"`
	RateLimitRPS    int           `yaml:"rate_limit_rps"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`

	// Model and metadata, loaded once at startup
	ModelPath      string `yaml:"model_path"`
	FeaturesPath   string `yaml:"features_path"`
	LabelMapPath   string `yaml:"label_map_path"`
	PredictionsCSV string `yaml:"predictions_csv"`
	SymptomSlots   int    `yaml:"symptom_slots"`

	// Database
	PostgresHost     string `yaml:"postgres_host"`
	PostgresPort     string `yaml:"postgres_port"`
	PostgresUser     string `yaml:"postgres_user"`
	PostgresPassword string `yaml:"postgres_password"`
	PostgresDB       string `yaml:"postgres_db"`
	PostgresSSLMode  string `yaml:"postgres_sslmode"`

	// Redis
	RedisHost             string        `yaml:"redis_host"`
	RedisPort             string        `yaml:"redis_port"`
	RedisPassword         string        `yaml:"redis_password"`
	RedisDB               int           `yaml:"redis_db"`
	EnablePredictionCache bool          `yaml:"enable_prediction_cache"`
	PredictionCachePrefix string        `yaml:"prediction_cache_prefix"`
	PredictionCacheTTL    time.Duration `yaml:"prediction_cache_ttl"`

	// Kafka
	EnableEvents    bool     `yaml:"enable_events"`
	KafkaBrokers    []string `yaml:"kafka_brokers"`
	KafkaGroupID    string   `yaml:"kafka_group_id"`
	PredictionTopic string   `yaml:"prediction_topic"`
}

// Load builds the configuration from defaults and environment variables.
func Load() *Config {
	cfg := defaults()
	applyEnv(cfg)
	return cfg
}

// LoadFile reads a YAML file over the defaults. Environment variables still win.
func LoadFile(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		content, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		ServerPort:      "8080",
		ServerHost:      "0.0.0.0",
		ArchivePort:     "8090",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		MaxRequestBody:  1 << 20,
		RateLimitRPS:    50,
		RateLimitBurst:  100,

		ModelPath:      filepath.Join("models", "disease_model.json"),
		FeaturesPath:   filepath.Join("data", "processed", "feature_columns.json"),
		LabelMapPath:   filepath.Join("data", "processed", "label_mapping.json"),
		PredictionsCSV: "predictions.csv",
		SymptomSlots:   5,

		PostgresHost:    "localhost",
		PostgresPort:    "5432",
		PostgresUser:    "predictor",
		PostgresDB:      "predictions",
		PostgresSSLMode: "disable",

		RedisHost:             "localhost",
		RedisPort:             "6379",
		PredictionCachePrefix: "prediction",
		PredictionCacheTTL:    10 * time.Minute,

		KafkaBrokers:    []string{"localhost:9092"},
		KafkaGroupID:    "prediction-archive",
		PredictionTopic: "predictions",
	}
}

func applyEnv(cfg *Config) {
	cfg.ServerPort = getEnv("SERVER_PORT", getEnv("PORT", cfg.ServerPort))
	cfg.ServerHost = getEnv("SERVER_HOST", cfg.ServerHost)
	cfg.ArchivePort = getEnv("ARCHIVE_PORT", cfg.ArchivePort)
	cfg.ReadTimeout = getDuration("READ_TIMEOUT", cfg.ReadTimeout)
	cfg.WriteTimeout = getDuration("WRITE_TIMEOUT", cfg.WriteTimeout)
	cfg.ShutdownTimeout = getDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	cfg.MaxRequestBody = int64(getIntEnv("MAX_REQUEST_BODY_BYTES", int(cfg.MaxRequestBody)))
	cfg.RateLimitRPS = getIntEnv("RATE_LIMIT_RPS", cfg.RateLimitRPS)
	cfg.RateLimitBurst = getIntEnv("RATE_LIMIT_BURST", cfg.RateLimitBurst)

	cfg.ModelPath = getEnv("MODEL_PATH", cfg.ModelPath)
	cfg.FeaturesPath = getEnv("FEATURES_PATH", cfg.FeaturesPath)
	cfg.LabelMapPath = getEnv("LABEL_MAP_PATH", cfg.LabelMapPath)
	cfg.PredictionsCSV = getEnv("PREDICTIONS_CSV", cfg.PredictionsCSV)
	cfg.SymptomSlots = getIntEnv("SYMPTOM_SLOTS", cfg.SymptomSlots)

	cfg.PostgresHost = getEnv("POSTGRES_HOST", cfg.PostgresHost)
	cfg.PostgresPort = getEnv("POSTGRES_PORT", cfg.PostgresPort)
	cfg.PostgresUser = getEnv("POSTGRES_USER", cfg.PostgresUser)
	cfg.PostgresPassword = getEnv("POSTGRES_PASSWORD", cfg.PostgresPassword)
	cfg.PostgresDB = getEnv("POSTGRES_DB", cfg.PostgresDB)
	cfg.PostgresSSLMode = getEnv("POSTGRES_SSLMODE", cfg.PostgresSSLMode)

	cfg.RedisHost = getEnv("REDIS_HOST", cfg.RedisHost)
	cfg.RedisPort = getEnv("REDIS_PORT", cfg.RedisPort)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getIntEnv("REDIS_DB", cfg.RedisDB)
	cfg.EnablePredictionCache = getBoolEnv("ENABLE_PREDICTION_CACHE", cfg.EnablePredictionCache)
	cfg.PredictionCachePrefix = getEnv("PREDICTION_CACHE_PREFIX", cfg.PredictionCachePrefix)
	cfg.PredictionCacheTTL = getDuration("PREDICTION_CACHE_TTL", cfg.PredictionCacheTTL)

	cfg.EnableEvents = getBoolEnv("ENABLE_EVENTS", cfg.EnableEvents)
	cfg.KafkaBrokers = getStringSliceEnv("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaGroupID = getEnv("KAFKA_GROUP_ID", cfg.KafkaGroupID)
	cfg.PredictionTopic = getEnv("PREDICTION_TOPIC", cfg.PredictionTopic)
}

// PostgresDSN renders the connection string understood by the gorm postgres driver.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.PostgresHost,
		c.PostgresUser,
		c.PostgresPassword,
		c.PostgresDB,
		c.PostgresPort,
		c.PostgresSSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
