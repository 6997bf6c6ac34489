package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	commoncfg "ici-report/internal/common/config"
)

// Config is the ici-report service configuration.
//
// Values come from built-in defaults, then the YAML file named by CONFIG_FILE
// (if any), then environment variables.
type Config struct {
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`

	DBEnabled   bool                     `yaml:"db_enabled"`
	ApplySchema bool                     `yaml:"apply_schema"`
	Database    commoncfg.DatabaseConfig `yaml:"database"`
	// FixturePath seeds the in-memory store when the database is disabled or unreachable.
	FixturePath string `yaml:"fixture_path"`

	Redis commoncfg.RedisConfig `yaml:"redis"`
	MQTT  MQTTConfig            `yaml:"mqtt"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Storage StorageConfig `yaml:"storage"`
	Assets  AssetsConfig  `yaml:"assets"`
	Jobs    JobsConfig    `yaml:"jobs"`
	Report  ReportConfig  `yaml:"report"`
}

// MQTTConfig enables the request/reply trigger.
type MQTTConfig struct {
	Enabled              bool `yaml:"enabled"`
	commoncfg.MQTTConfig `yaml:",inline"`
	RequestTopic         string `yaml:"request_topic"`
	ReplyTopic           string `yaml:"reply_topic"`
}

// StorageConfig locates the bucket generated documents are written to.
type StorageConfig struct {
	BucketURL     string `yaml:"bucket_url"`
	Prefix        string `yaml:"prefix"`
	PublicBaseURL string `yaml:"public_base_url"`
}

// AssetsConfig tunes image prefetching.
type AssetsConfig struct {
	BatchSize      int `yaml:"batch_size"`
	TimeoutSeconds int `yaml:"timeout_seconds"`
	MaxPixels      int `yaml:"max_pixels"`
}

func (a AssetsConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// JobsConfig drives the asynchronous build queue.
type JobsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Stream     string `yaml:"stream"`
	Group      string `yaml:"group"`
	Consumer   string `yaml:"consumer"`
	BatchSize  int64  `yaml:"batch_size"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

func (j JobsConfig) TTL() time.Duration {
	return time.Duration(j.TTLSeconds) * time.Second
}

// ReportConfig holds presentation settings.
type ReportConfig struct {
	// Timezone is the IANA zone service dates are printed in.
	Timezone string `yaml:"timezone"`
}

// Location resolves Timezone, falling back to UTC.
func (r ReportConfig) Location() *time.Location {
	if r.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func defaults() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = ":8080"

	cfg.DBEnabled = true
	cfg.Database = commoncfg.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "ici",
		SSLMode:  "disable",
		MaxConns: 10,
		MaxIdle:  5,
	}
	cfg.FixturePath = "testdata/fixture.json"

	cfg.Redis.Addr = "localhost:6379"

	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "ici-report"
	cfg.MQTT.QoS = 1
	cfg.MQTT.RequestTopic = "ici/reports/request"
	cfg.MQTT.ReplyTopic = "ici/reports/reply"

	cfg.Log.Level = "info"
	cfg.Log.Format = "json"

	cfg.Storage.BucketURL = "file:///tmp/ici-report"
	cfg.Storage.PublicBaseURL = "http://localhost:8080/files"

	cfg.Assets.BatchSize = 6
	cfg.Assets.TimeoutSeconds = 20
	cfg.Assets.MaxPixels = 1600

	cfg.Jobs.Enabled = true
	cfg.Jobs.Stream = "report:jobs"
	cfg.Jobs.Group = "ici-report"
	cfg.Jobs.Consumer = "ici-report-1"
	cfg.Jobs.BatchSize = 4
	cfg.Jobs.TTLSeconds = 24 * 3600

	cfg.Report.Timezone = "America/Mexico_City"
	return cfg
}

func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", cfg.HTTP.Addr)

	cfg.DBEnabled = parseBool(os.Getenv("DB_ENABLED"), cfg.DBEnabled)
	cfg.ApplySchema = parseBool(os.Getenv("DB_APPLY_SCHEMA"), cfg.ApplySchema)
	cfg.Database.LoadFromEnv("DB")
	cfg.FixturePath = getEnv("FIXTURE_PATH", cfg.FixturePath)

	cfg.Redis.LoadFromEnv("REDIS")

	cfg.MQTT.Enabled = parseBool(os.Getenv("MQTT_ENABLED"), cfg.MQTT.Enabled)
	cfg.MQTT.MQTTConfig.LoadFromEnv("MQTT")
	cfg.MQTT.RequestTopic = getEnv("MQTT_REQUEST_TOPIC", cfg.MQTT.RequestTopic)
	cfg.MQTT.ReplyTopic = getEnv("MQTT_REPLY_TOPIC", cfg.MQTT.ReplyTopic)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)

	cfg.Storage.BucketURL = getEnv("STORAGE_BUCKET_URL", cfg.Storage.BucketURL)
	cfg.Storage.Prefix = getEnv("STORAGE_PREFIX", cfg.Storage.Prefix)
	cfg.Storage.PublicBaseURL = getEnv("STORAGE_PUBLIC_BASE_URL", cfg.Storage.PublicBaseURL)

	cfg.Assets.BatchSize = parseInt(os.Getenv("ASSETS_BATCH_SIZE"), cfg.Assets.BatchSize)
	cfg.Assets.TimeoutSeconds = parseInt(os.Getenv("ASSETS_TIMEOUT_SECONDS"), cfg.Assets.TimeoutSeconds)
	cfg.Assets.MaxPixels = parseInt(os.Getenv("ASSETS_MAX_PIXELS"), cfg.Assets.MaxPixels)

	cfg.Jobs.Enabled = parseBool(os.Getenv("JOBS_ENABLED"), cfg.Jobs.Enabled)
	cfg.Jobs.Stream = getEnv("JOBS_STREAM", cfg.Jobs.Stream)
	cfg.Jobs.Group = getEnv("JOBS_GROUP", cfg.Jobs.Group)
	cfg.Jobs.Consumer = getEnv("JOBS_CONSUMER", cfg.Jobs.Consumer)
	cfg.Jobs.BatchSize = int64(parseInt(os.Getenv("JOBS_BATCH_SIZE"), int(cfg.Jobs.BatchSize)))
	cfg.Jobs.TTLSeconds = parseInt(os.Getenv("JOBS_TTL_SECONDS"), cfg.Jobs.TTLSeconds)

	cfg.Report.Timezone = getEnv("REPORT_TIMEZONE", cfg.Report.Timezone)

	if cfg.Assets.BatchSize <= 0 {
		return nil, fmt.Errorf("ASSETS_BATCH_SIZE must be positive, got %d", cfg.Assets.BatchSize)
	}
	if _, err := time.LoadLocation(cfg.Report.Timezone); err != nil {
		return nil, fmt.Errorf("invalid REPORT_TIMEZONE %q: %w", cfg.Report.Timezone, err)
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseBool(s string, def bool) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}
