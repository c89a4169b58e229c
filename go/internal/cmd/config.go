package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the server configuration. Values come from an optional YAML file
// and are overridden by environment variables.
type Config struct {
	Port       string `yaml:"port"`
	LeagueFile string `yaml:"league_file"`
	Log        struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // console | json
	} `yaml:"log"`

	Storage struct {
		Backend   string `yaml:"backend"` // memory | postgres | firestore
		Firestore struct {
			ProjectID       string `yaml:"project_id"`
			CredentialsFile string `yaml:"credentials_file"`
		} `yaml:"firestore"`
	} `yaml:"storage"`

	Cache struct {
		Backend string        `yaml:"backend"` // none | memory | redis
		TTL     time.Duration `yaml:"ttl"`
		Redis   struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			TLS      bool   `yaml:"tls"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Events struct {
		Mode        string `yaml:"mode"` // local | nats | outbox
		NATSURL     string `yaml:"nats_url"`
		Stream      string `yaml:"stream"`
		NodeID      string `yaml:"node_id"`
		OutboxRelay bool   `yaml:"outbox_relay"`
	} `yaml:"events"`

	Catalog struct {
		Sources    []string      `yaml:"sources"` // fpl, file
		File       string        `yaml:"file"`
		FPLBaseURL string        `yaml:"fpl_base_url"`
		TTL        time.Duration `yaml:"ttl"`
	} `yaml:"catalog"`

	Archive struct {
		Backend string `yaml:"backend"` // none | file | s3
		Dir     string `yaml:"dir"`
		Prefix  string `yaml:"prefix"`
		S3      struct {
			Endpoint       string `yaml:"endpoint"`
			Region         string `yaml:"region"`
			Bucket         string `yaml:"bucket"`
			AccessKey      string `yaml:"access_key"`
			SecretKey      string `yaml:"secret_key"`
			ForcePathStyle bool   `yaml:"force_path_style"`
		} `yaml:"s3"`
	} `yaml:"archive"`
}

func defaultConfig() Config {
	var c Config
	c.Port = "8080"
	c.LeagueFile = "league.yaml"
	c.Log.Level = "info"
	c.Log.Format = "console"
	c.Storage.Backend = "memory"
	c.Cache.Backend = "memory"
	c.Cache.TTL = 1500 * time.Millisecond
	c.Events.Mode = "local"
	c.Events.NATSURL = "nats://localhost:4222"
	c.Events.Stream = "DRAFT_EVENTS"
	c.Events.OutboxRelay = true
	c.Catalog.Sources = []string{"fpl"}
	c.Catalog.TTL = 15 * time.Minute
	c.Archive.Backend = "none"
	c.Archive.Dir = "archive"
	return c
}

// loadConfig reads path if it exists, then applies environment overrides.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	config.applyEnv()
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.LeagueFile = getEnv("LEAGUE_FILE", c.LeagueFile)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	c.Storage.Backend = getEnv("STORAGE_BACKEND", c.Storage.Backend)
	c.Storage.Firestore.ProjectID = getEnv("GOOGLE_CLOUD_PROJECT", c.Storage.Firestore.ProjectID)
	c.Storage.Firestore.CredentialsFile = getEnv("GOOGLE_APPLICATION_CREDENTIALS", c.Storage.Firestore.CredentialsFile)

	c.Cache.Backend = getEnv("CACHE_BACKEND", c.Cache.Backend)
	c.Cache.TTL = getEnvAsDuration("CACHE_TTL", c.Cache.TTL)
	c.Cache.Redis.Addr = getEnv("REDIS_ADDR", c.Cache.Redis.Addr)
	c.Cache.Redis.Password = getEnv("REDIS_PASSWORD", c.Cache.Redis.Password)
	c.Cache.Redis.DB = getEnvAsInt("REDIS_DB", c.Cache.Redis.DB)

	c.Events.Mode = getEnv("EVENTS_MODE", c.Events.Mode)
	c.Events.NATSURL = getEnv("NATS_URL", c.Events.NATSURL)
	c.Events.Stream = getEnv("NATS_STREAM", c.Events.Stream)
	c.Events.NodeID = getEnv("NODE_ID", c.Events.NodeID)
	if v := os.Getenv("OUTBOX_RELAY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Events.OutboxRelay = b
		}
	}

	if v := os.Getenv("CATALOG_SOURCES"); v != "" {
		c.Catalog.Sources = splitList(v)
	}
	c.Catalog.File = getEnv("CATALOG_FILE", c.Catalog.File)
	c.Catalog.FPLBaseURL = getEnv("FPL_BASE_URL", c.Catalog.FPLBaseURL)
	c.Catalog.TTL = getEnvAsDuration("CATALOG_TTL", c.Catalog.TTL)

	c.Archive.Backend = getEnv("ARCHIVE_BACKEND", c.Archive.Backend)
	c.Archive.Dir = getEnv("ARCHIVE_DIR", c.Archive.Dir)
	c.Archive.Prefix = getEnv("ARCHIVE_PREFIX", c.Archive.Prefix)
	c.Archive.S3.Endpoint = getEnv("S3_ENDPOINT", c.Archive.S3.Endpoint)
	c.Archive.S3.Region = getEnv("S3_REGION", c.Archive.S3.Region)
	c.Archive.S3.Bucket = getEnv("S3_BUCKET", c.Archive.S3.Bucket)
	c.Archive.S3.AccessKey = getEnv("S3_ACCESS_KEY", c.Archive.S3.AccessKey)
	c.Archive.S3.SecretKey = getEnv("S3_SECRET_KEY", c.Archive.S3.SecretKey)
}

func (c *Config) validate() error {
	if !oneOf(c.Storage.Backend, "memory", "postgres", "firestore") {
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if !oneOf(c.Cache.Backend, "none", "memory", "redis") {
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Cache.Redis.Addr == "" {
		return errors.New("redis cache requires REDIS_ADDR")
	}
	if !oneOf(c.Events.Mode, "local", "nats", "outbox") {
		return fmt.Errorf("unknown events mode %q", c.Events.Mode)
	}
	if c.Events.Mode == "outbox" && c.Storage.Backend != "postgres" {
		return errors.New("outbox events require the postgres storage backend")
	}
	if c.Storage.Backend == "firestore" && c.Storage.Firestore.ProjectID == "" {
		return errors.New("firestore storage requires GOOGLE_CLOUD_PROJECT")
	}
	if len(c.Catalog.Sources) == 0 {
		return errors.New("at least one catalog source is required")
	}
	for _, s := range c.Catalog.Sources {
		if !oneOf(s, "fpl", "file") {
			return fmt.Errorf("unknown catalog source %q", s)
		}
		if s == "file" && c.Catalog.File == "" {
			return errors.New("file catalog source requires CATALOG_FILE")
		}
	}
	if !oneOf(c.Archive.Backend, "none", "file", "s3") {
		return fmt.Errorf("unknown archive backend %q", c.Archive.Backend)
	}
	return nil
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
