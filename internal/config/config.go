package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Environment names a deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the complete sync layer configuration.
type Config struct {
	Environment    Environment    `yaml:"environment" env:"ENVIRONMENT" validate:"oneof=development staging production"`
	Backend        Backend        `yaml:"backend" envPrefix:"BACKEND_"`
	Storage        Storage        `yaml:"storage" envPrefix:"STORAGE_"`
	Cache          Cache          `yaml:"cache" envPrefix:"CACHE_"`
	Feed           Feed           `yaml:"feed" envPrefix:"FEED_"`
	Search         Search         `yaml:"search" envPrefix:"SEARCH_"`
	CircuitBreaker CircuitBreaker `yaml:"circuit_breaker" envPrefix:"CIRCUIT_BREAKER_"`
	Logging        Logging        `yaml:"logging" envPrefix:"LOG_"`
	Metrics        Metrics        `yaml:"metrics" envPrefix:"METRICS_"`
	Tracing        Tracing        `yaml:"tracing" envPrefix:"TRACING_"`

	// LoadedFrom lists the sources applied, lowest priority first.
	LoadedFrom []string `yaml:"-"`
}

// Backend selects and configures the backend of record.
type Backend struct {
	Driver string `yaml:"driver" env:"DRIVER" validate:"oneof=supabase memory"`
	URL    string `yaml:"url" env:"URL" validate:"required_if=Driver supabase"`
	APIKey string `yaml:"api_key" env:"API_KEY" validate:"required_if=Driver supabase"`
	// AccessToken resumes an existing session.
	AccessToken string `yaml:"access_token" env:"ACCESS_TOKEN"`
	// Seed controls the demo data of the memory driver; 0 picks a random seed.
	Seed        int64 `yaml:"seed" env:"SEED"`
	SeedPosts   int   `yaml:"seed_posts" env:"SEED_POSTS" validate:"gte=0"`
	SeedUsers   int   `yaml:"seed_users" env:"SEED_USERS" validate:"gte=0"`
	CallTimeout time.Duration `yaml:"call_timeout" env:"CALL_TIMEOUT" validate:"gte=0"`
}

// Storage selects where post images live.
type Storage struct {
	Driver string `yaml:"driver" env:"DRIVER" validate:"oneof=supabase minio memory"`
	Bucket string `yaml:"bucket" env:"BUCKET" validate:"required"`
	MinIO  MinIO  `yaml:"minio" envPrefix:"MINIO_"`
}

// MinIO holds S3 compatible object store settings.
type MinIO struct {
	Endpoint  string        `yaml:"endpoint" env:"ENDPOINT"`
	AccessKey string        `yaml:"access_key" env:"ACCESS_KEY"`
	SecretKey string        `yaml:"secret_key" env:"SECRET_KEY"`
	UseSSL    bool          `yaml:"use_ssl" env:"USE_SSL"`
	URLExpiry time.Duration `yaml:"url_expiry" env:"URL_EXPIRY"`
}

// Cache sizes the entity store and ages query entries.
type Cache struct {
	MaxItems int `yaml:"max_items" env:"MAX_ITEMS" validate:"gt=0"`
	// MaxAge marks entries stale after this long; 0 keeps them fresh until
	// invalidated.
	MaxAge      time.Duration `yaml:"max_age" env:"MAX_AGE" validate:"gte=0"`
	RecentLimit int           `yaml:"recent_limit" env:"RECENT_LIMIT" validate:"gt=0"`
}

// Feed configures the infinite feed.
type Feed struct {
	PageSize int `yaml:"page_size" env:"PAGE_SIZE" validate:"gt=0"`
}

// Search configures the debounced search.
type Search struct {
	Debounce time.Duration `yaml:"debounce" env:"DEBOUNCE" validate:"gt=0"`
}

// CircuitBreaker configures the backend breaker.
type CircuitBreaker struct {
	Enabled          bool          `yaml:"enabled" env:"ENABLED"`
	MaxRequests      uint32        `yaml:"max_requests" env:"MAX_REQUESTS"`
	Interval         time.Duration `yaml:"interval" env:"INTERVAL"`
	Timeout          time.Duration `yaml:"timeout" env:"TIMEOUT"`
	FailureThreshold float64       `yaml:"failure_threshold" env:"FAILURE_THRESHOLD" validate:"gte=0,lte=1"`
	MinRequests      uint32        `yaml:"min_requests" env:"MIN_REQUESTS"`
}

// Logging configures zap.
type Logging struct {
	Level         string        `yaml:"level" env:"LEVEL" validate:"oneof=debug info warn error"`
	Format        string        `yaml:"format" env:"FORMAT" validate:"oneof=json console"`
	SlowThreshold time.Duration `yaml:"slow_threshold" env:"SLOW_THRESHOLD"`
}

// Metrics configures the Prometheus collector and its endpoint.
type Metrics struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	Namespace string `yaml:"namespace" env:"NAMESPACE" validate:"required"`
	Addr      string `yaml:"addr" env:"ADDR"`
}

// Tracing configures the OpenTelemetry exporter.
type Tracing struct {
	Enabled     bool    `yaml:"enabled" env:"ENABLED"`
	ServiceName string  `yaml:"service_name" env:"SERVICE_NAME"`
	Endpoint    string  `yaml:"endpoint" env:"ENDPOINT"`
	Insecure    bool    `yaml:"insecure" env:"INSECURE"`
	SampleRate  float64 `yaml:"sample_rate" env:"SAMPLE_RATE" validate:"gte=0,lte=1"`
}

// Default returns a configuration that runs the demo without any files.
func Default(env Environment) *Config {
	if env == "" {
		env = Development
	}
	return &Config{
		Environment: env,
		Backend: Backend{
			Driver:      "memory",
			SeedPosts:   60,
			SeedUsers:   12,
			CallTimeout: 10 * time.Second,
		},
		Storage: Storage{
			Driver: "memory",
			Bucket: "media",
			MinIO:  MinIO{URLExpiry: time.Hour},
		},
		Cache: Cache{
			MaxItems:    1000,
			RecentLimit: 20,
		},
		Feed:   Feed{PageSize: 9},
		Search: Search{Debounce: 500 * time.Millisecond},
		CircuitBreaker: CircuitBreaker{
			Enabled:          true,
			MaxRequests:      5,
			Interval:         30 * time.Second,
			Timeout:          60 * time.Second,
			FailureThreshold: 0.8,
			MinRequests:      5,
		},
		Logging: Logging{
			Level:         "info",
			Format:        "json",
			SlowThreshold: time.Second,
		},
		Metrics: Metrics{
			Enabled:   true,
			Namespace: "snapgram_sync",
		},
		Tracing: Tracing{
			ServiceName: "snapgram-sync",
			Endpoint:    "localhost:4317",
			Insecure:    true,
		},
	}
}

// Validate checks struct constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var msgs []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
			}
		} else {
			msgs = append(msgs, err.Error())
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
	}
	if c.Storage.Driver == "minio" && c.Storage.MinIO.Endpoint == "" {
		return fmt.Errorf("invalid configuration: storage.minio.endpoint is required for the minio driver")
	}
	if c.Storage.Driver == "supabase" && c.Backend.Driver != "supabase" {
		return fmt.Errorf("invalid configuration: supabase storage needs the supabase backend")
	}
	if c.Environment == Production && c.Backend.Driver == "memory" {
		return fmt.Errorf("invalid configuration: the memory backend is not allowed in production")
	}
	return nil
}

// IsDevelopment reports whether hot reload and local overrides apply.
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// EnvironmentFromOS reads ENVIRONMENT, defaulting to development.
func EnvironmentFromOS() Environment {
	switch Environment(strings.ToLower(os.Getenv("ENVIRONMENT"))) {
	case Production:
		return Production
	case Staging:
		return Staging
	default:
		return Development
	}
}
