package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/samirrijal/circlerun/internal/adapters/directions"
	"github.com/samirrijal/circlerun/internal/core/domain"
	"github.com/samirrijal/circlerun/internal/core/loop"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Valkey     ValkeyConfig     `mapstructure:"valkey"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Temporal   TemporalConfig   `mapstructure:"temporal"`
	Directions DirectionsConfig `mapstructure:"directions"`
	Generation GenerationConfig `mapstructure:"generation"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
	// GenerateTimeout bounds a blocking POST /v1/loops, in seconds.
	GenerateTimeout int    `mapstructure:"generate_timeout"`
	AllowOrigins    string `mapstructure:"allow_origins"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DirectionsConfig selects and tunes the directions provider.
type DirectionsConfig struct {
	Provider    string        `mapstructure:"provider"` // osrm | mapbox
	BaseURL     string        `mapstructure:"base_url"`
	AccessToken string        `mapstructure:"access_token"`
	Timeout     time.Duration `mapstructure:"timeout"`
	RPS         float64       `mapstructure:"rps"`
	Burst       int           `mapstructure:"burst"`
}

// GenerationConfig tunes the loop search.
type GenerationConfig struct {
	NumPoints            int           `mapstructure:"num_points"`
	MinPoints            int           `mapstructure:"min_points"`
	MaxAttempts          int           `mapstructure:"max_attempts"`
	ErrorMarginMiles     float64       `mapstructure:"error_margin_miles"`
	ToleranceFraction    float64       `mapstructure:"tolerance_fraction"`
	RetryDelay           time.Duration `mapstructure:"retry_delay"`
	MaxInitialScaleMiles float64       `mapstructure:"max_initial_scale_miles"`
	MaxSegmentMiles      float64       `mapstructure:"max_segment_miles"`
	MinSegmentMeters     float64       `mapstructure:"min_segment_meters"`
	SecantRefinement     bool          `mapstructure:"secant_refinement"`
	ExcludeFerries       bool          `mapstructure:"exclude_ferries"`
	CacheTTL             time.Duration `mapstructure:"cache_ttl"`
}

// LoopOptions converts the section into search options.
func (g GenerationConfig) LoopOptions() loop.Options {
	opts := loop.Options{
		NumPoints:        g.NumPoints,
		MinPoints:        g.MinPoints,
		MaxAttempts:      g.MaxAttempts,
		ErrorMarginMiles: g.ErrorMarginMiles,
		MaxInitialScale:  g.MaxInitialScaleMiles,
		RetryDelay:       g.RetryDelay,
		SecantRefinement: g.SecantRefinement,
		Profile:          domain.ProfileWalking,
		Validator: loop.Validator{
			MaxSegmentMiles:   g.MaxSegmentMiles,
			MinSegmentMeters:  g.MinSegmentMeters,
			ToleranceFraction: g.ToleranceFraction,
		},
	}
	if g.ExcludeFerries {
		opts.Exclude = []string{"ferry"}
	}
	return opts
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 60)
	v.SetDefault("server.generate_timeout", 45)
	v.SetDefault("server.allow_origins", "http://localhost:3000, http://localhost:5173")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "circlerun")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "circlerun")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "loop-generation")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("directions.provider", "osrm")
	v.SetDefault("directions.base_url", "")
	v.SetDefault("directions.access_token", "")
	v.SetDefault("directions.timeout", "15s")
	v.SetDefault("directions.rps", 1.0)
	v.SetDefault("directions.burst", 2)

	v.SetDefault("generation.num_points", loop.DefaultNumPoints)
	v.SetDefault("generation.min_points", loop.DefaultMinPoints)
	v.SetDefault("generation.max_attempts", loop.DefaultMaxAttempts)
	v.SetDefault("generation.error_margin_miles", loop.DefaultErrorMarginMiles)
	v.SetDefault("generation.tolerance_fraction", loop.DefaultToleranceFraction)
	v.SetDefault("generation.retry_delay", loop.DefaultRetryDelay.String())
	v.SetDefault("generation.max_initial_scale_miles", loop.DefaultMaxInitialScale)
	v.SetDefault("generation.max_segment_miles", loop.DefaultMaxSegmentMiles)
	v.SetDefault("generation.min_segment_meters", loop.DefaultMinSegmentMeters)
	v.SetDefault("generation.secant_refinement", true)
	v.SetDefault("generation.exclude_ferries", true)
	v.SetDefault("generation.cache_ttl", "10m")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: CIRCLERUN_DIRECTIONS_PROVIDER → directions.provider
	v.SetEnvPrefix("CIRCLERUN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Server.GenerateTimeout <= 0 {
		errs = append(errs, "server.generate_timeout must be positive")
	}

	switch c.Directions.Provider {
	case "osrm":
	case "mapbox":
		if c.Directions.AccessToken == "" {
			errs = append(errs, "directions.access_token is required for mapbox")
		}
	default:
		errs = append(errs, fmt.Sprintf("directions.provider must be osrm or mapbox, got %q", c.Directions.Provider))
	}
	if c.Directions.RPS < 0 {
		errs = append(errs, "directions.rps must not be negative")
	}

	g := c.Generation
	if g.MinPoints < loop.MinRingPoints {
		errs = append(errs, fmt.Sprintf("generation.min_points must be at least %d, got %d", loop.MinRingPoints, g.MinPoints))
	}
	if g.NumPoints < g.MinPoints {
		errs = append(errs, fmt.Sprintf("generation.num_points (%d) must not be below min_points (%d)", g.NumPoints, g.MinPoints))
	}
	// The ring is sent with the start point at both ends.
	if limit := directions.MaxWaypoints(c.Directions.Provider); limit > 0 && g.NumPoints+2 > limit {
		errs = append(errs, fmt.Sprintf("generation.num_points (%d) exceeds the %s limit of %d ring points",
			g.NumPoints, c.Directions.Provider, limit-2))
	}
	if g.MaxAttempts <= 0 {
		errs = append(errs, "generation.max_attempts must be positive")
	}
	if g.ErrorMarginMiles <= 0 {
		errs = append(errs, "generation.error_margin_miles must be positive")
	}
	if g.ToleranceFraction <= 0 || g.ToleranceFraction >= 1 {
		errs = append(errs, "generation.tolerance_fraction must be in (0, 1)")
	}
	if g.RetryDelay < 0 {
		errs = append(errs, "generation.retry_delay must not be negative")
	}
	if g.MaxSegmentMiles <= 0 || g.MinSegmentMeters <= 0 {
		errs = append(errs, "generation.max_segment_miles and min_segment_meters must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
