// Package config loads service settings from config.toml and RECEPTION_*
// environment variables with viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Reception ReceptionConfig `mapstructure:"reception"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

// LogConfig selects the zap level, encoder (json, console) and sink
// (stdout, stderr or a file path).
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// DatabaseConfig holds the PostgreSQL connection and pool settings.
// Lifetimes are in minutes.
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"`
	LogLevel        string `mapstructure:"log_level"`
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
}

// DSN renders a postgres:// URL with escaped credentials
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + strconv.Itoa(d.Port),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type HTTPConfig struct {
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout  time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes   int           `mapstructure:"max_header_bytes"`
	MaxBodySize      int64         `mapstructure:"max_body_size"`
	CORSAllowOrigins []string      `mapstructure:"cors_allow_origins"`
	CORSAllowMethods []string      `mapstructure:"cors_allow_methods"`
	CORSAllowHeaders []string      `mapstructure:"cors_allow_headers"`
	TrustedProxies   []string      `mapstructure:"trusted_proxies"`
}

// TelemetryConfig drives OTLP export. Enabled gates traces, metrics and
// logs; the other switches narrow it down.
type TelemetryConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	CollectorEndpoint string        `mapstructure:"collector_endpoint"`
	SamplingRatio     float64       `mapstructure:"sampling_ratio"`
	ServiceName       string        `mapstructure:"service_name"`
	Insecure          bool          `mapstructure:"insecure"`
	MetricsEnabled    bool          `mapstructure:"metrics_enabled"`
	MetricsInterval   time.Duration `mapstructure:"metrics_interval"`
	LogExportEnabled  bool          `mapstructure:"log_export_enabled"`
	DBTraceEnabled    bool          `mapstructure:"db_trace_enabled"`
	DBLogFullSQL      bool          `mapstructure:"db_log_full_sql"` // never in production
	DBSlowQueryThresh time.Duration `mapstructure:"db_slow_query_threshold"`

	// Continuous profiling is pushed to Pyroscope, independently of OTLP
	ProfilingEnabled       bool     `mapstructure:"profiling_enabled"`
	ProfilingServerAddress string   `mapstructure:"profiling_server_address"`
	ProfilingAuthUser      string   `mapstructure:"profiling_auth_user"`
	ProfilingAuthPassword  string   `mapstructure:"profiling_auth_password"`
	ProfilingTypes         []string `mapstructure:"profiling_types"`
	SpanProfilesEnabled    bool     `mapstructure:"span_profiles_enabled"`
}

// ReceptionConfig holds the workflow settings
type ReceptionConfig struct {
	DocumentPrefix     string        `mapstructure:"document_prefix"`
	IdempotencyTTL     time.Duration `mapstructure:"idempotency_ttl"`
	IdempotencyBackend string        `mapstructure:"idempotency_backend"` // memory, redis
	StatisticsTop      int           `mapstructure:"statistics_top"`
}

// defaults registers every key, so AutomaticEnv can override keys that have
// no value in the file. An empty origin list allows no cross-origin calls.
var defaults = map[string]any{
	"app.name": "reception-service",
	"app.env":  "development",
	"app.port": "8080",

	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "reception",
	"database.sslmode":            "disable",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  60,
	"database.conn_max_idle_time": 30,
	"database.log_level":          "warn",
	"database.auto_migrate":       false,

	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"http.read_timeout":       15 * time.Second,
	"http.write_timeout":      15 * time.Second,
	"http.idle_timeout":       time.Minute,
	"http.shutdown_timeout":   10 * time.Second,
	"http.max_header_bytes":   1 << 20,
	"http.max_body_size":      int64(2 << 20),
	"http.cors_allow_origins": []string{},
	"http.cors_allow_methods": []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	"http.cors_allow_headers": []string{"Content-Type", "Authorization", "X-Request-ID", "X-User-ID", "Idempotency-Key"},
	"http.trusted_proxies":    []string{},

	"telemetry.enabled":                 false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "reception-service",
	"telemetry.insecure":                false,
	"telemetry.metrics_enabled":         false,
	"telemetry.metrics_interval":        time.Minute,
	"telemetry.log_export_enabled":      false,
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_log_full_sql":         false,
	"telemetry.db_slow_query_threshold": 200 * time.Millisecond,

	"telemetry.profiling_enabled":        false,
	"telemetry.profiling_server_address": "",
	"telemetry.profiling_auth_user":      "",
	"telemetry.profiling_auth_password":  "",
	"telemetry.profiling_types":          []string{"cpu", "alloc_space", "inuse_space", "goroutines"},
	"telemetry.span_profiles_enabled":    false,

	"reception.document_prefix":     "REC",
	"reception.idempotency_ttl":     24 * time.Hour,
	"reception.idempotency_backend": "memory",
	"reception.statistics_top":      10,
}

var documentPrefixPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]{0,9}$`)

// Load reads ./config.toml or /app/config.toml when present. RECEPTION_*
// variables (RECEPTION_DATABASE_PASSWORD for database.password) override the
// file, which overrides the defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return fromViper(v)
}

// fromViper layers defaults and environment over v and decodes the result
func fromViper(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix("RECEPTION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	cfg.Reception.DocumentPrefix = strings.ToUpper(strings.TrimSpace(cfg.Reception.DocumentPrefix))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	db, rc, tc := c.Database, c.Reception, c.Telemetry
	switch {
	case db.MaxOpenConns <= 0:
		return errors.New("database.max_open_conns must be positive")
	case db.MaxIdleConns < 0:
		return errors.New("database.max_idle_conns cannot be negative")
	case db.MaxIdleConns > db.MaxOpenConns:
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)", db.MaxIdleConns, db.MaxOpenConns)
	case !documentPrefixPattern.MatchString(rc.DocumentPrefix):
		return fmt.Errorf("reception.document_prefix %q must be 1-10 letters or digits starting with a letter", rc.DocumentPrefix)
	case rc.IdempotencyBackend != "memory" && rc.IdempotencyBackend != "redis":
		return fmt.Errorf("reception.idempotency_backend must be 'memory' or 'redis', got %q", rc.IdempotencyBackend)
	case rc.IdempotencyTTL < 0:
		return errors.New("reception.idempotency_ttl cannot be negative")
	case rc.StatisticsTop < 1 || rc.StatisticsTop > 1000:
		return fmt.Errorf("reception.statistics_top must be between 1 and 1000, got %d", rc.StatisticsTop)
	case tc.SamplingRatio < 0 || tc.SamplingRatio > 1:
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", tc.SamplingRatio)
	case tc.ProfilingEnabled && tc.ProfilingServerAddress == "":
		return errors.New("telemetry.profiling_server_address is required when profiling is enabled")
	}
	if c.App.Env == "production" {
		return c.validateProduction()
	}
	return nil
}

func (c *Config) validateProduction() error {
	switch {
	case c.Database.Password == "":
		return errors.New("database.password is required in production")
	case c.Database.SSLMode == "disable":
		return errors.New("database.sslmode cannot be 'disable' in production")
	case slices.Contains(c.HTTP.CORSAllowOrigins, "*"):
		return errors.New("http.cors_allow_origins cannot be '*' in production")
	case c.Telemetry.DBLogFullSQL:
		return errors.New("telemetry.db_log_full_sql must be false in production")
	}
	return nil
}
