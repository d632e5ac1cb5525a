package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Environment string          `mapstructure:"environment"`
	Debug       bool            `mapstructure:"debug"`
	Server      ServerConfig    `mapstructure:"server"`
	Source      SourceConfig    `mapstructure:"source"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Kafka       KafkaConfig     `mapstructure:"kafka"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Dashboard   DashboardConfig `mapstructure:"dashboard"`
	RealTime    RealTimeConfig  `mapstructure:"real_time"`
	Security    SecurityConfig  `mapstructure:"security"`
	Logging     LoggingConfig   `mapstructure:"logging"`
	Metrics     MetricsConfig   `mapstructure:"metrics"`
}

// ServerConfig contains HTTP and gRPC server settings
type ServerConfig struct {
	HTTPPort        int           `mapstructure:"http_port"`
	GRPCPort        int           `mapstructure:"grpc_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
}

// SourceConfig points at the case-report backend the working set is read from
type SourceConfig struct {
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
}

// RedisConfig contains Redis connection and payload cache settings
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	Database     int           `mapstructure:"database"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size"`
	CacheKey     string        `mapstructure:"cache_key"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
}

// Addr returns the host:port of the Redis server
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// KafkaConfig contains case-event consumer settings
type KafkaConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Brokers        []string      `mapstructure:"brokers"`
	Topic          string        `mapstructure:"topic"`
	GroupID        string        `mapstructure:"group_id"`
	MinBytes       int           `mapstructure:"min_bytes"`
	MaxBytes       int           `mapstructure:"max_bytes"`
	CommitInterval time.Duration `mapstructure:"commit_interval"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
}

// DatabaseConfig contains the saved-views database settings
type DatabaseConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	Name               string        `mapstructure:"name"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
	SSLMode            string        `mapstructure:"ssl_mode"`
	MaxOpenConnections int           `mapstructure:"max_open_connections"`
	MaxIdleConnections int           `mapstructure:"max_idle_connections"`
	ConnMaxLifetime    time.Duration `mapstructure:"connection_max_lifetime"`
}

// DSN returns the postgres connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.Username, d.Password, d.Name, d.SSLMode)
}

// DashboardConfig contains query and refresh settings
type DashboardConfig struct {
	Timezone        string `mapstructure:"timezone"`
	DefaultPageSize int    `mapstructure:"default_page_size"`
	MaxPageSize     int    `mapstructure:"max_page_size"`
	PageWindow      int    `mapstructure:"page_window"`
	RefreshSchedule string `mapstructure:"refresh_schedule"`
}

// Location returns the configured timezone, falling back to UTC
func (d DashboardConfig) Location() *time.Location {
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// RealTimeConfig contains WebSocket settings
type RealTimeConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	ReadBufferSize  int  `mapstructure:"read_buffer_size"`
	WriteBufferSize int  `mapstructure:"write_buffer_size"`
	CheckOrigin     bool `mapstructure:"check_origin"`
}

// SecurityConfig contains API authentication settings
type SecurityConfig struct {
	AuthEnabled   bool          `mapstructure:"auth_enabled"`
	JWTSecret     string        `mapstructure:"jwt_secret"`
	Issuer        string        `mapstructure:"issuer"`
	TokenDuration time.Duration `mapstructure:"token_duration"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// MetricsConfig contains Prometheus settings
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load loads configuration from file and environment variables. A missing
// file is not an error: defaults and environment still apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetEnvPrefix("CASE_DASHBOARD")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, errors.Wrap(err, "failed to read config file")
			}
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrap(err, "failed to stat config file")
		}
	}

	overrideWithEnvVars(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("debug", false)

	// Server defaults
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.grpc_port", 9090)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.max_header_bytes", 1048576)

	// Source defaults
	v.SetDefault("source.url", "http://localhost:8000/api/signalements/")
	v.SetDefault("source.token", "")
	v.SetDefault("source.timeout", "15s")
	v.SetDefault("source.retries", 2)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.cache_key", "case-dashboard:working-set")
	v.SetDefault("redis.cache_ttl", "5m")

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "case-events")
	v.SetDefault("kafka.group_id", "case-dashboard")
	v.SetDefault("kafka.min_bytes", 1)
	v.SetDefault("kafka.max_bytes", 10485760)
	v.SetDefault("kafka.commit_interval", "1s")
	v.SetDefault("kafka.read_timeout", "30s")

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "case_dashboard")
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_connections", 10)
	v.SetDefault("database.max_idle_connections", 5)
	v.SetDefault("database.connection_max_lifetime", "5m")

	// Dashboard defaults
	v.SetDefault("dashboard.timezone", "UTC")
	v.SetDefault("dashboard.default_page_size", 10)
	v.SetDefault("dashboard.max_page_size", 100)
	v.SetDefault("dashboard.page_window", 5)
	v.SetDefault("dashboard.refresh_schedule", "0 */5 * * * *")

	// Real-time defaults
	v.SetDefault("real_time.enabled", true)
	v.SetDefault("real_time.read_buffer_size", 1024)
	v.SetDefault("real_time.write_buffer_size", 1024)
	v.SetDefault("real_time.check_origin", false)

	// Security defaults
	v.SetDefault("security.auth_enabled", false)
	v.SetDefault("security.jwt_secret", "")
	v.SetDefault("security.issuer", "case-dashboard")
	v.SetDefault("security.token_duration", "1h")

	// Logging defaults
	v.SetDefault("logging.level", "info")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// overrideWithEnvVars applies the unprefixed variables shared with other services
func overrideWithEnvVars(v *viper.Viper) {
	// Database environment variables
	if host := os.Getenv("DATABASE_HOST"); host != "" {
		v.Set("database.host", host)
	}
	if port := os.Getenv("DATABASE_PORT"); port != "" {
		v.Set("database.port", port)
	}
	if name := os.Getenv("DATABASE_NAME"); name != "" {
		v.Set("database.name", name)
	}
	if username := os.Getenv("DATABASE_USERNAME"); username != "" {
		v.Set("database.username", username)
	}
	if password := os.Getenv("DATABASE_PASSWORD"); password != "" {
		v.Set("database.password", password)
	}

	// Redis environment variables
	if host := os.Getenv("REDIS_HOST"); host != "" {
		v.Set("redis.host", host)
	}
	if port := os.Getenv("REDIS_PORT"); port != "" {
		v.Set("redis.port", port)
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		v.Set("redis.password", password)
	}

	// Kafka environment variables
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		v.Set("kafka.brokers", strings.Split(brokers, ","))
	}

	// Security environment variables
	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		v.Set("security.jwt_secret", jwtSecret)
	}
	if token := os.Getenv("SOURCE_TOKEN"); token != "" {
		v.Set("source.token", token)
	}
}

// Validate checks the configuration for values the service cannot run with
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 {
		return errors.New("server.http_port must be positive")
	}
	if c.Server.GRPCPort <= 0 {
		return errors.New("server.grpc_port must be positive")
	}
	if c.Source.URL == "" {
		return errors.New("source.url is required")
	}
	if _, err := time.LoadLocation(c.Dashboard.Timezone); err != nil {
		return errors.Wrapf(err, "unknown dashboard.timezone %q", c.Dashboard.Timezone)
	}
	if c.Dashboard.MaxPageSize <= 0 {
		return errors.New("dashboard.max_page_size must be positive")
	}
	if c.Dashboard.DefaultPageSize <= 0 || c.Dashboard.DefaultPageSize > c.Dashboard.MaxPageSize {
		return errors.Errorf("dashboard.default_page_size must be between 1 and %d", c.Dashboard.MaxPageSize)
	}
	if c.Security.AuthEnabled && c.Security.JWTSecret == "" {
		return errors.New("security.jwt_secret is required when auth is enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is required when kafka is enabled")
	}
	if c.Database.Enabled && c.Database.Host == "" {
		return errors.New("database.host is required when the database is enabled")
	}
	return nil
}
