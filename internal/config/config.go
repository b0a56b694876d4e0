// Package config provides configuration loading for the ArtHive server.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Storage  StorageConfig  `mapstructure:"storage"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"` // dev, staging, prod
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorageConfig holds upload-store configuration.
// Backend selects the staging backend: "disk" or "s3".
type StorageConfig struct {
	Backend     string `mapstructure:"backend"`
	Dir         string `mapstructure:"dir"`
	S3Bucket    string `mapstructure:"s3_bucket"`
	S3Region    string `mapstructure:"s3_region"`
	S3Endpoint  string `mapstructure:"s3_endpoint"`
	S3AccessKey string `mapstructure:"s3_access_key"`
	S3SecretKey string `mapstructure:"s3_secret_key"`
}

// SMTPConfig holds the outbound mail transport settings.
// Credentials must come from config files or the environment; there are
// no credential defaults.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	SessionName   string        `mapstructure:"session_name"`
	SessionSecret string        `mapstructure:"session_secret"`
	SessionExpiry time.Duration `mapstructure:"session_expiry"`
	OTPTTL        time.Duration `mapstructure:"otp_ttl"`
	BcryptCost    int           `mapstructure:"bcrypt_cost"`
}

// Load reads configuration from files and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/arthive")

	// Enable environment variable override (ARTHIVE_SMTP_PASSWORD etc.)
	v.SetEnvPrefix("ARTHIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Explicitly bind secret environment variables (nested struct issue with viper)
	v.BindEnv("database.password", "ARTHIVE_DATABASE_PASSWORD")
	v.BindEnv("redis.password", "ARTHIVE_REDIS_PASSWORD")
	v.BindEnv("smtp.username", "ARTHIVE_SMTP_USERNAME")
	v.BindEnv("smtp.password", "ARTHIVE_SMTP_PASSWORD")
	v.BindEnv("storage.s3_access_key", "ARTHIVE_STORAGE_S3_ACCESS_KEY")
	v.BindEnv("storage.s3_secret_key", "ARTHIVE_STORAGE_S3_SECRET_KEY")
	v.BindEnv("auth.session_secret", "ARTHIVE_AUTH_SESSION_SECRET")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all settings.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.environment", "dev")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "arthive")
	v.SetDefault("database.password", "arthive")
	v.SetDefault("database.database", "arthive")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Storage defaults
	v.SetDefault("storage.backend", "disk")
	v.SetDefault("storage.dir", "uploads")
	v.SetDefault("storage.s3_region", "us-east-1")

	// SMTP defaults (credentials intentionally have none)
	v.SetDefault("smtp.host", "localhost")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.from", "no-reply@arthive.local")

	// Auth defaults
	v.SetDefault("auth.session_name", "arthive_session")
	v.SetDefault("auth.session_expiry", "168h") // 7 days
	v.SetDefault("auth.otp_ttl", "5m")
	v.SetDefault("auth.bcrypt_cost", 10)
}
