package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds every application setting
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Auth     AuthConfig
	Email    EmailConfig
	Storage  StorageConfig
	CORS     CORSConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           string
	ReadTimeout    int
	WriteTimeout   int
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings for single, sentinel and cluster modes
type RedisConfig struct {
	// Mode is "single", "sentinel" or "cluster". Defaults to "single".
	Mode string `mapstructure:"mode"`

	// Addrs lists host:port pairs; single mode uses the first one.
	Addrs []string `mapstructure:"addrs"`

	// Addr is used in single mode when Addrs is empty.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName is required in sentinel mode.
	MasterName string `mapstructure:"master_name"`

	MaxRetries      int `mapstructure:"max_retries"`
	MinRetryBackoff int `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"`
}

// JWTConfig holds token signing settings
type JWTConfig struct {
	Secret             string        `mapstructure:"secret"`
	AccessTokenMinutes int           `mapstructure:"access_token_minutes"`
	ResetTokenMinutes  int           `mapstructure:"reset_token_minutes"`
	CleanupInterval    time.Duration `mapstructure:"cleanup_interval"`
}

// AuthConfig holds session and one-time code settings
type AuthConfig struct {
	SessionLimit         int           `mapstructure:"session_limit"`
	RefreshTokenLifetime int           `mapstructure:"refresh_token_lifetime"` // hours
	IdleTimeout          time.Duration `mapstructure:"idle_timeout"`
	OTPTTL               time.Duration `mapstructure:"otp_ttl"`
	OTPResendCooldown    time.Duration `mapstructure:"otp_resend_cooldown"`
	OTPMaxAttempts       int           `mapstructure:"otp_max_attempts"`
	OTPPepper            string        `mapstructure:"otp_pepper"`
	SecureCookies        bool          `mapstructure:"secure_cookies"`
}

// EmailConfig holds Resend settings
type EmailConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
	From    string `mapstructure:"from"`
	AppName string `mapstructure:"app_name"`
}

// StorageConfig holds object storage settings for module media
type StorageConfig struct {
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	Bucket        string `mapstructure:"bucket"`
	UseSSL        bool   `mapstructure:"use_ssl"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	MaxUploadMB   int64  `mapstructure:"max_upload_mb"`
}

// CORSConfig holds allowed browser origins
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// PostgresConnectionString builds the PostgreSQL DSN
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// PostgresURL builds the URL form used by golang-migrate
func (d *DatabaseConfig) PostgresURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// setDefaults registers the fallback for every optional setting.
func setDefaults(vip *viper.Viper) {
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.readtimeout", 15)
	vip.SetDefault("server.writetimeout", 60)
	vip.SetDefault("database.port", "5432")
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("redis.mode", "single")
	vip.SetDefault("jwt.access_token_minutes", 30)
	vip.SetDefault("jwt.reset_token_minutes", 15)
	vip.SetDefault("jwt.cleanup_interval", time.Hour)
	vip.SetDefault("auth.session_limit", 10)
	vip.SetDefault("auth.refresh_token_lifetime", 720)
	vip.SetDefault("auth.idle_timeout", 30*time.Minute)
	vip.SetDefault("auth.otp_ttl", 10*time.Minute)
	vip.SetDefault("auth.otp_resend_cooldown", time.Minute)
	vip.SetDefault("auth.otp_max_attempts", 5)
	vip.SetDefault("auth.secure_cookies", true)
	vip.SetDefault("email.app_name", "School LMS")
	vip.SetDefault("storage.bucket", "lms-media")
	vip.SetDefault("storage.max_upload_mb", 50)
}

// Load reads configuration from configPath and explicitly bound environment variables
func Load(configPath string) (*Config, error) {
	vip := viper.New()
	setDefaults(vip)

	// Environment variables
	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")

	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	vip.BindEnv("jwt.secret", "JWT_SECRET")
	vip.BindEnv("jwt.access_token_minutes", "JWT_ACCESS_TOKEN_MINUTES")
	vip.BindEnv("jwt.cleanup_interval", "JWT_CLEANUP_INTERVAL")

	vip.BindEnv("auth.session_limit", "AUTH_SESSION_LIMIT")
	vip.BindEnv("auth.refresh_token_lifetime", "AUTH_REFRESH_TOKEN_LIFETIME")
	vip.BindEnv("auth.idle_timeout", "AUTH_IDLE_TIMEOUT")
	vip.BindEnv("auth.otp_pepper", "AUTH_OTP_PEPPER")
	vip.BindEnv("auth.secure_cookies", "AUTH_SECURE_COOKIES")

	vip.BindEnv("email.enabled", "EMAIL_ENABLED")
	vip.BindEnv("email.api_key", "RESEND_API_KEY")
	vip.BindEnv("email.from", "EMAIL_FROM")

	vip.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	vip.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	vip.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	vip.BindEnv("storage.bucket", "STORAGE_BUCKET")
	vip.BindEnv("storage.use_ssl", "STORAGE_USE_SSL")
	vip.BindEnv("storage.public_base_url", "STORAGE_PUBLIC_BASE_URL")

	vip.BindEnv("cors.allowed_origins", "CORS_ALLOWED_ORIGINS")
	vip.BindEnv("server.port", "SERVER_PORT")

	if configPath != "" {
		vip.SetConfigFile(configPath)
		// A missing file is fine: env vars and defaults still apply.
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
				log.Printf("[Config] config file '%s' not found, using environment and defaults", configPath)
			} else {
				log.Printf("[Config] warning: failed to read config file '%s': %v", configPath, err)
			}
		}
	}

	// Decode into the struct
	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Summary without secrets, outside release mode
	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Loaded configuration ---")
		log.Printf("Database: %s@%s:%s/%s (sslmode=%s)", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, cfg.Database.SSLMode)
		log.Printf("Redis: mode=%s addr=%s addrs=%v", cfg.Redis.Mode, cfg.Redis.Addr, cfg.Redis.Addrs)
		log.Printf("JWT secret set: %t, access token minutes: %d", cfg.JWT.Secret != "", cfg.JWT.AccessTokenMinutes)
		log.Printf("Idle timeout: %v, OTP TTL: %v", cfg.Auth.IdleTimeout, cfg.Auth.OTPTTL)
		log.Printf("Email enabled: %t, storage endpoint: %s", cfg.Email.Enabled, cfg.Storage.Endpoint)
		log.Printf("Server port: %s", cfg.Server.Port)
		log.Printf("----------------------------")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required settings
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt secret is required (check JWT_SECRET env var)")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("jwt secret must be at least 32 characters")
	}
	if c.Database.Host == "" || c.Database.DBName == "" || c.Database.User == "" {
		return fmt.Errorf("database configuration (host, dbname, user) is incomplete (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	if c.Email.Enabled && (c.Email.APIKey == "" || c.Email.From == "") {
		return fmt.Errorf("email is enabled but api_key or from is missing (check RESEND_API_KEY, EMAIL_FROM env vars)")
	}
	if c.Auth.IdleTimeout <= 0 {
		return fmt.Errorf("auth.idle_timeout must be positive")
	}
	return nil
}
