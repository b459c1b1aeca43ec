package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Verification VerificationConfig
	RateLimit    RateLimitConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Debug       bool
	Timeout     time.Duration
	Port        string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	Database     int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
}

type JWTConfig struct {
	Secret                 string
	AccessTokenLifetime    time.Duration
	RefreshTokenLifetime   time.Duration
	SigningAlgorithm       string
	RotateRefreshTokens    bool
	BlacklistAfterRotation bool
}

type VerificationConfig struct {
	CodeDigits           int
	VerificationTimeout  time.Duration
	ResetPasswordTimeout time.Duration
	DefaultPhoneRegion   string
	JobWorkers           int
	JobQueueSize         int
}

type RateLimitConfig struct {
	Request          int
	SensitiveRequest int
	Duration         int
}

func LoadConfig() (*Config, error) {
	// Missing .env is fine, environment variables may be set directly
	_ = godotenv.Load()

	config := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "identity-service"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			Debug:       getEnvAsBool("APP_DEBUG", true),
			Timeout:     getEnvAsDuration("APP_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "identity_db"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 10*time.Minute),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvAsInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			Database:     getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
			DialTimeout:  getEnvAsDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvAsDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvAsDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			PoolTimeout:  getEnvAsDuration("REDIS_POOL_TIMEOUT", 4*time.Second),
		},
		JWT: JWTConfig{
			Secret:                 getEnv("JWT_SECRET", "default_secret_key_change_in_production"),
			AccessTokenLifetime:    getEnvAsDuration("JWT_ACCESS_LIFETIME", 15*time.Minute),
			RefreshTokenLifetime:   getEnvAsDuration("JWT_REFRESH_LIFETIME", 7*24*time.Hour),
			SigningAlgorithm:       getEnv("JWT_SIGNING_ALGORITHM", "HS256"),
			RotateRefreshTokens:    getEnvAsBool("ROTATE_REFRESH_TOKENS", true),
			BlacklistAfterRotation: getEnvAsBool("BLACKLIST_AFTER_ROTATION", true),
		},
		Verification: VerificationConfig{
			CodeDigits:           getEnvAsInt("VERIFICATION_CODE_DIGITS_COUNT", 6),
			VerificationTimeout:  getEnvAsDuration("VERIFICATION_TIMEOUT", 43200*time.Second),
			ResetPasswordTimeout: getEnvAsDuration("RESET_PASSWORD_TIMEOUT", 43200*time.Second),
			DefaultPhoneRegion:   getEnv("DEFAULT_PHONE_REGION", ""),
			JobWorkers:           getEnvAsInt("JOB_WORKERS", 4),
			JobQueueSize:         getEnvAsInt("JOB_QUEUE_SIZE", 256),
		},
		RateLimit: RateLimitConfig{
			Request:          getEnvAsInt("RATE_LIMIT_MAX_REQUEST", 20),
			SensitiveRequest: getEnvAsInt("RATE_LIMIT_SENSITIVE_REQUEST", 5),
			Duration:         getEnvAsInt("RATE_LIMIT_DURATION", 60),
		},
	}

	return config, nil
}

func (c *Config) DatabaseConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func (c *Config) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// Helper functions
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		boolValue, err := strconv.ParseBool(value)
		if err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		// Plain integers are treated as seconds, matching TTL-style settings
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
