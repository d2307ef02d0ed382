package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Redis    RedisConfig
	Serving  ServingConfig
}

type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type JWTConfig struct {
	SecretKey string
}

type RedisConfig struct {
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
}

// ServingConfig holds host-level serving defaults. Per-ad-type overrides live
// in the serving_configs table and are loaded by the serving service.
type ServingConfig struct {
	Epsilon            float64
	MinimumWaitSeconds int
	SubdivisionCode    string
	IssuersValid       bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, errors.New("invalid redis database")
	}

	epsilon, err := strconv.ParseFloat(getEnv("SERVING_EPSILON", "0.25"), 64)
	if err != nil || epsilon < 0 || epsilon > 1 {
		return nil, errors.New("invalid serving epsilon")
	}

	minWait, err := strconv.Atoi(getEnv("SERVING_MINIMUM_WAIT_SECONDS", "60"))
	if err != nil || minWait < 0 {
		return nil, errors.New("invalid serving minimum wait")
	}

	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Ad Serving API"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("APP_ENV", "development"),
		},
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "ad_serving"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET", ""),
		},
		Redis: RedisConfig{
			RedisHost:     getEnv("REDIS_HOST", "localhost"),
			RedisPort:     getEnv("REDIS_PORT", "6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       redisDB,
		},
		Serving: ServingConfig{
			Epsilon:            epsilon,
			MinimumWaitSeconds: minWait,
			SubdivisionCode:    getEnv("SERVING_SUBDIVISION_CODE", ""),
			IssuersValid:       getEnv("SERVING_ISSUERS_VALID", "true") == "true",
		},
	}

	if cfg.JWT.SecretKey == "" {
		return nil, errors.New("missing jwt secret")
	}

	if cfg.Database.Password == "" {
		return nil, errors.New("missing database password")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return defaultVal
}
