package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"markit/pkg/logger"
)

// Config holds everything the server reads from the environment.
type Config struct {
	DBUser     string
	DBPass     string
	DBHost     string
	DBPort     string
	DBName     string
	JWTSecret  string
	ListenAddr string
}

// Load reads a .env file if one exists, then the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logger.Sugar.Info("No .env file found, using environment variables from OS")
	}

	cfg := &Config{
		DBUser:     getenv("user"),
		DBPass:     getenv("password"),
		DBHost:     getenv("host"),
		DBPort:     getenv("port"),
		DBName:     getenv("dbname"),
		JWTSecret:  getenv("JWT_SECRET"),
		ListenAddr: getenv("LISTEN_ADDR"),
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	return cfg
}

// DatabaseURL builds the Postgres connection string.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=require",
		c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName)
}

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
