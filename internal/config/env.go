package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// DBConfig holds Postgres connection settings, read from the environment.
type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// LoadDB reads database settings from the environment, loading a .env file
// first when one exists.
func LoadDB() DBConfig {
	_ = godotenv.Load()

	return DBConfig{
		Host:     getenv("DB_HOST", "localhost"),
		Port:     getenv("DB_PORT", "5432"),
		User:     getenv("DB_USER", "postgres"),
		Password: getenv("DB_PASSWORD", "postgres"),
		Name:     getenv("DB_NAME", "tally"),
		SSLMode:  getenv("DB_SSLMODE", "disable"),
	}
}

// DSN returns the lib/pq connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
