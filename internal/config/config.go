package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Port string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Scheduler. The civil timezone defines the generation window and the
	// backstop time; it must not default to the host's local time.
	SchedulerTimezone string
	WindowStartHour   int
	WindowEndHour     int
	BackstopHour      int
	RetentionYears    int
	Holidays          []string
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		Port: getEnv("PORT", "8080"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "finanzas"),
		DBPassword: getEnv("DB_PASSWORD", "finanzas"),
		DBName:     getEnv("DB_NAME", "finanzas"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		SchedulerTimezone: getEnv("SCHEDULER_TZ", "America/Bogota"),
		WindowStartHour:   getEnvInt("SCHEDULER_WINDOW_START", 7),
		WindowEndHour:     getEnvInt("SCHEDULER_WINDOW_END", 22),
		BackstopHour:      getEnvInt("SCHEDULER_BACKSTOP_HOUR", 6),
		RetentionYears:    getEnvInt("RETENTION_YEARS", 2),
		Holidays:          getEnvList("HOLIDAYS"),
	}

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// Location resolves the configured scheduler timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.SchedulerTimezone)
}

// RetentionCutoff returns the date before which generated transactions
// are eligible for the monthly retention sweep.
func (c *Config) RetentionCutoff(now time.Time) time.Time {
	return now.AddDate(-c.RetentionYears, 0, 0)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: invalid %s value %q, falling back to %d\n", key, value, defaultValue)
		return defaultValue
	}
	return n
}

// getEnvList retrieves a comma-separated environment variable as a slice.
func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
