package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/example/roombooking/internal/logging"
)

const (
	envPrefix = "ROOMBOOKING_"

	defaultTimezone = "America/Los_Angeles"
	// Longest booking, in hours, an operator may allow.
	maxDurationCap = 3
)

// Store drivers understood by the service.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config captures environment driven configuration values for the booking service.
type Config struct {
	HTTPPort int

	StoreDriver string
	SQLiteDSN   string
	DatabaseURL string

	Location         *time.Location
	EmailDomain      string
	MaxDurationHours int

	RedisAddr      string
	OccupancyTTL   time.Duration
	SessionIdleTTL time.Duration

	EmailRelayURL    string
	EmailRelayAPIKey string
	EmailFrom        string

	KafkaBrokers []string
	KafkaTopic   string

	AdminToken string
	SeedRooms  bool

	LogLevel  slog.Level
	LogFormat string
}

// Load parses configuration values from the current process environment.
//
// Optional fields fall back to defaults. Every missing or malformed variable
// is reported in a single error.
func Load() (Config, error) {
	var missing, invalid []string

	location, err := time.LoadLocation(defaultTimezone)
	if err != nil {
		invalid = append(invalid, envPrefix+"TIMEZONE")
		location = time.UTC
	}
	cfg := Config{
		HTTPPort:         8080,
		StoreDriver:      DriverSQLite,
		SQLiteDSN:        "roombooking.db",
		Location:         location,
		EmailDomain:      "berkeley.edu",
		MaxDurationHours: 3,
		OccupancyTTL:     30 * time.Second,
		SessionIdleTTL:   30 * time.Minute,
		EmailFrom:        "onboarding@resend.dev",
		KafkaTopic:       "booking.confirmed",
		LogLevel:         slog.LevelInfo,
		LogFormat:        "json",
	}

	if value := env("HTTP_PORT"); value != "" {
		port, err := strconv.Atoi(value)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, envPrefix+"HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if value := env("STORE_DRIVER"); value != "" {
		switch strings.ToLower(value) {
		case DriverSQLite, DriverPostgres:
			cfg.StoreDriver = strings.ToLower(value)
		default:
			invalid = append(invalid, envPrefix+"STORE_DRIVER")
		}
	}
	if value := env("SQLITE_DSN"); value != "" {
		cfg.SQLiteDSN = value
	}
	cfg.DatabaseURL = env("DATABASE_URL")
	if cfg.StoreDriver == DriverPostgres && cfg.DatabaseURL == "" {
		missing = append(missing, envPrefix+"DATABASE_URL")
	}

	if value := env("TIMEZONE"); value != "" {
		loc, err := time.LoadLocation(value)
		if err != nil {
			invalid = append(invalid, envPrefix+"TIMEZONE")
		} else {
			cfg.Location = loc
		}
	}
	if value := env("EMAIL_DOMAIN"); value != "" {
		cfg.EmailDomain = strings.ToLower(strings.TrimPrefix(value, "@"))
	}
	if value := env("MAX_DURATION_HOURS"); value != "" {
		hours, err := strconv.Atoi(value)
		if err != nil || hours < 1 || hours > maxDurationCap {
			invalid = append(invalid, envPrefix+"MAX_DURATION_HOURS")
		} else {
			cfg.MaxDurationHours = hours
		}
	}

	cfg.RedisAddr = env("REDIS_ADDR")
	parseDuration("OCCUPANCY_TTL", &cfg.OccupancyTTL, &invalid)
	parseDuration("SESSION_IDLE_TTL", &cfg.SessionIdleTTL, &invalid)

	cfg.EmailRelayURL = env("EMAIL_RELAY_URL")
	cfg.EmailRelayAPIKey = env("EMAIL_RELAY_API_KEY")
	if cfg.EmailRelayURL != "" && cfg.EmailRelayAPIKey == "" {
		missing = append(missing, envPrefix+"EMAIL_RELAY_API_KEY")
	}
	if value := env("EMAIL_FROM"); value != "" {
		cfg.EmailFrom = value
	}

	cfg.KafkaBrokers = splitList(env("KAFKA_BROKERS"))
	if value := env("KAFKA_TOPIC"); value != "" {
		cfg.KafkaTopic = value
	}

	cfg.AdminToken = env("ADMIN_TOKEN")
	if value := env("SEED_ROOMS"); value != "" {
		seed, err := strconv.ParseBool(value)
		if err != nil {
			invalid = append(invalid, envPrefix+"SEED_ROOMS")
		} else {
			cfg.SeedRooms = seed
		}
	}

	if value := env("LOG_LEVEL"); value != "" {
		level, err := logging.ParseLevel(value)
		if err != nil {
			invalid = append(invalid, envPrefix+"LOG_LEVEL")
		} else {
			cfg.LogLevel = level
		}
	}
	if value := env("LOG_FORMAT"); value != "" {
		switch strings.ToLower(value) {
		case "json", "text":
			cfg.LogFormat = strings.ToLower(value)
		default:
			invalid = append(invalid, envPrefix+"LOG_FORMAT")
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + key))
}

func parseDuration(key string, target *time.Duration, invalid *[]string) {
	value := env(key)
	if value == "" {
		return
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		*invalid = append(*invalid, envPrefix+key)
		return
	}
	*target = d
}

// splitList splits a comma separated value, dropping blanks.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
