// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// DBConfig selects and addresses the store.  Driver is "mysql" or "sqlite";
// the MySQL fields are only read for mysql and Path only for sqlite.
type DBConfig struct {
	Driver string
	User   string
	Pass   string
	Host   string
	Port   string
	Name   string
	Path   string
}

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env            string // APP_ENV, e.g. "dev", "prod"
	Port           string // APP_PORT
	DB             DBConfig
	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int

	WorkdayStart    time.Duration // offset from UTC midnight; later punch-ins are Late
	StorageDir      string
	UploadMaxBytes  int64
	UploadHandleTTL time.Duration

	EventsEnabled bool
	EventLogDir   string
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	c := Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DB:             loadDB(),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),

		StorageDir:      envStr("STORAGE_DIR", "uploads"),
		UploadMaxBytes:  int64(envInt("UPLOAD_MAX_MB", 25)) << 20,
		UploadHandleTTL: envDur("UPLOAD_HANDLE_TTL", 15*time.Minute),

		EventsEnabled: envBool("EVENTS_ENABLED", true),
		EventLogDir:   envStr("EVENT_LOG_DIR", "logs"),
	}
	start, err := ParseClock(envStr("WORKDAY_START", "09:00"))
	if err != nil {
		log.Fatalf("invalid WORKDAY_START: %v", err)
	}
	c.WorkdayStart = start
	return c
}

func loadDB() DBConfig {
	driver := strings.ToLower(envStr("DB_DRIVER", "mysql"))
	switch driver {
	case "sqlite":
		return DBConfig{Driver: driver, Path: envStr("DB_PATH", "fieldops.db")}
	case "mysql":
		return DBConfig{
			Driver: driver,
			User:   must("DB_USER"),
			Pass:   os.Getenv("DB_PASS"), // empty allowed
			Host:   must("DB_HOST"),
			Port:   must("DB_PORT"),
			Name:   must("DB_NAME"),
		}
	}
	log.Fatalf("unsupported DB_DRIVER %q (mysql or sqlite)", driver)
	return DBConfig{}
}

// ParseClock turns "HH:MM" into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("want HH:MM, got %q", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
