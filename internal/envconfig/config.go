// Package envconfig reads the server and widget defaults from the environment.
//
//   - MULTISELECT_HOST: listen address of the demo server
//   - MULTISELECT_PAGE_SIZE: fetch chunk size and client-side filtering threshold
//   - MULTISELECT_LOCALE: BCP 47 tag used for case folding in the default filter
//   - MULTISELECT_KEYS: key strategy (counter, hash, uuid)
//   - MULTISELECT_DEBUG: log level
//   - MULTISELECT_COUNT_TTL: lifetime of cached counts
//   - DATABASE_URL, REDIS_ADDR: optional backing stores
package envconfig

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
)

const DefaultPageSize = 50

// Var returns an environment variable stripped of leading and trailing quotes or spaces.
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}

// Host returns the listen address.
// Default: 127.0.0.1:8080
func Host() string {
	if s := Var("MULTISELECT_HOST"); s != "" {
		if !strings.Contains(s, ":") {
			return s + ":8080"
		}
		return s
	}
	return "127.0.0.1:8080"
}

// PageSize returns the configured page size.
// Default: 50
func PageSize() int {
	s := Var("MULTISELECT_PAGE_SIZE")
	if s == "" {
		return DefaultPageSize
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		slog.Warn("invalid page size, using default", "value", s, "default", DefaultPageSize)
		return DefaultPageSize
	}
	return n
}

// Locale returns the locale used for case folding.
// Default: und
func Locale() language.Tag {
	s := Var("MULTISELECT_LOCALE")
	if s == "" {
		return language.Und
	}
	tag, err := language.Parse(s)
	if err != nil {
		slog.Warn("invalid locale, using default", "value", s, "error", err)
		return language.Und
	}
	return tag
}

// KeyStrategy returns the configured key strategy name.
// Default: counter
func KeyStrategy() string {
	switch s := strings.ToLower(Var("MULTISELECT_KEYS")); s {
	case "", "counter":
		return "counter"
	case "hash", "uuid":
		return s
	default:
		slog.Warn("invalid key strategy, using default", "value", s, "default", "counter")
		return "counter"
	}
}

// LogLevel returns the log level.
// MULTISELECT_DEBUG=1 or true enables debug, a level name is accepted too.
// Default: info
func LogLevel() slog.Level {
	s := strings.ToLower(Var("MULTISELECT_DEBUG"))
	switch s {
	case "":
		return slog.LevelInfo
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if b, err := strconv.ParseBool(s); err == nil {
		if b {
			return slog.LevelDebug
		}
		return slog.LevelInfo
	}
	return slog.LevelInfo
}

// CountTTL returns how long cached counts live.
// Default: 30s
func CountTTL() time.Duration {
	const def = 30 * time.Second
	s := Var("MULTISELECT_COUNT_TTL")
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	slog.Warn("invalid count ttl, using default", "value", s, "default", def)
	return def
}

func DatabaseURL() string { return Var("DATABASE_URL") }

func RedisAddr() string { return Var("REDIS_ADDR") }

// AsMap reports the effective configuration, used by the server at startup.
func AsMap() map[string]any {
	return map[string]any{
		"MULTISELECT_HOST":      Host(),
		"MULTISELECT_PAGE_SIZE": PageSize(),
		"MULTISELECT_LOCALE":    Locale().String(),
		"MULTISELECT_KEYS":      KeyStrategy(),
		"MULTISELECT_DEBUG":     LogLevel().String(),
		"MULTISELECT_COUNT_TTL": CountTTL().String(),
		"DATABASE_URL":          DatabaseURL() != "",
		"REDIS_ADDR":            RedisAddr(),
	}
}
