package config

import (
	"os"
	"strings"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string
	ArchiveDriver   string
	SQLitePath      string
	DatabaseURL     string
	TokenSecret     string
}

// Load reads configuration from environment variables with sensible defaults.
// TOKEN_SECRET deliberately has no default: bootstrap treats an empty secret
// as a fatal configuration error.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             normalizeEnv(getEnv("ENV", "dev")),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "*")),
		ArchiveDriver:   normalizeDriver(getEnv("ARCHIVE_DRIVER", "sqlite")),
		SQLitePath:      getEnv("ARCHIVE_SQLITE_PATH", "./data/archive.db"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		TokenSecret:     os.Getenv("TOKEN_SECRET"),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeDriver(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "postgres", "pg":
		return "postgres"
	case "memory":
		return "memory"
	default:
		return "sqlite"
	}
}
