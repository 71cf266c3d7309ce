package config

import (
	"os"
	"strconv"
)

// Config collects every environment-driven setting. Values come from
// the process environment; main loads a .env file first.
type Config struct {
	ServerAddr string
	LogFile    string

	// ServiceEndpoints maps a service name to its base URL. The set of
	// names is fixed at startup.
	ServiceEndpoints map[string]string

	// TaskHistoryLimit bounds how many completed/failed tasks stay in
	// memory before the oldest are evicted to the archive.
	TaskHistoryLimit int

	// ArchiveDriver is "", "redis" or "postgres".
	ArchiveDriver string
	RedisAddr     string
	PostgresURL   string
}

func FromEnv() Config {
	return Config{
		ServerAddr:       envOr("SERVER_ADDR", ":8080"),
		LogFile:          envOr("LOG_FILE", "logs/orchestrator.log"),
		ServiceEndpoints: serviceEndpointsFromEnv(),
		TaskHistoryLimit: envIntOr("TASK_HISTORY_LIMIT", 1000),
		ArchiveDriver:    os.Getenv("ARCHIVE_DRIVER"),
		RedisAddr:        envOr("REDIS_ADDR", "localhost:6379"),
		PostgresURL:      os.Getenv("DATABASE_URL"),
	}
}

func serviceEndpointsFromEnv() map[string]string {
	return map[string]string{
		"slack":      envOr("SLACK_MCP_ENDPOINT", "http://localhost:8001"),
		"whatsapp":   envOr("WHATSAPP_MCP_ENDPOINT", "http://localhost:8002"),
		"webex":      envOr("WEBEX_MCP_ENDPOINT", "http://localhost:8003"),
		"notion":     envOr("NOTION_MCP_ENDPOINT", "http://localhost:8004"),
		"github":     envOr("GITHUB_MCP_ENDPOINT", "http://localhost:8005"),
		"postgresql": envOr("POSTGRESQL_MCP_ENDPOINT", "http://localhost:8006"),
		"filesystem": envOr("FILESYSTEM_MCP_ENDPOINT", "http://localhost:8007"),
		"docker":     envOr("DOCKER_MCP_ENDPOINT", "http://localhost:8008"),
		"redis":      envOr("REDIS_MCP_ENDPOINT", "http://localhost:8009"),
		"tldv":       envOr("TLDV_MCP_ENDPOINT", "http://localhost:8010"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
