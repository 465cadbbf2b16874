package config

import (
	"os"
)

type Config struct {
	Port        string
	Environment string
	DatabaseURL string
	CORSOrigins string
	TablePrefix string
	// Google auth: the OAuth client id is the required audience on incoming
	// ID tokens. The JWKS URL is overridable for tests.
	GoogleClientID string
	GoogleJWKSURL  string
	// LLM Configuration
	DefaultProvider string
	GraphQLEndpoint string
	AnthropicAPIKey string
	AnthropicModel  string
	// Logging
	LogDir      string
	LogMaxFiles int
	// Debug flags
	Debug bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    env,
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		CORSOrigins:    getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix:    getTablePrefix(env),
		GoogleClientID: getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleJWKSURL:  getEnv("GOOGLE_JWKS_URL", ""),
		// LLM Configuration
		DefaultProvider: getEnv("DEFAULT_PROVIDER", "graphql"),
		GraphQLEndpoint: getEnv("GRAPHQL_ENDPOINT", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", ""),
		// Logging
		LogDir:      getEnv("LOG_DIR", ""),
		LogMaxFiles: 10,
		// Debug defaults to true outside prod
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
