package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        int
	NatsURL     string
	NatsToken   string
	DatabaseURL string
	LogLevel    string

	LLMProvider string
	LLMEndpoint string
	LLMAPIKey   string
	LLMModel    string

	AnthropicAPIKey string
	AnthropicModel  string

	SlackBotToken string
	SlackChannel  string

	WorkOrderURL string
	RulesFile    string
	RuleCacheTTL time.Duration

	BatchSize        int
	MaxConcurrent    int
	OracleTimeout    time.Duration
	KeepAllResults   bool
	CleanupRetention time.Duration
}

func Load() Config {
	return Config{
		Port:        envInt("VIGIL_PORT", 8780),
		NatsURL:     envStr("NATS_URL", "nats://localhost:4222"),
		NatsToken:   envStr("NATS_TOKEN", ""),
		DatabaseURL: envStr("DATABASE_URL", ""),
		LogLevel:    envStr("LOG_LEVEL", "info"),

		LLMProvider: envStr("LLM_PROVIDER", "openai"),
		LLMEndpoint: envStr("LLM_ENDPOINT", "https://api.siliconflow.cn/v1"),
		LLMAPIKey:   envStr("LLM_API_KEY", ""),
		LLMModel:    envStr("LLM_MODEL", "Qwen/Qwen2.5-7B-Instruct"),

		AnthropicAPIKey: envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  envStr("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),

		SlackBotToken: envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel:  envStr("SLACK_ALERTS_CHANNEL", ""),

		WorkOrderURL: envStr("WORKORDER_URL", ""),
		RulesFile:    envStr("VIGIL_RULES_FILE", ""),
		RuleCacheTTL: envDuration("VIGIL_RULE_CACHE_TTL", 5*time.Minute),

		BatchSize:        envInt("VIGIL_BATCH_SIZE", 50),
		MaxConcurrent:    envInt("VIGIL_MAX_CONCURRENT", 4),
		OracleTimeout:    envDuration("VIGIL_ORACLE_TIMEOUT", 2*time.Minute),
		KeepAllResults:   envBool("VIGIL_KEEP_ALL_RESULTS", false),
		CleanupRetention: envDuration("VIGIL_CLEANUP_RETENTION", 30*24*time.Hour),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
