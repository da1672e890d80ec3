package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// DedupPolicy decides which record survives when a transaction ID appears in
// both the rule-based and the contextual finding sets.
type DedupPolicy string

const (
	// DedupDirectWins keeps the rule-based violation and drops the
	// contextual finding for the same transaction.
	DedupDirectWins DedupPolicy = "direct_wins"
	// DedupContextualWins keeps the contextual finding instead.
	DedupContextualWins DedupPolicy = "contextual_wins"
)

// Config holds the full configuration surface of an audit run.
type Config struct {
	// Input data
	TransactionsPath string // local path or gs:// URI
	EmailsPath       string // local path or gs:// URI

	// LLM adjudication
	LLMEnabled    bool
	ModelName     string
	MaxLLMCalls   int
	LLMWorkers    int
	MinConfidence int

	// Detection constants
	SmurfingWindowDays    int
	SmurfingLimit         float64
	CorrelationWindowDays int
	MinCrossMatchScore    int

	// Consolidation
	Dedup DedupPolicy

	// Report artifacts
	OutputDir string

	// Optional sinks
	GCSBucket       string // upload report artifacts when set
	BigQueryProject string // insert findings when both project and dataset set
	BigQueryDataset string
	NotionToken     string // sync findings when both token and database set
	NotionDatabase  string
}

// Load reads configuration from a .env file (if present) and the
// environment, applying defaults and validating the result.
func Load() (*Config, error) {
	// Missing .env is fine; plain environment variables still apply.
	_ = godotenv.Load()

	cfg := &Config{
		TransactionsPath: getEnvOrDefault("TRANSACTIONS_PATH", "data/transacoes_bancarias.csv"),
		EmailsPath:       getEnvOrDefault("EMAILS_PATH", "data/emails.txt"),

		LLMEnabled: getEnvOrDefault("LLM_ENABLED", "true") == "true",
		ModelName:  getEnvOrDefault("LLM_MODEL", "gemini-2.5-flash"),

		Dedup:     DedupPolicy(getEnvOrDefault("DEDUP_POLICY", string(DedupDirectWins))),
		OutputDir: getEnvOrDefault("OUTPUT_DIR", "."),

		GCSBucket:       os.Getenv("GCS_BUCKET"),
		BigQueryProject: os.Getenv("BQ_PROJECT"),
		BigQueryDataset: os.Getenv("BQ_DATASET"),
		NotionToken:     os.Getenv("NOTION_TOKEN"),
		NotionDatabase:  os.Getenv("NOTION_FINDINGS_DB"),
	}

	var err error
	if cfg.MaxLLMCalls, err = getEnvInt("LLM_MAX_CALLS", 50); err != nil {
		return nil, err
	}
	if cfg.LLMWorkers, err = getEnvInt("LLM_WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.MinConfidence, err = getEnvInt("LLM_MIN_CONFIDENCE", 70); err != nil {
		return nil, err
	}
	if cfg.SmurfingWindowDays, err = getEnvInt("SMURFING_WINDOW_DAYS", 3); err != nil {
		return nil, err
	}
	if cfg.SmurfingLimit, err = getEnvFloat("SMURFING_LIMIT", 500); err != nil {
		return nil, err
	}
	if cfg.CorrelationWindowDays, err = getEnvInt("CORRELATION_WINDOW_DAYS", 7); err != nil {
		return nil, err
	}
	if cfg.MinCrossMatchScore, err = getEnvInt("MIN_CROSS_MATCH_SCORE", 3); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks invariants that would otherwise surface as confusing
// runtime behavior deep inside the pipeline.
func (c *Config) Validate() error {
	if c.TransactionsPath == "" {
		return fmt.Errorf("TRANSACTIONS_PATH is required")
	}
	if c.EmailsPath == "" {
		return fmt.Errorf("EMAILS_PATH is required")
	}
	if c.Dedup != DedupDirectWins && c.Dedup != DedupContextualWins {
		return fmt.Errorf("DEDUP_POLICY must be %q or %q, got %q", DedupDirectWins, DedupContextualWins, c.Dedup)
	}
	if c.LLMWorkers < 1 {
		return fmt.Errorf("LLM_WORKERS must be at least 1")
	}
	if c.MaxLLMCalls < 0 {
		return fmt.Errorf("LLM_MAX_CALLS must not be negative")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 100 {
		return fmt.Errorf("LLM_MIN_CONFIDENCE must be between 0 and 100")
	}
	if c.SmurfingWindowDays < 1 || c.CorrelationWindowDays < 1 {
		return fmt.Errorf("detection windows must be at least 1 day")
	}
	if c.SmurfingLimit <= 0 {
		return fmt.Errorf("SMURFING_LIMIT must be positive")
	}
	if (c.BigQueryProject == "") != (c.BigQueryDataset == "") {
		return fmt.Errorf("BQ_PROJECT and BQ_DATASET must be set together")
	}
	if (c.NotionToken == "") != (c.NotionDatabase == "") {
		return fmt.Errorf("NOTION_TOKEN and NOTION_FINDINGS_DB must be set together")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
