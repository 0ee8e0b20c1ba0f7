package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// TenantConfig carries everything one tenant's operations need: where the
// ledger lives, which ledger file to select, which bank account feeds it, and
// the tenant's data directory for the stateful ledger connection.
type TenantConfig struct {
	TenantID string

	// Ledger service
	LedgerServerURL string
	LedgerPassword  string
	LedgerSyncID    string
	LedgerAccountID string

	// Open Banking provider
	ProviderAccountRef string

	// Local scratch space for the ledger connection
	DataDir string
}

// Config is the process-wide configuration. Per-tenant credential storage is
// an external collaborator; this config describes a single default tenant
// resolved from the environment plus the global knobs.
type Config struct {
	TenantID string

	LedgerServerURL string
	LedgerPassword  string
	LedgerSyncID    string
	LedgerAccountID string

	ProviderBaseURL    string
	ProviderToken      string
	ProviderAccountRef string

	DataDir string

	ModelName     string
	MaxToolRounds int
	HistoryPairs  int

	SyncLookback time.Duration
	StatePath    string
}

const (
	DefaultModelName     = "gemini-2.0-flash"
	DefaultMaxToolRounds = 10
	DefaultHistoryPairs  = 10
	DefaultSyncLookback  = 90 * 24 * time.Hour
)

func Load() *Config {
	dataDir := getEnv("LEDGERLINK_DATA_DIR", "./data")

	return &Config{
		TenantID: getEnv("LEDGERLINK_TENANT_ID", "default"),

		LedgerServerURL: getEnv("LEDGER_SERVER_URL", ""),
		LedgerPassword:  getEnv("LEDGER_PASSWORD", ""),
		LedgerSyncID:    getEnv("LEDGER_SYNC_ID", ""),
		LedgerAccountID: getEnv("LEDGER_ACCOUNT_ID", ""),

		ProviderBaseURL:    getEnv("OPENBANKING_BASE_URL", ""),
		ProviderToken:      getEnv("OPENBANKING_TOKEN", ""),
		ProviderAccountRef: getEnv("OPENBANKING_ACCOUNT_REF", ""),

		DataDir: dataDir,

		ModelName:     getEnv("LEDGERLINK_MODEL", DefaultModelName),
		MaxToolRounds: getEnvInt("LEDGERLINK_MAX_TOOL_ROUNDS", DefaultMaxToolRounds),
		HistoryPairs:  getEnvInt("LEDGERLINK_HISTORY_PAIRS", DefaultHistoryPairs),

		SyncLookback: getEnvDuration("LEDGERLINK_SYNC_LOOKBACK", DefaultSyncLookback),
		StatePath:    getEnv("LEDGERLINK_STATE_PATH", filepath.Join(dataDir, "ledgerlink.db")),
	}
}

// Tenant resolves the default tenant's TenantConfig.
func (c *Config) Tenant() TenantConfig {
	return TenantConfig{
		TenantID:           c.TenantID,
		LedgerServerURL:    c.LedgerServerURL,
		LedgerPassword:     c.LedgerPassword,
		LedgerSyncID:       c.LedgerSyncID,
		LedgerAccountID:    c.LedgerAccountID,
		ProviderAccountRef: c.ProviderAccountRef,
		DataDir:            filepath.Join(c.DataDir, c.TenantID),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if c.TenantID == "" {
		errors = append(errors, "tenant id cannot be empty")
	}

	if c.LedgerServerURL == "" {
		errors = append(errors, "LEDGER_SERVER_URL is required")
	} else if parsed, err := url.Parse(c.LedgerServerURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid ledger server URL '%s': %v", c.LedgerServerURL, err))
	} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid ledger server URL scheme '%s': must be 'http' or 'https'", parsed.Scheme))
	}

	if c.LedgerSyncID == "" {
		errors = append(errors, "LEDGER_SYNC_ID is required")
	}
	if c.LedgerAccountID == "" {
		errors = append(errors, "LEDGER_ACCOUNT_ID is required")
	}

	if c.ProviderBaseURL == "" {
		errors = append(errors, "OPENBANKING_BASE_URL is required")
	} else if parsed, err := url.Parse(c.ProviderBaseURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid provider base URL '%s': %v", c.ProviderBaseURL, err))
	} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid provider base URL scheme '%s': must be 'http' or 'https'", parsed.Scheme))
	}

	if c.ProviderAccountRef == "" {
		errors = append(errors, "OPENBANKING_ACCOUNT_REF is required")
	}

	if c.MaxToolRounds < 1 || c.MaxToolRounds > 50 {
		errors = append(errors, fmt.Sprintf("invalid max tool rounds %d: must be between 1 and 50", c.MaxToolRounds))
	}
	if c.HistoryPairs < 1 {
		errors = append(errors, fmt.Sprintf("invalid history pairs %d: must be at least 1", c.HistoryPairs))
	}
	if c.SyncLookback < 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync lookback %v: must be at least 24h", c.SyncLookback))
	}

	if c.DataDir == "" {
		errors = append(errors, "data directory cannot be empty")
	} else if _, err := os.Stat(c.DataDir); os.IsNotExist(err) {
		if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
			errors = append(errors, fmt.Sprintf("cannot create data directory '%s': %v", c.DataDir, err))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
