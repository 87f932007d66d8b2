// Package core provides the main memlens client: memory storage, awareness
// scanning, explicit retrieval, and lifecycle orchestration behind one API.
package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/memlens/memlens-go/pkg/lifecycle"
	"github.com/memlens/memlens-go/pkg/memory"
)

// Config contains the complete configuration for a memlens client.
//
// It includes settings for:
//   - Representation provider (metadata/summary/embedding generation)
//   - Archive store (snapshot persistence for archived and deleted memories)
//   - Lifecycle management (automation level, capacity, schedule)
//   - Threshold overrides per context type (optional)
//
// Example:
//
//	config := &core.Config{
//	    Representation: core.RepresentationConfig{
//	        Provider:   "openai",
//	        APIKey:     "sk-...",
//	        Dimensions: 1536,
//	    },
//	    Archive: core.ArchiveConfig{
//	        Provider: "sqlite",
//	        DBPath:   "./memlens-archive.db",
//	    },
//	}
type Config struct {
	// Representation contains representation provider configuration.
	Representation RepresentationConfig `json:"representation"`

	// Archive contains archive store configuration (optional; empty
	// provider disables snapshots).
	Archive ArchiveConfig `json:"archive"`

	// Lifecycle contains lifecycle management configuration.
	Lifecycle LifecycleConfig `json:"lifecycle"`

	// Thresholds overrides the default activation thresholds per context
	// type (optional). Values must lie in [0.10, 0.95].
	Thresholds map[memory.ContextType]float64 `json:"thresholds,omitempty"`

	// ReinforcementEnabled bumps importance slightly on explicit retrieval.
	ReinforcementEnabled bool `json:"reinforcement_enabled"`
}

// RepresentationConfig contains configuration for the representation
// provider.
//
// Supported providers: openai, mock
type RepresentationConfig struct {
	// Provider is the representation provider name (openai, mock).
	Provider string `json:"provider"`

	// APIKey is the API key for the provider (openai only).
	APIKey string `json:"api_key,omitempty"`

	// ChatModel is the model used for metadata/summary extraction
	// (openai only, defaults to "gpt-4o-mini").
	ChatModel string `json:"chat_model,omitempty"`

	// BaseURL is the base URL for the API (optional).
	BaseURL string `json:"base_url,omitempty"`

	// Dimensions is the embedding vector dimension.
	Dimensions int `json:"dimensions,omitempty"`
}

// ArchiveConfig contains configuration for the archive snapshot store.
//
// Supported providers: sqlite, postgres, oceanbase. An empty provider
// disables archive snapshots.
type ArchiveConfig struct {
	// Provider is the archive store provider name.
	Provider string `json:"provider,omitempty"`

	// DBPath is the database file path (sqlite only).
	DBPath string `json:"db_path,omitempty"`

	// DSN is the connection string (postgres, oceanbase).
	DSN string `json:"dsn,omitempty"`

	// TableName is the snapshot table name. Defaults to "memory_archive".
	TableName string `json:"table_name,omitempty"`
}

// LifecycleConfig contains configuration for lifecycle management.
type LifecycleConfig struct {
	// Automation gates what maintenance runs execute without approval
	// (manual, semi_automatic, automatic). Defaults to manual.
	Automation lifecycle.AutomationLevel `json:"automation,omitempty"`

	// CapacityMB is the storage capacity used for pressure derivation.
	CapacityMB float64 `json:"capacity_mb,omitempty"`

	// IntervalMinutes is the scheduler period in minutes. Zero disables
	// the scheduler.
	IntervalMinutes int `json:"interval_minutes,omitempty"`
}

// Interval returns the scheduler period as a duration.
func (lc LifecycleConfig) Interval() time.Duration {
	return time.Duration(lc.IntervalMinutes) * time.Minute
}

// DefaultConfig returns a configuration suitable for local development:
// the deterministic mock provider, no archive store, manual lifecycle.
func DefaultConfig() *Config {
	return &Config{
		Representation: RepresentationConfig{
			Provider:   "mock",
			Dimensions: 64,
		},
		Lifecycle: LifecycleConfig{
			Automation: lifecycle.AutomationManual,
			CapacityMB: 512,
		},
		ReinforcementEnabled: true,
	}
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function:
//  1. Searches for .env or .env.example files (up to 5 directory levels up)
//  2. Loads environment variables from the found file
//  3. Parses environment variables into a Config struct
//
// Supported environment variables:
//   - REPRESENTATION_PROVIDER (openai, mock), REPRESENTATION_API_KEY,
//     REPRESENTATION_CHAT_MODEL, REPRESENTATION_BASE_URL,
//     REPRESENTATION_DIMENSIONS
//   - ARCHIVE_PROVIDER (sqlite, postgres, oceanbase), ARCHIVE_DB_PATH,
//     ARCHIVE_DSN, ARCHIVE_TABLE
//   - LIFECYCLE_AUTOMATION, LIFECYCLE_CAPACITY_MB,
//     LIFECYCLE_INTERVAL_MINUTES
//   - REINFORCEMENT_ENABLED
//
// Returns a Config instance, or an error if parsing fails.
func LoadConfigFromEnv() (*Config, error) {
	envPath, found := FindEnvFile()
	if found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg := DefaultConfig()

	cfg.Representation.Provider = getEnvOrDefault("REPRESENTATION_PROVIDER", cfg.Representation.Provider)
	cfg.Representation.APIKey = os.Getenv("REPRESENTATION_API_KEY")
	cfg.Representation.ChatModel = os.Getenv("REPRESENTATION_CHAT_MODEL")
	cfg.Representation.BaseURL = os.Getenv("REPRESENTATION_BASE_URL")
	if v := os.Getenv("REPRESENTATION_DIMENSIONS"); v != "" {
		dims, err := strconv.Atoi(v)
		if err != nil {
			return nil, memory.NewError("LoadConfigFromEnv",
				fmt.Errorf("REPRESENTATION_DIMENSIONS: %w", err))
		}
		cfg.Representation.Dimensions = dims
	}

	cfg.Archive.Provider = os.Getenv("ARCHIVE_PROVIDER")
	cfg.Archive.DBPath = getEnvOrDefault("ARCHIVE_DB_PATH", "./memlens-archive.db")
	cfg.Archive.DSN = os.Getenv("ARCHIVE_DSN")
	cfg.Archive.TableName = os.Getenv("ARCHIVE_TABLE")

	cfg.Lifecycle.Automation = lifecycle.AutomationLevel(
		getEnvOrDefault("LIFECYCLE_AUTOMATION", string(lifecycle.AutomationManual)))
	if v := os.Getenv("LIFECYCLE_CAPACITY_MB"); v != "" {
		capacity, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, memory.NewError("LoadConfigFromEnv",
				fmt.Errorf("LIFECYCLE_CAPACITY_MB: %w", err))
		}
		cfg.Lifecycle.CapacityMB = capacity
	}
	if v := os.Getenv("LIFECYCLE_INTERVAL_MINUTES"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil {
			return nil, memory.NewError("LoadConfigFromEnv",
				fmt.Errorf("LIFECYCLE_INTERVAL_MINUTES: %w", err))
		}
		cfg.Lifecycle.IntervalMinutes = minutes
	}

	if v := os.Getenv("REINFORCEMENT_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return nil, memory.NewError("LoadConfigFromEnv",
				fmt.Errorf("REINFORCEMENT_ENABLED: %w", err))
		}
		cfg.ReinforcementEnabled = enabled
	}

	return cfg, nil
}

// LoadConfigFromEnvFile loads configuration from a specific .env file.
func LoadConfigFromEnvFile(envPath string) (*Config, error) {
	if err := godotenv.Load(envPath); err != nil {
		return nil, memory.NewError("LoadConfigFromEnvFile",
			fmt.Errorf("failed to load .env file: %w", err))
	}
	return LoadConfigFromEnv()
}

// LoadConfigFromJSON loads configuration from a JSON file.
//
// Parameters:
//   - path: Path to the JSON configuration file
//
// Returns a Config instance, or an error if loading or parsing fails.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, memory.NewError("LoadConfigFromJSON", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, memory.NewError("LoadConfigFromJSON", err)
	}
	return &config, nil
}

// Validate validates the configuration.
//
// Checks that:
//   - the representation provider is one of openai, mock
//   - an openai provider carries an API key
//   - the archive provider, if set, is one of sqlite, postgres, oceanbase
//   - the automation level, if set, is valid
//   - threshold overrides lie in [0.10, 0.95] with known context types
//
// Returns an error if validation fails, nil otherwise.
func (c *Config) Validate() error {
	switch c.Representation.Provider {
	case "mock":
	case "openai":
		if c.Representation.APIKey == "" {
			return memory.NewError("Validate",
				fmt.Errorf("openai representation requires an api key: %w", memory.ErrInvalidConfig))
		}
	default:
		return memory.NewError("Validate",
			fmt.Errorf("unknown representation provider %q: %w", c.Representation.Provider, memory.ErrInvalidConfig))
	}

	switch c.Archive.Provider {
	case "", "sqlite", "postgres", "oceanbase":
	default:
		return memory.NewError("Validate",
			fmt.Errorf("unknown archive provider %q: %w", c.Archive.Provider, memory.ErrInvalidConfig))
	}

	switch c.Lifecycle.Automation {
	case "", lifecycle.AutomationManual, lifecycle.AutomationSemiAutomatic, lifecycle.AutomationAutomatic:
	default:
		return memory.NewError("Validate",
			fmt.Errorf("unknown automation level %q: %w", c.Lifecycle.Automation, memory.ErrInvalidConfig))
	}

	for t, v := range c.Thresholds {
		if !validContextType(t) {
			return memory.NewError("Validate",
				fmt.Errorf("unknown context type %q: %w", t, memory.ErrInvalidConfig))
		}
		if v < 0.10 || v > 0.95 {
			return memory.NewError("Validate",
				fmt.Errorf("threshold %v for %q outside [0.10, 0.95]: %w", v, t, memory.ErrInvalidConfig))
		}
	}

	return nil
}

func validContextType(t memory.ContextType) bool {
	for _, known := range memory.ContextTypes {
		if t == known {
			return true
		}
	}
	return false
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FindEnvFile searches for .env or .env.example files.
//
// The search:
//  1. Checks the current directory
//  2. Searches up to 5 directory levels up
//  3. Returns the first .env or .env.example file found
//
// Returns:
//   - path: Path to the found file (empty if not found)
//   - found: True if a file was found, false otherwise
func FindEnvFile() (string, bool) {
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}
	if _, err := os.Stat(".env.example"); err == nil {
		return ".env.example", true
	}

	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		envExamplePath := filepath.Join(dir, ".env.example")

		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		if _, err := os.Stat(envExamplePath); err == nil {
			return envExamplePath, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
