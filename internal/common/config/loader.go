// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like ASSISTANT_API_KEY
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	// 1️⃣ LOAD BASE CONFIG
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// 2️⃣ LOAD ENV CONFIG
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig() // ignore error if not found

	// 3️⃣ EXPAND ENV PLACEHOLDERS
	expandEnvVars(viper.GetViper())

	// 4️⃣ Unmarshal final config
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	// 5️⃣ DIRECT OVERRIDE IF STILL EMPTY
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Load .env from multiple possible locations
func loadEnvFile() {
	// Try multiple paths (for running from different directories)
	possiblePaths := []string{
		".env",          // Current directory
		"../.env",       // Parent directory
		"../../.env",    // Two levels up
		"../../../.env", // Three levels up
	}

	// Also try to find project root by looking for go.mod
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				fmt.Printf("✅ Loaded .env from: %s\n", path)
				return
			}
		}
	}

	fmt.Printf("⚠️  .env file not found in any location, using system environment variables\n")
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	// Walk up directories looking for go.mod
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			break
		}
		dir = parent
	}

	return ""
}

// Improved environment variable expansion
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		// Only process string values
		if strVal, ok := val.(string); ok {
			// Check if it contains environment variable pattern
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// Direct override if config values are still empty after expansion
func overrideEmptyConfig(cfg *Config) {
	// Principles assessment API
	if cfg.Principles.ClientID == "" {
		if val := os.Getenv("PRINCIPLES_CLIENT_ID"); val != "" {
			cfg.Principles.ClientID = val
		}
	}
	if cfg.Principles.ClientSecret == "" {
		if val := os.Getenv("PRINCIPLES_CLIENT_SECRET"); val != "" {
			cfg.Principles.ClientSecret = val
		}
	}
	if cfg.Principles.TenantID == "" {
		if val := os.Getenv("PRINCIPLES_TENANT_ID"); val != "" {
			cfg.Principles.TenantID = val
		}
	}

	// Assistant API
	if cfg.Assistant.APIKey == "" {
		if val := os.Getenv("ASSISTANT_API_KEY"); val != "" {
			cfg.Assistant.APIKey = val
		}
	}
	if cfg.Assistant.AssistantID == "" {
		if val := os.Getenv("ASSISTANT_ID"); val != "" {
			cfg.Assistant.AssistantID = val
		}
	}

	// Database overrides
	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
	if cfg.Database.Onet.User == "" {
		if val := os.Getenv("ONET_DB_USER"); val != "" {
			cfg.Database.Onet.User = val
		}
	}
	if cfg.Database.Onet.Password == "" {
		if val := os.Getenv("ONET_DB_PASSWORD"); val != "" {
			cfg.Database.Onet.Password = val
		}
	}
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile() // Load env file first

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// Expand environment variables before unmarshal
	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	// Database defaults
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Onet.MaxConnections == 0 {
		cfg.Database.Onet.MaxConnections = 10
	}
	if cfg.Database.Onet.MaxIdle == 0 {
		cfg.Database.Onet.MaxIdle = 2
	}
	if cfg.Database.Onet.SSLMode == "" {
		cfg.Database.Onet.SSLMode = "disable"
	}

	// Queue defaults
	if cfg.Queue.Name == "" {
		cfg.Queue.Name = "career-reports"
	}
	if cfg.Queue.DeadLetterName == "" {
		cfg.Queue.DeadLetterName = cfg.Queue.Name + ":dead"
	}
	if cfg.Queue.PollIntervalMs == 0 {
		cfg.Queue.PollIntervalMs = 1000
	}
	if cfg.Queue.Concurrency == 0 {
		cfg.Queue.Concurrency = 2
	}
	if cfg.Queue.ShutdownGraceMs == 0 {
		cfg.Queue.ShutdownGraceMs = 30000
	}

	// Generation defaults
	if cfg.Generation.PollInitialMs == 0 {
		cfg.Generation.PollInitialMs = 3000
	}
	if cfg.Generation.PollIncrementMs == 0 {
		cfg.Generation.PollIncrementMs = 3000
	}
	if cfg.Generation.PollMaxMs == 0 {
		cfg.Generation.PollMaxMs = 20000
	}
	if cfg.Generation.PollMaxAttempts == 0 {
		cfg.Generation.PollMaxAttempts = 10
	}
	if cfg.Generation.RateLimitMaxRetries == 0 {
		cfg.Generation.RateLimitMaxRetries = 3
	}
	if cfg.Generation.RateLimitCooldownMs == 0 {
		cfg.Generation.RateLimitCooldownMs = 30000
	}

	// Assistant defaults
	if cfg.Assistant.BaseURL == "" {
		cfg.Assistant.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Assistant.APIVersion == "" {
		cfg.Assistant.APIVersion = "assistants=v2"
	}
	if cfg.Assistant.Timeout == 0 {
		cfg.Assistant.Timeout = 60000
	}

	// Principles defaults
	if cfg.Principles.Timeout == 0 {
		cfg.Principles.Timeout = 30000
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	// Worker defaults
	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}

	// Template defaults
	if cfg.Template.DefaultName == "" {
		cfg.Template.DefaultName = "career-report-default"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}

	if cfg.Database.Onet.Host == "" {
		return fmt.Errorf("database.onet.host is required")
	}
	if cfg.Database.Onet.Database == "" {
		return fmt.Errorf("database.onet.database is required")
	}

	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}

	if cfg.Assistant.AssistantID == "" {
		return fmt.Errorf("assistant.assistant_id is required")
	}

	if cfg.Principles.BaseURL == "" {
		return fmt.Errorf("principles.base_url is required")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}

	// Return default worker config if not found
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
