// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Queue         QueueConfig             `mapstructure:"queue"`
	Principles    PrinciplesConfig        `mapstructure:"principles"`
	Assistant     AssistantConfig         `mapstructure:"assistant"`
	Generation    GenerationConfig        `mapstructure:"generation"`
	Template      TemplateConfig          `mapstructure:"template"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Integrations  IntegrationConfig       `mapstructure:"integrations"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Onet     PostgresConfig `mapstructure:"onet"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// QueueConfig holds settings for the Redis-backed job queue.
type QueueConfig struct {
	Name            string `mapstructure:"name"`
	DeadLetterName  string `mapstructure:"dead_letter_name"`
	PollIntervalMs  int    `mapstructure:"poll_interval_ms"`
	VisibilityMs    int    `mapstructure:"visibility_ms"`
	Concurrency     int    `mapstructure:"concurrency"`
	ShutdownGraceMs int    `mapstructure:"shutdown_grace_ms"`
}

// PrinciplesConfig holds settings for the assessment results API.
type PrinciplesConfig struct {
	AuthURL      string `mapstructure:"auth_url"`
	BaseURL      string `mapstructure:"base_url"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	TenantID     string `mapstructure:"tenant_id"`
	Timeout      int    `mapstructure:"timeout"` // milliseconds
}

// AssistantConfig holds settings for the OpenAI assistant API.
type AssistantConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	APIKey      string `mapstructure:"api_key"`
	AssistantID string `mapstructure:"assistant_id"`
	APIVersion  string `mapstructure:"api_version"`
	Timeout     int    `mapstructure:"timeout"` // milliseconds
}

// GenerationConfig tunes the section generation loop.
type GenerationConfig struct {
	PollInitialMs         int  `mapstructure:"poll_initial_ms"`
	PollIncrementMs       int  `mapstructure:"poll_increment_ms"`
	PollMaxMs             int  `mapstructure:"poll_max_ms"`
	PollMaxAttempts       int  `mapstructure:"poll_max_attempts"`
	RateLimitMaxRetries   int  `mapstructure:"rate_limit_max_retries"`
	RateLimitCooldownMs   int  `mapstructure:"rate_limit_cooldown_ms"`
	SkipCompletedSections bool `mapstructure:"skip_completed_sections"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// IntegrationConfig holds settings for Email and other external services.
type IntegrationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled   bool   `mapstructure:"enabled"`
			FromEmail string `mapstructure:"from_email"`
		} `mapstructure:"ses"`
	} `mapstructure:"aws"`
}

// NotificationConfig holds settings for report completion notifications.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	DownloadBaseURL string `mapstructure:"download_base_url"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// TemplateConfig holds settings for report template loading and validation.
type TemplateConfig struct {
	SchemaPath  string `mapstructure:"schema_path"`
	DefaultName string `mapstructure:"default_name"`
}
