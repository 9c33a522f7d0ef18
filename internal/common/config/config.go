// internal/common/config/config.go
package config

import "strings"

// Config is the main application configuration struct.
type Config struct {
	App        AppConfig               `mapstructure:"app"`
	Server     ServerConfig            `mapstructure:"server"`
	Scoring    ScoringConfig           `mapstructure:"scoring"`
	Validation ValidationConfig        `mapstructure:"validation"`
	Camunda    CamundaConfig           `mapstructure:"camunda"`
	Workers    map[string]WorkerConfig `mapstructure:"workers"`
	Logging    LoggingConfig           `mapstructure:"logging"`
	Metrics    MetricsConfig           `mapstructure:"metrics"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig holds settings for the form-session HTTP API.
type ServerConfig struct {
	Address         string `mapstructure:"address"`
	SessionTTL      int    `mapstructure:"session_ttl"`      // milliseconds
	SweepInterval   int    `mapstructure:"sweep_interval"`   // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

// ScoringConfig describes the remote scoring endpoint.
type ScoringConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	Path      string `mapstructure:"path"`
	ReadyPath string `mapstructure:"ready_path"`
	Timeout   int    `mapstructure:"timeout"` // milliseconds
}

// URL returns the full scoring endpoint.
func (s ScoringConfig) URL() string {
	return strings.TrimRight(s.BaseURL, "/") + s.Path
}

type ValidationConfig struct {
	Bounds BoundsConfig `mapstructure:"bounds"`
}

// BoundsConfig holds the upper bounds for numeric fields. Unset bounds get
// defaults; an explicit zero disables the ceiling. Lower bounds are fixed by
// the validator.
type BoundsConfig struct {
	AgeMax              *float64 `mapstructure:"age_max"`
	IncomeMax           *float64 `mapstructure:"income_max"`
	EmploymentLengthMax *float64 `mapstructure:"employment_length_max"`
	LoanAmountMax       *float64 `mapstructure:"loan_amount_max"`
	EmploymentWithinAge *bool    `mapstructure:"employment_within_age"`
}

// CamundaConfig holds the Zeebe connection. MaxJobsActive and Timeout are the
// defaults for workers without their own settings.
type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}
