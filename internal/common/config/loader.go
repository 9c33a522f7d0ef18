// internal/common/config/loader.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on top,
// expands ${VAR} placeholders and applies environment overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	bindEnv(v)

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // environment file is optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func bindEnv(v *viper.Viper) {
	// SCORING_BASE_URL overrides scoring.base_url, and so on.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideEmptyConfig(&cfg)
	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills values commonly provided by the deployment environment.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Scoring.BaseURL == "" {
		if val := os.Getenv("SCORING_SERVICE_URL"); val != "" {
			cfg.Scoring.BaseURL = val
		}
	}
	if cfg.Camunda.BrokerAddress == "" {
		if val := os.Getenv("ZEEBE_ADDRESS"); val != "" {
			cfg.Camunda.BrokerAddress = val
		}
	}
	if cfg.Server.Address == "" {
		if val := os.Getenv("PORT"); val != "" {
			cfg.Server.Address = ":" + val
		}
	}
}

// applyDefaults sets default values for optional configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "loan-intake"
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.SessionTTL == 0 {
		cfg.Server.SessionTTL = 1800000
	}
	if cfg.Server.SweepInterval == 0 {
		cfg.Server.SweepInterval = 60000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30000
	}

	if cfg.Scoring.Path == "" {
		cfg.Scoring.Path = "/score"
	}
	if cfg.Scoring.ReadyPath == "" {
		cfg.Scoring.ReadyPath = "/ready"
	}
	if cfg.Scoring.Timeout == 0 {
		cfg.Scoring.Timeout = 10000
	}

	// Ceilings follow the scoring service's accepted ranges.
	bounds := &cfg.Validation.Bounds
	defaultBound(&bounds.AgeMax, 120)
	defaultBound(&bounds.IncomeMax, 100000000)
	defaultBound(&bounds.EmploymentLengthMax, 110)
	defaultBound(&bounds.LoanAmountMax, 1000000000)
	if bounds.EmploymentWithinAge == nil {
		enabled := true
		bounds.EmploymentWithinAge = &enabled
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":9090"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = cfg.Camunda.MaxJobsActive
		}
		if worker.Timeout == 0 {
			worker.Timeout = cfg.Camunda.Timeout
		}
		cfg.Workers[key] = worker
	}
}

func defaultBound(bound **float64, value float64) {
	if *bound == nil {
		*bound = &value
	}
}

// validateConfig validates critical configuration fields.
func validateConfig(cfg *Config) error {
	if cfg.Scoring.BaseURL == "" {
		return fmt.Errorf("scoring.base_url is required")
	}
	u, err := url.Parse(cfg.Scoring.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("scoring.base_url must be an absolute http(s) URL, got %q", cfg.Scoring.BaseURL)
	}
	if !strings.HasPrefix(cfg.Scoring.Path, "/") {
		return fmt.Errorf("scoring.path must start with '/'")
	}
	if cfg.Scoring.Timeout < 0 {
		return fmt.Errorf("scoring.timeout must not be negative")
	}

	b := cfg.Validation.Bounds
	for _, bound := range []*float64{b.AgeMax, b.IncomeMax, b.EmploymentLengthMax, b.LoanAmountMax} {
		if bound != nil && *bound < 0 {
			return fmt.Errorf("validation.bounds must not be negative")
		}
	}

	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required when camunda.enabled is set")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration.
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to
// the camunda section.
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}

	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: cfg.Camunda.MaxJobsActive,
		Timeout:       cfg.Camunda.Timeout,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled.
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
