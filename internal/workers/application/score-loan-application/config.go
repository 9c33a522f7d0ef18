// internal/workers/application/score-loan-application/config.go
package scoreloanapplication

import "time"

type Config struct {
	// Timeout bounds one job, including the scoring call.
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
