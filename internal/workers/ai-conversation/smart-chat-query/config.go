package smartchatquery

import (
	"fmt"
	"time"

	"crm-insights/internal/common/config"
)

type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxQuestion   int           `mapstructure:"max_question"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 10,
		Timeout:       10 * time.Second,
		MaxQuestion:   500,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxQuestion <= 0 {
		return fmt.Errorf("max_question must be positive")
	}
	return nil
}

func createConfigFromAppConfig(appConfig *config.Config, customConfig *Config) *Config {
	if customConfig != nil {
		return customConfig
	}

	cfg := DefaultConfig()
	if appConfig != nil {
		if w, ok := appConfig.Workers[TaskType]; ok {
			cfg.Enabled = w.Enabled
			if w.MaxJobsActive > 0 {
				cfg.MaxJobsActive = w.MaxJobsActive
			}
			if w.Timeout > 0 {
				cfg.Timeout = config.GetDuration(w.Timeout)
			}
		}
	}
	return cfg
}
