package revenuebysegment

import (
	"fmt"
	"time"

	"crm-insights/internal/common/config"
)

type Config struct {
	Enabled       bool           `mapstructure:"enabled"`
	MaxJobsActive int            `mapstructure:"max_jobs_active"`
	Timeout       time.Duration  `mapstructure:"timeout"`
	Location      *time.Location `mapstructure:"-"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       20 * time.Second,
		Location:      time.Local,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.Location == nil {
		return fmt.Errorf("location is required")
	}
	return nil
}

func createConfigFromAppConfig(appConfig *config.Config, customConfig *Config) (*Config, error) {
	if customConfig != nil {
		return customConfig, nil
	}

	cfg := DefaultConfig()
	if appConfig == nil {
		return cfg, nil
	}
	if w, ok := appConfig.Workers[TaskType]; ok {
		cfg.Enabled = w.Enabled
		if w.MaxJobsActive > 0 {
			cfg.MaxJobsActive = w.MaxJobsActive
		}
		if w.Timeout > 0 {
			cfg.Timeout = config.GetDuration(w.Timeout)
		}
	}
	loc, err := appConfig.Insights.Location()
	if err != nil {
		return nil, err
	}
	cfg.Location = loc
	return cfg, nil
}
