package insightsdigest

import (
	"fmt"
	"time"

	"crm-insights/internal/common/config"
)

type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Questions     []string      `mapstructure:"questions"`
	EmailEnabled  bool          `mapstructure:"email_enabled"`
	SMSEnabled    bool          `mapstructure:"sms_enabled"`
	Subject       string        `mapstructure:"subject"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 2,
		Timeout:       60 * time.Second,
		Questions: []string{
			"How much revenue did I make this week?",
			"Who is my best customer this week?",
		},
		EmailEnabled: true,
		Subject:      "Your business insights",
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if len(c.Questions) == 0 {
		return fmt.Errorf("at least one digest question is required")
	}
	return nil
}

func createConfigFromAppConfig(appConfig *config.Config, customConfig *Config) *Config {
	if customConfig != nil {
		return customConfig
	}

	cfg := DefaultConfig()
	if appConfig == nil {
		return cfg
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
	if len(appConfig.Insights.DigestQuestions) > 0 {
		cfg.Questions = appConfig.Insights.DigestQuestions
	}
	cfg.EmailEnabled = appConfig.Notifications.Email.Enabled
	cfg.SMSEnabled = appConfig.Notifications.SMS.Enabled
	return cfg
}
