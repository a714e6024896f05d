// internal/workers/ai-conversation/parse-business-query/config.go
package parsebusinessquery

import (
	"time"

	"crm-insights/internal/common/config"
)

type Config struct {
	Timeout  time.Duration
	Location *time.Location
}

func LoadConfig(appConfig *config.Config) (*Config, error) {
	cfg := &Config{
		Timeout:  5 * time.Second,
		Location: time.Local,
	}
	if appConfig == nil {
		return cfg, nil
	}

	if w := config.GetWorkerConfig(appConfig, TaskType); w.Timeout > 0 {
		cfg.Timeout = config.GetDuration(w.Timeout)
	}
	loc, err := appConfig.Insights.Location()
	if err != nil {
		return nil, err
	}
	cfg.Location = loc
	return cfg, nil
}
