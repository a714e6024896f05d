// internal/common/camunda/worker.go
package camunda

import (
	"time"

	"crm-insights/internal/common/config"
	"crm-insights/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// HandlerFunc is the callback shape every insights worker exposes.
type HandlerFunc func(client worker.JobClient, job entities.Job)

// Pool tracks opened job workers so they can be closed together.
type Pool struct {
	client  zbc.Client
	logger  logger.Logger
	workers map[string]worker.JobWorker
}

func NewPool(client zbc.Client, log logger.Logger) *Pool {
	return &Pool{client: client, logger: log, workers: make(map[string]worker.JobWorker)}
}

// Start opens a job worker for taskType unless the worker is disabled.
func (p *Pool) Start(taskType string, wcfg config.WorkerConfig, handler HandlerFunc) bool {
	if !wcfg.Enabled {
		p.logger.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return false
	}

	builder := p.client.NewJobWorker().
		JobType(taskType).
		Handler(worker.JobHandler(handler)).
		MaxJobsActive(wcfg.MaxJobsActive)
	if wcfg.Timeout > 0 {
		builder = builder.Timeout(time.Duration(wcfg.Timeout) * time.Millisecond)
	}
	p.workers[taskType] = builder.Open()

	p.logger.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return true
}

// Running lists the task types with an open worker.
func (p *Pool) Running() []string {
	out := make([]string, 0, len(p.workers))
	for t := range p.workers {
		out = append(out, t)
	}
	return out
}

// Close stops every worker and waits for in-flight jobs.
func (p *Pool) Close() {
	for taskType, w := range p.workers {
		p.logger.Info("stopping worker", map[string]interface{}{"taskType": taskType})
		w.Close()
		w.AwaitClose()
	}
}
