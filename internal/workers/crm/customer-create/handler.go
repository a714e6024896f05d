package customercreate

import (
	"context"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"crm-insights/internal/common/audit"
	"crm-insights/internal/common/config"
	"crm-insights/internal/common/errors"
	"crm-insights/internal/common/logger"
	"crm-insights/internal/common/metrics"
	"crm-insights/internal/common/ratelimit"
	schema "crm-insights/internal/common/validation"
)

const TaskType = "crm-customer-create"

type Handler struct {
	config     *Config
	logger     logger.Logger
	service    *Service
	errHandler *errors.ErrorHandler
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *Config
	Writer       CustomerWriter
	Limiter      ratelimit.Limiter
	Audit        audit.Sink
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Writer == nil {
		return nil, fmt.Errorf("%s: customer writer is required", TaskType)
	}

	loggerInstance := opts.Logger
	if loggerInstance == nil {
		loggerInstance = logger.NewStructured("info", "json", "stdout")
	}
	loggerInstance = loggerInstance.With(map[string]interface{}{"worker": TaskType})

	return &Handler{
		config: workerConfig,
		logger: loggerInstance,
		service: NewService(ServiceDependencies{
			Writer:  opts.Writer,
			Limiter: opts.Limiter,
			Audit:   opts.Audit,
			Logger:  loggerInstance,
		}, workerConfig),
		errHandler: errors.NewErrorHandler(loggerInstance),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	done := metrics.TrackJob(TaskType)

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing customer create request", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	input, err := h.parseInput(job)
	if err != nil {
		done(string(errors.AsStandardError(err).Code))
		h.errHandler.HandleJobError(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		done(string(errors.AsStandardError(err).Code))
		h.errHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	done("")
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewInputParsingFailedError(err)
	}

	result := schema.ValidateInput(variables, GetInputSchema())
	if !result.Valid {
		return nil, errors.NewValidationFailedError(result.Summary())
	}

	input := &Input{}
	if err := job.GetVariablesAs(input); err != nil {
		return nil, errors.NewInputParsingFailedError(err)
	}
	return input, nil
}

// Execute creates one customer for input.BusinessID.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.service.Execute(ctx, input)
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	if _, err := request.Send(ctx); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
	}
}
