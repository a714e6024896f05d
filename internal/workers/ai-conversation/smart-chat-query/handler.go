package smartchatquery

import (
	"context"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"crm-insights/internal/common/config"
	"crm-insights/internal/common/errors"
	"crm-insights/internal/common/logger"
	"crm-insights/internal/common/metrics"
	"crm-insights/internal/common/ratelimit"
	"crm-insights/internal/insights/chat"
	"crm-insights/internal/insights/dispatch"
	"crm-insights/internal/models"
)

const (
	TaskType = "smart-chat-query"

	// RateLimitAction keys the limiter rule for this worker.
	RateLimitAction = "smart_chat"
)

// Asker is satisfied by *chat.Engine.
type Asker interface {
	AskDetailed(ctx context.Context, question, businessID string) chat.Answer
}

type Handler struct {
	config     *Config
	engine     Asker
	limiter    ratelimit.Limiter
	errHandler *errors.ErrorHandler
	logger     logger.Logger
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *Config
	Engine       Asker
	Limiter      ratelimit.Limiter
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Engine == nil {
		return nil, fmt.Errorf("%s: engine is required", TaskType)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	log = log.With(map[string]interface{}{"worker": TaskType})

	limiter := opts.Limiter
	if limiter == nil {
		limiter = ratelimit.AllowAll{}
	}

	return &Handler{
		config:     cfg,
		engine:     opts.Engine,
		limiter:    limiter,
		errHandler: errors.NewErrorHandler(log),
		logger:     log,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	done := metrics.TrackJob(TaskType)

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing smart chat question", map[string]interface{}{
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

	input := &Input{}
	if q, ok := variables["question"].(string); ok {
		input.Question = q
	}
	if b, ok := variables["businessId"].(string); ok {
		input.BusinessID = b
	}
	return input, nil
}

// Execute answers one question. Store failures and throttling come back as
// error-typed results; only a missing tenant or question fails the job.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	businessID := strings.TrimSpace(input.BusinessID)
	if businessID == "" {
		return nil, errors.NewTenantRequiredError()
	}
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, errors.NewValidationFailedError("question is required")
	}
	if len(question) > h.config.MaxQuestion {
		return nil, errors.NewValidationFailedError(fmt.Sprintf("question exceeds %d characters", h.config.MaxQuestion))
	}

	if !h.limiter.CheckLimit(ctx, RateLimitAction, businessID) {
		metrics.RateLimitRejections.WithLabelValues(RateLimitAction).Inc()
		h.logger.Warn("Smart chat rate limited", map[string]interface{}{
			"businessId": businessID,
		})
		return &Output{Result: rateLimitedResult(), RateLimited: true}, nil
	}

	answer := h.engine.AskDetailed(ctx, question, businessID)
	return &Output{StructuredQuery: answer.Query, Result: answer.Result}, nil
}

func rateLimitedResult() models.QueryResult {
	return models.QueryResult{
		Type:                models.ResultTypeError,
		Summary:             "You're asking questions faster than I can keep up. Please wait a minute and try again.",
		FollowUpSuggestions: dispatch.DefaultSuggestions(),
	}
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
		return
	}
	h.logger.Info("Smart chat answered", map[string]interface{}{
		"jobKey":      job.GetKey(),
		"resultType":  string(output.Result.Type),
		"rateLimited": output.RateLimited,
	})
}
