package parsebusinessquery

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"crm-insights/internal/common/errors"
	"crm-insights/internal/common/metrics"
	"crm-insights/internal/insights/daterange"
	"crm-insights/internal/insights/intent"
	"crm-insights/internal/models"
)

const (
	TaskType = "parse-business-query"
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Handler struct {
	config     *Config
	resolver   *daterange.Resolver
	errHandler *errors.ErrorHandler
	logger     Logger
	now        func() time.Time
}

func NewHandler(config *Config, log Logger) *Handler {
	l := log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config:     config,
		resolver:   daterange.NewResolver(config.Location),
		errHandler: errors.NewErrorHandler(l),
		logger:     l,
		now:        time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	done := metrics.TrackJob(TaskType)
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		stdErr := errors.NewInputParsingFailedError(err)
		done(string(stdErr.Code))
		h.errHandler.HandleJobError(ctx, client, job, stdErr)
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		done(string(errors.AsStandardError(err).Code))
		h.errHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	done("")
}

// Execute classifies the question and resolves its reporting window.
func (h *Handler) Execute(_ context.Context, input *Input) (*Output, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, errors.NewValidationFailedError("question is required")
	}

	q := intent.Classify(question)
	custom, err := h.customRange(input)
	if err != nil {
		return nil, err
	}
	if custom != nil {
		q.Timeframe = models.TimeframeCustom
		q.CustomDate = custom
	}

	r := h.resolver.Resolve(q.Timeframe, q.CustomDate, h.now())

	h.logger.Info("question classified", map[string]interface{}{
		"intent":    string(q.Intent),
		"timeframe": string(q.Timeframe),
		"metric":    string(q.Metric),
		"hasEntity": q.Entity != "",
	})

	return &Output{
		StructuredQuery: q,
		DateRange:       DateRange{Start: r.StartDate(), End: r.EndDate()},
		Period:          daterange.Describe(q.Timeframe),
	}, nil
}

func (h *Handler) customRange(input *Input) (*models.DateRange, error) {
	if input.StartDate == "" && input.EndDate == "" {
		return nil, nil
	}
	if input.StartDate == "" || input.EndDate == "" {
		return nil, errors.NewValidationFailedError("startDate and endDate must be given together")
	}

	start, err := time.ParseInLocation("2006-01-02", input.StartDate, h.resolver.Location())
	if err != nil {
		return nil, errors.NewValidationFailedError(fmt.Sprintf("startDate: %v", err))
	}
	end, err := time.ParseInLocation("2006-01-02", input.EndDate, h.resolver.Location())
	if err != nil {
		return nil, errors.NewValidationFailedError(fmt.Sprintf("endDate: %v", err))
	}
	if end.Before(start) {
		return nil, errors.NewValidationFailedError("endDate is before startDate")
	}
	return &models.DateRange{Start: start, End: end}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}
