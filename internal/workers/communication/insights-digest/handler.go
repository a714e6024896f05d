package insightsdigest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"crm-insights/internal/common/config"
	"crm-insights/internal/common/errors"
	"crm-insights/internal/common/logger"
	"crm-insights/internal/common/metrics"
	"crm-insights/internal/common/ratelimit"
	"crm-insights/internal/insights/intent"
	"crm-insights/internal/models"
)

const TaskType = "insights-digest"

// RateLimitAction keys the limiter rule for digest sends.
const RateLimitAction = "send_digest"

// Answerer is satisfied by *chat.Engine.
type Answerer interface {
	Answer(ctx context.Context, q models.StructuredQuery, businessID string) models.QueryResult
}

// Mailer is satisfied by *aws.SESClient.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, text, html string) (string, error)
}

// SMSSender is satisfied by *aws.SNSClient.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) (string, error)
}

type Handler struct {
	config     *Config
	engine     Answerer
	mailer     Mailer
	sms        SMSSender
	limiter    ratelimit.Limiter
	errHandler *errors.ErrorHandler
	logger     logger.Logger
	now        func() time.Time
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *Config
	Engine       Answerer
	Mailer       Mailer
	SMS          SMSSender
	Limiter      ratelimit.Limiter
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Engine == nil {
		return nil, fmt.Errorf("%s: insights engine is required", TaskType)
	}
	if workerConfig.EmailEnabled && opts.Mailer == nil {
		return nil, fmt.Errorf("%s: email is enabled but no mailer was provided", TaskType)
	}

	loggerInstance := opts.Logger
	if loggerInstance == nil {
		loggerInstance = logger.NewStructured("info", "json", "stdout")
	}
	loggerInstance = loggerInstance.With(map[string]interface{}{"worker": TaskType})

	limiter := opts.Limiter
	if limiter == nil {
		limiter = ratelimit.AllowAll{}
	}

	return &Handler{
		config:     workerConfig,
		engine:     opts.Engine,
		mailer:     opts.Mailer,
		sms:        opts.SMS,
		limiter:    limiter,
		errHandler: errors.NewErrorHandler(loggerInstance),
		logger:     loggerInstance,
		now:        time.Now,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	done := metrics.TrackJob(TaskType)

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing insights digest", map[string]interface{}{
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
	input := &Input{}
	if err := job.GetVariablesAs(input); err != nil {
		return nil, errors.NewInputParsingFailedError(err)
	}
	return input, nil
}

// Execute answers the digest questions for one tenant and delivers them.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.BusinessID) == "" {
		return nil, errors.NewTenantRequiredError()
	}
	if err := input.Validate(); err != nil {
		return nil, errors.NewValidationFailedError(err.Error())
	}

	sentAt := h.now().UTC().Format(time.RFC3339)

	if !h.config.EmailEnabled {
		h.logger.Warn("Email notifications disabled, digest skipped", map[string]interface{}{
			"businessId": input.BusinessID,
		})
		return &Output{Status: StatusDisabled, Sections: []DigestSection{}, SentAt: sentAt}, nil
	}

	if !h.limiter.CheckLimit(ctx, RateLimitAction, input.BusinessID) {
		metrics.RateLimitRejections.WithLabelValues(RateLimitAction).Inc()
		h.logger.Warn("Digest rate limited", map[string]interface{}{
			"businessId": input.BusinessID,
		})
		return &Output{Status: StatusRateLimited, Sections: []DigestSection{}, SentAt: sentAt}, nil
	}

	sections := make([]DigestSection, 0, len(h.config.Questions))
	for _, question := range h.config.Questions {
		q := intent.Classify(question)
		if input.Timeframe != "" {
			q.Timeframe = models.Timeframe(input.Timeframe)
		}
		result := h.engine.Answer(ctx, q, input.BusinessID)
		sections = append(sections, DigestSection{
			Question:   question,
			Summary:    result.Summary,
			ResultType: result.Type,
		})
	}

	atRisk := h.engine.Answer(ctx, models.StructuredQuery{
		Intent:    models.IntentCustomer,
		Timeframe: models.TimeframeThisMonth,
		Metric:    models.MetricAtRisk,
	}, input.BusinessID)
	atRiskCount := 0
	if customers, ok := atRisk.Data.([]models.CustomerResult); ok {
		atRiskCount = len(customers)
	}

	title := h.config.Subject
	if input.BusinessName != "" {
		title = fmt.Sprintf("%s for %s", h.config.Subject, input.BusinessName)
	}
	text, html, err := renderEmail(title, sections, atRisk.Summary)
	if err != nil {
		return nil, errors.NewNotificationSendFailedError("email", err)
	}

	emailID, err := h.mailer.SendEmail(ctx, input.RecipientEmail, title, text, html)
	if err != nil {
		return nil, errors.NewNotificationSendFailedError("email", err)
	}

	output := &Output{
		Status:         StatusSent,
		EmailMessageID: emailID,
		AtRiskCount:    atRiskCount,
		Sections:       sections,
		SentAt:         sentAt,
	}

	if atRiskCount > 0 && h.config.SMSEnabled && h.sms != nil && input.RecipientPhone != "" {
		smsID, err := h.sms.SendSMS(ctx, input.RecipientPhone, smsText(input.BusinessName, atRiskCount, atRisk.Summary))
		if err != nil {
			// Email is already out; failing here would resend it on retry.
			h.logger.Warn("Failed to send at-risk SMS", map[string]interface{}{
				"businessId": input.BusinessID,
				"error":      err.Error(),
			})
		} else {
			output.SMSMessageID = smsID
		}
	}

	h.logger.Info("Insights digest sent", map[string]interface{}{
		"businessId":  input.BusinessID,
		"sections":    len(sections),
		"atRiskCount": atRiskCount,
		"sms":         output.SMSMessageID != "",
	})

	return output, nil
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
