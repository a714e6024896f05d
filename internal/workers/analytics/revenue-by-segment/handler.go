package revenuebysegment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"crm-insights/internal/common/config"
	"crm-insights/internal/common/errors"
	"crm-insights/internal/common/logger"
	"crm-insights/internal/common/metrics"
	"crm-insights/internal/insights/daterange"
	"crm-insights/internal/insights/segment"
	"crm-insights/internal/models"
)

const TaskType = "revenue-by-segment"

// RFMSource is satisfied by *store.PostgresStore.
type RFMSource interface {
	CustomerRFM(ctx context.Context, businessID string, r models.DateRange) ([]models.CustomerRFM, error)
}

// Cache is satisfied by *store.SegmentCache.
type Cache interface {
	Get(ctx context.Context, businessID string, tf models.Timeframe, r models.DateRange) ([]models.SegmentRevenue, bool)
	Set(ctx context.Context, businessID string, tf models.Timeframe, r models.DateRange, rows []models.SegmentRevenue)
}

type noCache struct{}

func (noCache) Get(context.Context, string, models.Timeframe, models.DateRange) ([]models.SegmentRevenue, bool) {
	return nil, false
}
func (noCache) Set(context.Context, string, models.Timeframe, models.DateRange, []models.SegmentRevenue) {
}

var validTimeframes = map[models.Timeframe]bool{
	models.TimeframeToday:     true,
	models.TimeframeYesterday: true,
	models.TimeframeThisWeek:  true,
	models.TimeframeLastWeek:  true,
	models.TimeframeThisMonth: true,
	models.TimeframeLastMonth: true,
	models.TimeframeThisYear:  true,
	models.TimeframeCustom:    true,
}

var printer = message.NewPrinter(language.English)

type Handler struct {
	config     *Config
	source     RFMSource
	cache      Cache
	resolver   *daterange.Resolver
	errHandler *errors.ErrorHandler
	logger     logger.Logger
	now        func() time.Time
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *Config
	Source       RFMSource
	Cache        Cache
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg, err := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Source == nil {
		return nil, fmt.Errorf("%s: rfm source is required", TaskType)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	log = log.WithFields(map[string]interface{}{"worker": TaskType})

	var cache Cache = noCache{}
	if opts.Cache != nil {
		cache = opts.Cache
	}

	return &Handler{
		config:     cfg,
		source:     opts.Source,
		cache:      cache,
		resolver:   daterange.NewResolver(cfg.Location),
		errHandler: errors.NewErrorHandler(log),
		logger:     log,
		now:        time.Now,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	done := metrics.TrackJob(TaskType)

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := job.GetVariablesAs(&input); err != nil {
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

	cmd, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		done(string(errors.ErrCodeInternal))
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
	}
	done("")
}

// Execute scores every active customer in the period, groups them by RFM
// segment and totals revenue per segment.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	businessID := strings.TrimSpace(input.BusinessID)
	if businessID == "" {
		return nil, errors.NewTenantRequiredError()
	}

	tf, custom, err := h.period(input)
	if err != nil {
		return nil, err
	}
	r := h.resolver.Resolve(tf, custom, h.now())

	rows, cached := h.cache.Get(ctx, businessID, tf, r)
	if !cached {
		customers, err := h.source.CustomerRFM(ctx, businessID, r)
		if err != nil {
			if ctx.Err() == context.DeadlineExceeded {
				return nil, errors.NewQueryTimeoutError(string(models.QueryTypeCustomerRFM))
			}
			return nil, errors.NewQueryExecutionFailedError(string(models.QueryTypeCustomerRFM), err)
		}
		rows = segment.Rollup(customers)
		h.cache.Set(ctx, businessID, tf, r, rows)
	}

	out := &Output{
		Segments:  rows,
		StartDate: r.StartDate(),
		EndDate:   r.EndDate(),
		Cached:    cached,
	}
	for _, row := range rows {
		out.TotalRevenue += row.Revenue
		out.TotalCustomers += row.CustomerCount
	}
	out.Result = models.QueryResult{
		Type:    models.ResultTypeChart,
		Data:    rows,
		Summary: summarize(rows, out.TotalRevenue, tf),
		FollowUpSuggestions: []string{
			"Which customers are at risk?",
			"Who is my best customer " + daterange.Phrase(tf) + "?",
			"How much revenue did I make " + daterange.Phrase(tf) + "?",
		},
	}

	h.logger.Info("Revenue by segment computed", map[string]interface{}{
		"businessId": businessID,
		"timeframe":  string(tf),
		"customers":  out.TotalCustomers,
		"cached":     cached,
	})
	return out, nil
}

func (h *Handler) period(input *Input) (models.Timeframe, *models.DateRange, error) {
	tf := models.Timeframe(strings.ToLower(strings.TrimSpace(input.Timeframe)))
	if input.StartDate != "" || input.EndDate != "" {
		tf = models.TimeframeCustom
	}
	if tf == "" {
		return models.TimeframeThisMonth, nil, nil
	}
	if !validTimeframes[tf] {
		return "", nil, errors.NewValidationFailedError(fmt.Sprintf("unknown timeframe %q", input.Timeframe))
	}
	if tf != models.TimeframeCustom {
		return tf, nil, nil
	}

	loc := h.resolver.Location()
	start, err := time.ParseInLocation("2006-01-02", input.StartDate, loc)
	if err != nil {
		return "", nil, errors.NewValidationFailedError("startDate must be YYYY-MM-DD")
	}
	end, err := time.ParseInLocation("2006-01-02", input.EndDate, loc)
	if err != nil {
		return "", nil, errors.NewValidationFailedError("endDate must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return "", nil, errors.NewValidationFailedError("endDate is before startDate")
	}
	return tf, &models.DateRange{Start: start, End: end}, nil
}

func summarize(rows []models.SegmentRevenue, total float64, tf models.Timeframe) string {
	when := daterange.Phrase(tf)
	if total <= 0 {
		return fmt.Sprintf("No completed appointments %s, so there is nothing to segment yet.", when)
	}

	top := rows[0]
	for _, row := range rows[1:] {
		if row.Revenue > top.Revenue {
			top = row
		}
	}
	return printer.Sprintf("%s customers brought in the most revenue %s: $%.2f of $%.2f (%.0f%%).",
		top.Segment, when, top.Revenue, total, top.RevenueShare*100)
}
