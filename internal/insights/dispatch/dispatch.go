// Package dispatch routes a classified question to the matching tenant-scoped
// aggregation and phrases the answer.
package dispatch

import (
	"context"
	"sync"
	"time"

	"crm-insights/internal/common/audit"
	"crm-insights/internal/common/logger"
	"crm-insights/internal/insights/daterange"
	"crm-insights/internal/models"
)

// AtRiskDays is the inactivity threshold for at-risk customers.
const AtRiskDays = 30

// DefaultAuditTimeout bounds a single audit write.
const DefaultAuditTimeout = 5 * time.Second

// Store is the read side of the CRM data store the dispatcher depends on.
// Every method is scoped to one business.
type Store interface {
	BestCustomer(ctx context.Context, businessID string, r models.DateRange) (*models.CustomerResult, error)
	AtRiskCustomers(ctx context.Context, businessID string, daysThreshold int) ([]models.CustomerResult, error)
	SearchCustomers(ctx context.Context, businessID, nameFragment string) ([]models.CustomerResult, error)
	RevenueInRange(ctx context.Context, businessID string, r models.DateRange) (*models.RevenueResult, error)
	AppointmentsInRange(ctx context.Context, businessID string, r models.DateRange) ([]models.AppointmentResult, error)
}

type Dispatcher struct {
	store        Store
	sink         audit.Sink
	auditTimeout time.Duration
	resolver     *daterange.Resolver
	logger       logger.Logger
	now          func() time.Time
	pending      sync.WaitGroup
}

type Option func(*Dispatcher)

// WithClock replaces time.Now as the reference for relative timeframes.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithAuditSink records one entry per dispatch. Writes run in the background
// and never delay the answer.
func WithAuditSink(sink audit.Sink) Option {
	return func(d *Dispatcher) { d.sink = sink }
}

// WithAuditTimeout overrides DefaultAuditTimeout.
func WithAuditTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.auditTimeout = timeout }
}

func New(store Store, resolver *daterange.Resolver, log logger.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:        store,
		sink:         audit.NopSink{},
		auditTimeout: DefaultAuditTimeout,
		resolver:     resolver,
		logger:       log,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch answers q for businessID. It never returns an error: store failures
// become a generic error-typed result and details only reach the log.
func (d *Dispatcher) Dispatch(ctx context.Context, q models.StructuredQuery, businessID string) models.QueryResult {
	r := d.resolver.Resolve(q.Timeframe, q.CustomDate, d.now())

	result, err := d.route(ctx, q, businessID, r)
	if err != nil {
		d.logger.Error("Insight query failed", map[string]interface{}{
			"businessId": businessID,
			"intent":     string(q.Intent),
			"metric":     string(q.Metric),
			"timeframe":  string(q.Timeframe),
			"error":      err.Error(),
		})
		result = failedResult()
	}

	d.record(ctx, q, businessID, result)
	return result
}

func (d *Dispatcher) route(ctx context.Context, q models.StructuredQuery, businessID string, r models.DateRange) (models.QueryResult, error) {
	switch q.Intent {
	case models.IntentCustomer:
		switch {
		case q.Entity == "" && q.Metric == models.MetricBest:
			return d.bestCustomer(ctx, q, businessID, r)
		case q.Entity == "" && q.Metric == models.MetricAtRisk:
			return d.atRiskCustomers(ctx, businessID)
		default:
			return d.searchCustomers(ctx, q, businessID)
		}
	case models.IntentRevenue:
		return d.revenue(ctx, q, businessID, r)
	case models.IntentAppointment:
		return d.appointments(ctx, q, businessID, r)
	case models.IntentAnalytics, models.IntentGeneral:
		return clarifyResult(), nil
	default:
		return clarifyResult(), nil
	}
}

func (d *Dispatcher) bestCustomer(ctx context.Context, q models.StructuredQuery, businessID string, r models.DateRange) (models.QueryResult, error) {
	c, err := d.store.BestCustomer(ctx, businessID, r)
	if err != nil {
		return models.QueryResult{}, err
	}
	if c == nil {
		return models.QueryResult{
			Type:                models.ResultTypeCustomer,
			Summary:             noBestCustomerSummary(q.Timeframe),
			FollowUpSuggestions: suggestions(branchDefault),
		}, nil
	}
	return models.QueryResult{
		Type:                models.ResultTypeCustomer,
		Data:                c,
		Summary:             bestCustomerSummary(c, q.Timeframe),
		FollowUpSuggestions: suggestions(branchBestCustomer),
	}, nil
}

func (d *Dispatcher) atRiskCustomers(ctx context.Context, businessID string) (models.QueryResult, error) {
	customers, err := d.store.AtRiskCustomers(ctx, businessID, AtRiskDays)
	if err != nil {
		return models.QueryResult{}, err
	}
	return models.QueryResult{
		Type:                models.ResultTypeList,
		Data:                nonNilCustomers(customers),
		Summary:             atRiskSummary(len(customers)),
		FollowUpSuggestions: suggestions(branchAtRisk),
	}, nil
}

func (d *Dispatcher) searchCustomers(ctx context.Context, q models.StructuredQuery, businessID string) (models.QueryResult, error) {
	customers, err := d.store.SearchCustomers(ctx, businessID, q.Entity)
	if err != nil {
		return models.QueryResult{}, err
	}
	return models.QueryResult{
		Type:                models.ResultTypeList,
		Data:                nonNilCustomers(customers),
		Summary:             searchSummary(len(customers), q.Entity),
		FollowUpSuggestions: suggestions(branchSearch),
	}, nil
}

func (d *Dispatcher) revenue(ctx context.Context, q models.StructuredQuery, businessID string, r models.DateRange) (models.QueryResult, error) {
	rev, err := d.store.RevenueInRange(ctx, businessID, r)
	if err != nil {
		return models.QueryResult{}, err
	}
	if rev == nil {
		rev = &models.RevenueResult{}
	}
	return models.QueryResult{
		Type:                models.ResultTypeRevenue,
		Data:                *rev,
		Summary:             revenueSummary(*rev, q.Timeframe),
		FollowUpSuggestions: suggestions(branchRevenue),
	}, nil
}

func (d *Dispatcher) appointments(ctx context.Context, q models.StructuredQuery, businessID string, r models.DateRange) (models.QueryResult, error) {
	appts, err := d.store.AppointmentsInRange(ctx, businessID, r)
	if err != nil {
		return models.QueryResult{}, err
	}
	if appts == nil {
		appts = []models.AppointmentResult{}
	}
	return models.QueryResult{
		Type:                models.ResultTypeAppointments,
		Data:                appts,
		Summary:             appointmentsSummary(len(appts), q.Timeframe),
		FollowUpSuggestions: suggestions(branchAppointments),
	}, nil
}

func (d *Dispatcher) record(ctx context.Context, q models.StructuredQuery, businessID string, result models.QueryResult) {
	details := map[string]interface{}{
		"timeframe":  string(q.Timeframe),
		"resultType": string(result.Type),
	}
	if q.Metric != models.MetricNone {
		details["metric"] = string(q.Metric)
	}
	if q.Entity != "" {
		details["entity"] = q.Entity
	}

	entry := audit.NewEntry(businessID, "smart_chat_query", string(q.Intent), details)

	// The write outlives the request, so it keeps ctx values but not its cancellation.
	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.auditTimeout)
	d.pending.Add(1)
	go func() {
		defer d.pending.Done()
		defer cancel()
		if err := d.sink.Record(auditCtx, entry); err != nil {
			d.logger.Warn("Audit record dropped", map[string]interface{}{
				"businessId": businessID,
				"error":      err.Error(),
			})
		}
	}()
}

// Wait blocks until background audit writes finish.
func (d *Dispatcher) Wait() {
	d.pending.Wait()
}

func nonNilCustomers(c []models.CustomerResult) []models.CustomerResult {
	if c == nil {
		return []models.CustomerResult{}
	}
	return c
}
