// Package chat answers a plain-English business question for one tenant.
package chat

import (
	"context"
	"strings"
	"time"

	"crm-insights/internal/common/logger"
	"crm-insights/internal/common/metrics"
	"crm-insights/internal/common/observability"
	"crm-insights/internal/insights/intent"
	"crm-insights/internal/models"
)

// Dispatcher is satisfied by *dispatch.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, q models.StructuredQuery, businessID string) models.QueryResult
}

// Engine ties classification to dispatch and records query metrics.
type Engine struct {
	dispatcher Dispatcher
	obs        *observability.Observability
	logger     logger.Logger
}

// NewEngine builds an Engine. obs may be nil.
func NewEngine(d Dispatcher, obs *observability.Observability, log logger.Logger) *Engine {
	return &Engine{dispatcher: d, obs: obs, logger: log}
}

// Answer pairs the classification with its result.
type Answer struct {
	Query  models.StructuredQuery `json:"structuredQuery"`
	Result models.QueryResult     `json:"result"`
}

// Ask classifies question and dispatches it for businessID.
func (e *Engine) Ask(ctx context.Context, question, businessID string) models.QueryResult {
	return e.AskDetailed(ctx, question, businessID).Result
}

// AskDetailed is Ask that also returns the structured query.
func (e *Engine) AskDetailed(ctx context.Context, question, businessID string) Answer {
	q := intent.Classify(strings.TrimSpace(question))
	return Answer{Query: q, Result: e.Answer(ctx, q, businessID)}
}

// Answer dispatches an already classified query.
func (e *Engine) Answer(ctx context.Context, q models.StructuredQuery, businessID string) models.QueryResult {
	start := time.Now()
	result := e.dispatcher.Dispatch(ctx, q, businessID)
	elapsed := time.Since(start)

	metrics.InsightQueries.WithLabelValues(string(q.Intent), string(result.Type)).Inc()
	e.obs.RecordQuery(ctx, string(q.Intent), string(result.Type), elapsed)

	e.logger.Debug("question answered", map[string]interface{}{
		"businessId": businessID,
		"intent":     string(q.Intent),
		"timeframe":  string(q.Timeframe),
		"metric":     string(q.Metric),
		"resultType": string(result.Type),
		"durationMs": elapsed.Milliseconds(),
	})
	return result
}
