package chat

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-insights/internal/common/logger"
	"crm-insights/internal/common/metrics"
	"crm-insights/internal/models"
)

type stubDispatcher struct {
	got      []models.StructuredQuery
	tenants  []string
	response models.QueryResult
}

func (s *stubDispatcher) Dispatch(_ context.Context, q models.StructuredQuery, businessID string) models.QueryResult {
	s.got = append(s.got, q)
	s.tenants = append(s.tenants, businessID)
	return s.response
}

func TestEngine_AskClassifiesThenDispatches(t *testing.T) {
	d := &stubDispatcher{response: models.QueryResult{Type: models.ResultTypeRevenue, Summary: "ok"}}
	e := NewEngine(d, nil, logger.NewTestLogger(t))

	res := e.Ask(context.Background(), "  What was my revenue last month?  ", "biz-1")

	assert.Equal(t, "ok", res.Summary)
	require.Len(t, d.got, 1)
	assert.Equal(t, models.IntentRevenue, d.got[0].Intent)
	assert.Equal(t, models.TimeframeLastMonth, d.got[0].Timeframe)
	assert.Equal(t, []string{"biz-1"}, d.tenants)
}

func TestEngine_AskDetailedReturnsQuery(t *testing.T) {
	d := &stubDispatcher{response: models.QueryResult{Type: models.ResultTypeCustomer}}
	e := NewEngine(d, nil, logger.NewTestLogger(t))

	a := e.AskDetailed(context.Background(), "Who is my best customer this year?", "biz-1")

	assert.Equal(t, models.IntentCustomer, a.Query.Intent)
	assert.Equal(t, models.MetricBest, a.Query.Metric)
	assert.Equal(t, models.TimeframeThisYear, a.Query.Timeframe)
	assert.Equal(t, models.ResultTypeCustomer, a.Result.Type)
}

func TestEngine_CountsQueriesByIntentAndResultType(t *testing.T) {
	d := &stubDispatcher{response: models.QueryResult{Type: models.ResultTypeAppointments}}
	e := NewEngine(d, nil, logger.NewTestLogger(t))
	counter := metrics.InsightQueries.WithLabelValues(string(models.IntentAppointment), string(models.ResultTypeAppointments))
	before := testutil.ToFloat64(counter)

	e.Ask(context.Background(), "Show my appointments today", "biz-1")
	e.Ask(context.Background(), "How many bookings tomorrow?", "biz-1")

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestEngine_AnswerSkipsClassification(t *testing.T) {
	d := &stubDispatcher{response: models.QueryResult{Type: models.ResultTypeList}}
	e := NewEngine(d, nil, logger.NewTestLogger(t))
	q := models.StructuredQuery{Intent: models.IntentCustomer, Metric: models.MetricAtRisk, Timeframe: models.TimeframeLastWeek}

	res := e.Answer(context.Background(), q, "biz-3")

	assert.Equal(t, models.ResultTypeList, res.Type)
	assert.Equal(t, []models.StructuredQuery{q}, d.got)
}
