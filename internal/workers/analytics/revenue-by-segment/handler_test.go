package revenuebysegment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "crm-insights/internal/common/errors"
	"crm-insights/internal/common/logger"
	"crm-insights/internal/models"
	"crm-insights/internal/store"
)

type MockSource struct {
	mock.Mock
}

func (m *MockSource) CustomerRFM(ctx context.Context, businessID string, r models.DateRange) ([]models.CustomerRFM, error) {
	args := m.Called(ctx, businessID, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CustomerRFM), args.Error(1)
}

var fixedNow = time.Date(2024, 3, 13, 15, 30, 0, 0, time.UTC)

func newTestHandler(t *testing.T, src RFMSource, cache Cache) *Handler {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Location = time.UTC
	h, err := NewHandler(HandlerOptions{CustomConfig: cfg, Source: src, Cache: cache, Logger: logger.NewTestLogger(t)})
	require.NoError(t, err)
	h.now = func() time.Time { return fixedNow }
	return h
}

func scored() []models.CustomerRFM {
	return []models.CustomerRFM{
		{CustomerID: "c1", Name: "Ana", RecencyScore: 5, FrequencyScore: 5, MonetaryScore: 5, TotalSpent: 600},
		{CustomerID: "c2", Name: "Ben", RecencyScore: 4, FrequencyScore: 5, MonetaryScore: 4, TotalSpent: 200},
		{CustomerID: "c3", Name: "Cid", RecencyScore: 1, FrequencyScore: 1, MonetaryScore: 1, TotalSpent: 100},
		{CustomerID: "c4", Name: "Dee", RecencyScore: 5, FrequencyScore: 1, MonetaryScore: 1, TotalSpent: 100},
	}
}

func TestHandler_Execute_RollsUpBySegment(t *testing.T) {
	src := &MockSource{}
	src.On("CustomerRFM", mock.Anything, "biz-1", mock.MatchedBy(func(r models.DateRange) bool {
		return r.StartDate() == "2024-03-01" && r.EndDate() == "2024-03-13"
	})).Return(scored(), nil)

	out, err := newTestHandler(t, src, nil).Execute(context.Background(), &Input{BusinessID: "biz-1"})

	require.NoError(t, err)
	require.Len(t, out.Segments, len(models.Segments))
	assert.Equal(t, models.SegmentChampions, out.Segments[0].Segment)
	assert.Equal(t, 2, out.Segments[0].CustomerCount)
	assert.Equal(t, 800.0, out.Segments[0].Revenue)
	assert.InDelta(t, 0.8, out.Segments[0].RevenueShare, 1e-9)
	assert.Equal(t, 1000.0, out.TotalRevenue)
	assert.Equal(t, 4, out.TotalCustomers)
	assert.Equal(t, models.ResultTypeChart, out.Result.Type)
	assert.Equal(t, "Champions customers brought in the most revenue this month: $800.00 of $1,000.00 (80%).", out.Result.Summary)
	assert.False(t, out.Cached)
	src.AssertExpectations(t)
}

func TestHandler_Execute_EmptyPeriod(t *testing.T) {
	src := &MockSource{}
	src.On("CustomerRFM", mock.Anything, "biz-1", mock.Anything).Return([]models.CustomerRFM{}, nil)

	out, err := newTestHandler(t, src, nil).Execute(context.Background(), &Input{BusinessID: "biz-1", Timeframe: "today"})

	require.NoError(t, err)
	assert.Len(t, out.Segments, 6)
	assert.Zero(t, out.TotalRevenue)
	assert.Equal(t, "No completed appointments today, so there is nothing to segment yet.", out.Result.Summary)
}

func TestHandler_Execute_UsesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := store.NewSegmentCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute, logger.NewTestLogger(t))
	src := &MockSource{}
	src.On("CustomerRFM", mock.Anything, "biz-1", mock.Anything).Return(scored(), nil).Once()
	h := newTestHandler(t, src, cache)

	first, err := h.Execute(context.Background(), &Input{BusinessID: "biz-1", Timeframe: "last-month"})
	require.NoError(t, err)
	second, err := h.Execute(context.Background(), &Input{BusinessID: "biz-1", Timeframe: "last-month"})
	require.NoError(t, err)

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Segments, second.Segments)
	assert.Equal(t, "2024-02-01", second.StartDate)
	assert.Equal(t, "2024-02-29", second.EndDate)
	src.AssertNumberOfCalls(t, "CustomerRFM", 1)
}

func TestHandler_Execute_CustomRange(t *testing.T) {
	src := &MockSource{}
	src.On("CustomerRFM", mock.Anything, "biz-1", mock.MatchedBy(func(r models.DateRange) bool {
		return r.StartDate() == "2024-01-05" && r.EndDate() == "2024-01-20"
	})).Return(scored(), nil)

	out, err := newTestHandler(t, src, nil).Execute(context.Background(),
		&Input{BusinessID: "biz-1", StartDate: "2024-01-05", EndDate: "2024-01-20"})

	require.NoError(t, err)
	assert.Contains(t, out.Result.Summary, "in the selected period")
}

func TestHandler_Execute_Errors(t *testing.T) {
	failing := &MockSource{}
	failing.On("CustomerRFM", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))

	tests := []struct {
		name  string
		input Input
		code  apperrors.ErrorCode
	}{
		{"missing tenant", Input{}, apperrors.ErrCodeTenantRequired},
		{"unknown timeframe", Input{BusinessID: "biz-1", Timeframe: "next-decade"}, apperrors.ErrCodeValidationFailed},
		{"bad custom date", Input{BusinessID: "biz-1", StartDate: "yesterday", EndDate: "2024-01-01"}, apperrors.ErrCodeValidationFailed},
		{"store failure", Input{BusinessID: "biz-1"}, apperrors.ErrCodeQueryExecutionFailed},
	}

	h := newTestHandler(t, failing, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Execute(context.Background(), &tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.code, apperrors.AsStandardError(err).Code)
		})
	}
}

func TestNewHandler_RequiresSource(t *testing.T) {
	_, err := NewHandler(HandlerOptions{CustomConfig: DefaultConfig()})
	assert.Error(t, err)
}
