package smartchatquery

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"crm-insights/internal/common/config"
	"crm-insights/internal/common/errors"
	"crm-insights/internal/common/logger"
	"crm-insights/internal/common/ratelimit"
	"crm-insights/internal/insights/chat"
	"crm-insights/internal/insights/dispatch"
	"crm-insights/internal/models"
)

type MockAsker struct {
	mock.Mock
}

func (m *MockAsker) AskDetailed(ctx context.Context, question, businessID string) chat.Answer {
	args := m.Called(ctx, question, businessID)
	return args.Get(0).(chat.Answer)
}

type denyAll struct{}

func (denyAll) CheckLimit(context.Context, string, string) bool { return false }

func createMockJob(variables map[string]interface{}) entities.Job {
	raw, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:       42,
		Type:      TaskType,
		Retries:   3,
		Variables: string(raw),
	}}
}

func newTestHandler(t *testing.T, asker Asker, limiter ratelimit.Limiter) *Handler {
	t.Helper()
	h, err := NewHandler(HandlerOptions{
		CustomConfig: DefaultConfig(),
		Engine:       asker,
		Limiter:      limiter,
		Logger:       logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return h
}

func TestHandler_Execute_Answers(t *testing.T) {
	asker := &MockAsker{}
	answer := chat.Answer{
		Query:  models.StructuredQuery{Intent: models.IntentRevenue, Timeframe: models.TimeframeToday},
		Result: models.QueryResult{Type: models.ResultTypeRevenue, Summary: "Your revenue today is $0.00"},
	}
	asker.On("AskDetailed", mock.Anything, "How much did I make today?", "biz-1").Return(answer)

	h := newTestHandler(t, asker, nil)
	out, err := h.Execute(context.Background(), &Input{Question: " How much did I make today? ", BusinessID: "biz-1"})

	require.NoError(t, err)
	assert.False(t, out.RateLimited)
	assert.Equal(t, answer.Query, out.StructuredQuery)
	assert.Equal(t, answer.Result, out.Result)
	asker.AssertExpectations(t)
}

func TestHandler_Execute_RateLimitedIsAnAnswer(t *testing.T) {
	asker := &MockAsker{}
	h := newTestHandler(t, asker, denyAll{})

	out, err := h.Execute(context.Background(), &Input{Question: "Who is my best customer?", BusinessID: "biz-1"})

	require.NoError(t, err)
	assert.True(t, out.RateLimited)
	assert.Equal(t, models.ResultTypeError, out.Result.Type)
	assert.NotEmpty(t, out.Result.Summary)
	assert.Equal(t, dispatch.DefaultSuggestions(), out.Result.FollowUpSuggestions)
	assert.GreaterOrEqual(t, len(out.Result.FollowUpSuggestions), 2)
	assert.LessOrEqual(t, len(out.Result.FollowUpSuggestions), 4)
	asker.AssertNotCalled(t, "AskDetailed", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_Execute_LimiterIsPerTenant(t *testing.T) {
	asker := &MockAsker{}
	asker.On("AskDetailed", mock.Anything, mock.Anything, mock.Anything).Return(chat.Answer{})
	limiter := ratelimit.NewMemoryLimiter(ratelimit.Rules{RateLimitAction: {Limit: 1, Window: time.Minute}})
	h := newTestHandler(t, asker, limiter)
	ctx := context.Background()

	first, err := h.Execute(ctx, &Input{Question: "revenue", BusinessID: "biz-1"})
	require.NoError(t, err)
	second, err := h.Execute(ctx, &Input{Question: "revenue", BusinessID: "biz-1"})
	require.NoError(t, err)
	other, err := h.Execute(ctx, &Input{Question: "revenue", BusinessID: "biz-2"})
	require.NoError(t, err)

	assert.False(t, first.RateLimited)
	assert.True(t, second.RateLimited)
	assert.False(t, other.RateLimited)
}

func TestHandler_Execute_InputErrors(t *testing.T) {
	tests := []struct {
		name  string
		input Input
		code  errors.ErrorCode
	}{
		{"missing tenant", Input{Question: "revenue"}, errors.ErrCodeTenantRequired},
		{"blank question", Input{Question: "  ", BusinessID: "biz-1"}, errors.ErrCodeValidationFailed},
		{"question too long", Input{Question: strings.Repeat("a", 501), BusinessID: "biz-1"}, errors.ErrCodeValidationFailed},
	}

	h := newTestHandler(t, &MockAsker{}, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Execute(context.Background(), &tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.AsStandardError(err).Code)
		})
	}
}

func TestHandler_ParseInput(t *testing.T) {
	h := newTestHandler(t, &MockAsker{}, nil)

	input, err := h.parseInput(createMockJob(map[string]interface{}{
		"question":   "Show my appointments",
		"businessId": "biz-9",
		"extra":      1,
	}))

	require.NoError(t, err)
	assert.Equal(t, &Input{Question: "Show my appointments", BusinessID: "biz-9"}, input)
}

func TestNewHandler(t *testing.T) {
	_, err := NewHandler(HandlerOptions{CustomConfig: DefaultConfig()})
	assert.Error(t, err, "engine is required")

	h, err := NewHandler(HandlerOptions{
		AppConfig: &config.Config{Workers: map[string]config.WorkerConfig{
			TaskType: {Enabled: true, MaxJobsActive: 3, Timeout: 1500},
		}},
		Engine: &MockAsker{},
	})
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, h.config.Timeout)
	assert.Equal(t, 3, h.config.MaxJobsActive)
}
