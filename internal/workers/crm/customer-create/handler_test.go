package customercreate

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"crm-insights/internal/common/errors"
	"crm-insights/internal/common/logger"
	"crm-insights/internal/common/ratelimit"
	"crm-insights/internal/models"
	"crm-insights/internal/store"
)

// ==========================
// Mocks
// ==========================

type MockWriter struct {
	mock.Mock
}

func (m *MockWriter) InsertCustomer(ctx context.Context, c models.Customer) error {
	return m.Called(ctx, c).Error(0)
}

type recordingSink struct {
	entries []models.AuditEntry
}

func (s *recordingSink) Record(_ context.Context, e models.AuditEntry) error {
	s.entries = append(s.entries, e)
	return nil
}

func createMockJob(variables map[string]interface{}) entities.Job {
	raw, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:       7,
		Type:      TaskType,
		Retries:   3,
		Variables: string(raw),
	}}
}

var created = time.Date(2024, 3, 13, 9, 0, 0, 0, time.UTC)

func newTestHandler(t *testing.T, w CustomerWriter, limiter ratelimit.Limiter, sink *recordingSink) *Handler {
	t.Helper()
	h, err := NewHandler(HandlerOptions{
		CustomConfig: DefaultConfig(),
		Writer:       w,
		Limiter:      limiter,
		Audit:        sink,
		Logger:       logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	h.service.now = func() time.Time { return created }
	h.service.newID = func() string { return "cust-1" }
	return h
}

// ==========================
// Execute
// ==========================

func TestHandler_Execute_CreatesCustomer(t *testing.T) {
	w := &MockWriter{}
	w.On("InsertCustomer", mock.Anything, models.Customer{
		ID:         "cust-1",
		BusinessID: "biz-1",
		Name:       "Jane Doe",
		Email:      "jane@example.com",
		Phone:      "+1 555 0100",
		CreatedAt:  created,
	}).Return(nil)
	sink := &recordingSink{}

	out, err := newTestHandler(t, w, nil, sink).Execute(context.Background(), &Input{
		BusinessID: "biz-1",
		Name:       "  Jane Doe ",
		Email:      "Jane@Example.com",
		Phone:      "+1 555 0100",
	})

	require.NoError(t, err)
	assert.Equal(t, &Output{CustomerID: "cust-1", CreatedAt: created}, out)
	require.Len(t, sink.entries, 1)
	assert.Equal(t, "customer_created", sink.entries[0].Action)
	assert.Equal(t, "biz-1", sink.entries[0].BusinessID)
	w.AssertExpectations(t)
}

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input Input
		code  errors.ErrorCode
	}{
		{"missing tenant", Input{Name: "Jane"}, errors.ErrCodeTenantRequired},
		{"blank name", Input{BusinessID: "biz-1", Name: "   "}, errors.ErrCodeValidationFailed},
		{"bad email", Input{BusinessID: "biz-1", Name: "Jane", Email: "not-an-email"}, errors.ErrCodeValidationFailed},
		{"bad phone", Input{BusinessID: "biz-1", Name: "Jane", Phone: "call me"}, errors.ErrCodeValidationFailed},
	}

	w := &MockWriter{}
	h := newTestHandler(t, w, nil, &recordingSink{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Execute(context.Background(), &tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.AsStandardError(err).Code)
		})
	}
	w.AssertNotCalled(t, "InsertCustomer", mock.Anything, mock.Anything)
}

func TestHandler_Execute_RateLimited(t *testing.T) {
	w := &MockWriter{}
	w.On("InsertCustomer", mock.Anything, mock.Anything).Return(nil)
	limiter := ratelimit.NewMemoryLimiter(ratelimit.Rules{RateLimitAction: {Limit: 1, Window: time.Minute}})
	h := newTestHandler(t, w, limiter, &recordingSink{})

	_, err := h.Execute(context.Background(), &Input{BusinessID: "biz-1", Name: "A"})
	require.NoError(t, err)
	_, err = h.Execute(context.Background(), &Input{BusinessID: "biz-1", Name: "B"})

	require.Error(t, err)
	stdErr := errors.AsStandardError(err)
	assert.Equal(t, errors.ErrCodeRateLimited, stdErr.Code)
	assert.False(t, stdErr.Retryable)
	w.AssertNumberOfCalls(t, "InsertCustomer", 1)
}

func TestHandler_Execute_DuplicateEmailAgainstPostgres(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	sqlMock.ExpectExec(regexp.QuoteMeta("INSERT INTO customers")).
		WillReturnError(&pq.Error{Code: "23505"})

	sink := &recordingSink{}
	h := newTestHandler(t, store.NewPostgresStore(db, time.Second, time.UTC), nil, sink)
	_, err = h.Execute(context.Background(), &Input{BusinessID: "biz-1", Name: "Jane", Email: "jane@example.com"})

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDuplicateCustomer, errors.AsStandardError(err).Code)
	assert.Empty(t, sink.entries)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestHandler_Execute_InsertFailureIsRetryable(t *testing.T) {
	w := &MockWriter{}
	w.On("InsertCustomer", mock.Anything, mock.Anything).Return(assert.AnError)

	_, err := newTestHandler(t, w, nil, &recordingSink{}).
		Execute(context.Background(), &Input{BusinessID: "biz-1", Name: "Jane"})

	stdErr := errors.AsStandardError(err)
	assert.Equal(t, errors.ErrCodeDatabaseInsertFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

// ==========================
// Input parsing
// ==========================

func TestHandler_ParseInput(t *testing.T) {
	h := newTestHandler(t, &MockWriter{}, nil, &recordingSink{})

	input, err := h.parseInput(createMockJob(map[string]interface{}{
		"businessId": "biz-1",
		"name":       "Jane",
		"notes":      "prefers mornings",
		"requestId":  "r-1",
	}))
	require.NoError(t, err)
	assert.Equal(t, &Input{BusinessID: "biz-1", Name: "Jane", Notes: "prefers mornings"}, input)

	_, err = h.parseInput(createMockJob(map[string]interface{}{"businessId": "biz-1"}))
	require.Error(t, err)
	stdErr := errors.AsStandardError(err)
	assert.Equal(t, errors.ErrCodeValidationFailed, stdErr.Code)
	assert.Contains(t, stdErr.Details, "name")
}
