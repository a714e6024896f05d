package errors

import (
	"fmt"
	"testing"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
)

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name        string
		err         *StandardError
		wantCode    string
		wantRetries int
	}{
		{"query failure retries", NewQueryExecutionFailedError("revenue_in_range", fmt.Errorf("conn reset")), "QUERY_EXECUTION_FAILED", 3},
		{"timeout retries less", NewQueryTimeoutError("customer_rfm"), "QUERY_TIMEOUT", 2},
		{"rate limit is terminal", NewRateLimitedError("create_customer", "biz-1"), "RATE_LIMITED", 0},
		{"duplicate is terminal", NewDuplicateCustomerError("a@b.co"), "DUPLICATE_CUSTOMER", 0},
		{"parsing maps onto validation", NewInputParsingFailedError(fmt.Errorf("bad json")), "VALIDATION_FAILED", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmn := ConvertToBPMNError(tt.err)
			assert.Equal(t, tt.wantCode, bpmn.Code)
			assert.Equal(t, tt.wantRetries, bpmn.Retries)
			assert.Equal(t, string(tt.err.Code), bpmn.ErrorVariables["originalErrorCode"])

			vars := bpmn.ToErrorVariables()
			assert.Equal(t, tt.wantCode, vars["errorCode"])
			assert.Equal(t, tt.err.Retryable, vars["retryable"])
		})
	}
}

func TestAsStandardError(t *testing.T) {
	std := NewTenantRequiredError()
	assert.Same(t, std, AsStandardError(std))

	wrapped := AsStandardError(fmt.Errorf("plain"))
	assert.Equal(t, ErrCodeInternal, wrapped.Code)
	assert.Equal(t, "plain", wrapped.Details)
	assert.False(t, wrapped.Retryable)
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeQueryTimeout))
	assert.Equal(t, "ACCESS", GetErrorCategory(ErrCodeRateLimited))
	assert.Equal(t, "ACCESS", GetErrorCategory(ErrCodeTenantRequired))
	assert.Equal(t, "BUSINESS_RULE", GetErrorCategory(ErrCodeDuplicateCustomer))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInputParsingFailed))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
	assert.True(t, IsRetryableErrorCode(ErrCodeNotificationSendFailed))
	assert.False(t, IsRetryableErrorCode(ErrCodeValidationFailed))
}

func TestRemainingRetries(t *testing.T) {
	job := entities.Job{ActivatedJob: &pb.ActivatedJob{Retries: 2}}
	assert.Equal(t, int32(1), remainingRetries(job, 3))

	job = entities.Job{ActivatedJob: &pb.ActivatedJob{Retries: 10}}
	assert.Equal(t, int32(3), remainingRetries(job, 3))
}
