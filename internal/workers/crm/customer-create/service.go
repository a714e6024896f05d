package customercreate

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"crm-insights/internal/common/audit"
	"crm-insights/internal/common/errors"
	"crm-insights/internal/common/logger"
	"crm-insights/internal/common/metrics"
	"crm-insights/internal/common/ratelimit"
	"crm-insights/internal/models"
	"crm-insights/internal/store"
)

// RateLimitAction keys the limiter rule for customer writes.
const RateLimitAction = "create_customer"

// CustomerWriter is satisfied by *store.PostgresStore.
type CustomerWriter interface {
	InsertCustomer(ctx context.Context, c models.Customer) error
}

type Service struct {
	config  *Config
	writer  CustomerWriter
	limiter ratelimit.Limiter
	audit   audit.Sink
	logger  logger.Logger
	now     func() time.Time
	newID   func() string
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	s := &Service{
		config:  config,
		writer:  deps.Writer,
		limiter: deps.Limiter,
		audit:   deps.Audit,
		logger:  deps.Logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	if s.limiter == nil {
		s.limiter = ratelimit.AllowAll{}
	}
	if s.audit == nil {
		s.audit = audit.NopSink{}
	}
	return s
}

func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.BusinessID) == "" {
		return nil, errors.NewTenantRequiredError()
	}
	if err := input.Validate(); err != nil {
		return nil, errors.NewValidationFailedError(err.Error())
	}

	if !s.limiter.CheckLimit(ctx, RateLimitAction, input.BusinessID) {
		metrics.RateLimitRejections.WithLabelValues(RateLimitAction).Inc()
		return nil, errors.NewRateLimitedError(RateLimitAction, input.BusinessID)
	}

	customer := models.Customer{
		ID:         s.newID(),
		BusinessID: input.BusinessID,
		Name:       strings.TrimSpace(input.Name),
		Email:      strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:      strings.TrimSpace(input.Phone),
		Notes:      input.Notes,
		CreatedAt:  s.now().UTC(),
	}

	if err := s.writer.InsertCustomer(ctx, customer); err != nil {
		if stderrors.Is(err, store.ErrDuplicateCustomer) {
			return nil, errors.NewDuplicateCustomerError(customer.Email)
		}
		return nil, errors.NewDatabaseInsertFailedError(err)
	}

	entry := audit.NewEntry(customer.BusinessID, "customer_created", "customer", map[string]interface{}{
		"customerId": customer.ID,
	})
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("Audit record failed", map[string]interface{}{
			"businessId": customer.BusinessID,
			"error":      err.Error(),
		})
	}

	s.logger.Info("Customer created", map[string]interface{}{
		"businessId": customer.BusinessID,
		"customerId": customer.ID,
	})
	return &Output{CustomerID: customer.ID, CreatedAt: customer.CreatedAt}, nil
}
