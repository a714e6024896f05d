package customercreate

import (
	"time"

	"crm-insights/internal/common/audit"
	"crm-insights/internal/common/logger"
	"crm-insights/internal/common/ratelimit"
)

type Input struct {
	BusinessID string `json:"businessId"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

type Output struct {
	CustomerID string    `json:"customerId"`
	CreatedAt  time.Time `json:"createdAt"`
}

type ServiceDependencies struct {
	Writer  CustomerWriter
	Limiter ratelimit.Limiter
	Audit   audit.Sink
	Logger  logger.Logger
}
