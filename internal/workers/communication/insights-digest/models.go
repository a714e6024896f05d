package insightsdigest

import "crm-insights/internal/models"

type Input struct {
	BusinessID     string `json:"businessId"`
	BusinessName   string `json:"businessName,omitempty"`
	RecipientEmail string `json:"recipientEmail"`
	RecipientPhone string `json:"recipientPhone,omitempty"`
	Timeframe      string `json:"timeframe,omitempty"`
}

type Output struct {
	Status         string          `json:"status"`
	EmailMessageID string          `json:"emailMessageId,omitempty"`
	SMSMessageID   string          `json:"smsMessageId,omitempty"`
	AtRiskCount    int             `json:"atRiskCount"`
	Sections       []DigestSection `json:"sections"`
	SentAt         string          `json:"sentAt"`
}

// DigestSection is one answered question in the digest.
type DigestSection struct {
	Question   string            `json:"question"`
	Summary    string            `json:"summary"`
	ResultType models.ResultType `json:"resultType"`
}

const (
	StatusSent        = "sent"
	StatusRateLimited = "rate_limited"
	StatusDisabled    = "disabled"
)
