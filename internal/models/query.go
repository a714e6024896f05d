// internal/models/query.go
package models

import "time"

// Intent is the coarse category of a business question.
type Intent string

const (
	IntentCustomer    Intent = "customer"
	IntentRevenue     Intent = "revenue"
	IntentAppointment Intent = "appointment"
	IntentAnalytics   Intent = "analytics"
	IntentGeneral     Intent = "general"
)

// Timeframe names a relative reporting window.
type Timeframe string

const (
	TimeframeToday     Timeframe = "today"
	TimeframeYesterday Timeframe = "yesterday"
	TimeframeThisWeek  Timeframe = "this-week"
	TimeframeLastWeek  Timeframe = "last-week"
	TimeframeThisMonth Timeframe = "this-month"
	TimeframeLastMonth Timeframe = "last-month"
	TimeframeThisYear  Timeframe = "this-year"
	TimeframeCustom    Timeframe = "custom"
)

// Metric qualifies what the question asks for. The zero value means no metric was detected.
type Metric string

const (
	MetricNone    Metric = ""
	MetricBest    Metric = "best"
	MetricWorst   Metric = "worst"
	MetricTotal   Metric = "total"
	MetricAverage Metric = "average"
	MetricCount   Metric = "count"
	MetricAtRisk  Metric = "at-risk"
)

// StructuredQuery is the classifier's output for a single question.
type StructuredQuery struct {
	Intent     Intent     `json:"intent"`
	Entity     string     `json:"entity,omitempty"`
	Timeframe  Timeframe  `json:"timeframe"`
	Metric     Metric     `json:"metric,omitempty"`
	CustomDate *DateRange `json:"customDate,omitempty"`
}

// DateRange is a concrete reporting window. End may be "now" for to-date ranges.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

const isoDate = "2006-01-02"

// StartDate returns the calendar date of Start, as passed to the data store.
func (r DateRange) StartDate() string {
	return r.Start.Format(isoDate)
}

// EndDate returns the calendar date of End, as passed to the data store.
func (r DateRange) EndDate() string {
	return r.End.Format(isoDate)
}
