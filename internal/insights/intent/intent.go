// Package intent turns a free-text business question into a StructuredQuery using
// ordered keyword tables. The first label with a matching trigger wins, so table
// order is the tie-break between overlapping keywords.
package intent

import (
	"regexp"
	"strings"

	"crm-insights/internal/models"
)

type rule[T any] struct {
	label    T
	triggers []string
}

var timeframeRules = []rule[models.Timeframe]{
	{models.TimeframeToday, []string{"today"}},
	{models.TimeframeYesterday, []string{"yesterday"}},
	{models.TimeframeThisWeek, []string{"this week"}},
	{models.TimeframeLastWeek, []string{"last week"}},
	{models.TimeframeThisMonth, []string{"this month"}},
	{models.TimeframeLastMonth, []string{"last month"}},
	{models.TimeframeThisYear, []string{"this year"}},
}

var intentRules = []rule[models.Intent]{
	{models.IntentCustomer, []string{"customer", "client", "who", "best customer", "top customer", "vip", "at risk", "churn"}},
	{models.IntentRevenue, []string{"revenue", "money", "sales", "earnings", "income", "profit", "made"}},
	{models.IntentAppointment, []string{"appointment", "booking", "scheduled", "visit", "meeting"}},
	{models.IntentAnalytics, []string{"analytics", "report", "insight", "trend", "analysis"}},
}

var metricRules = []rule[models.Metric]{
	{models.MetricBest, []string{"best", "top", "highest", "most"}},
	{models.MetricWorst, []string{"worst", "lowest", "least"}},
	{models.MetricTotal, []string{"total", "sum", "all"}},
	{models.MetricAverage, []string{"average", "avg", "mean"}},
	{models.MetricCount, []string{"how many", "number of", "count"}},
	{models.MetricAtRisk, []string{"at risk", "churn", "haven't visited", "inactive", "lost"}},
}

var (
	namedPattern   = regexp.MustCompile(`(?i)\bnamed?\s+(\w+)`)
	servicePattern = regexp.MustCompile(`(?i)\b(?:service|appointment)\s+([\w\s]+)`)
)

// Classify parses text. It never fails: unmatched dimensions fall back to
// IntentGeneral, TimeframeThisMonth and MetricNone.
func Classify(text string) models.StructuredQuery {
	lower := strings.ToLower(text)

	return models.StructuredQuery{
		Intent:    match(intentRules, lower, models.IntentGeneral),
		Timeframe: match(timeframeRules, lower, models.TimeframeThisMonth),
		Metric:    match(metricRules, lower, models.MetricNone),
		Entity:    ExtractEntity(text),
	}
}

// ExtractEntity pulls a name ("named Ana", "name Ana") or a trailing service
// description ("appointment haircut and color") out of text. Best effort only.
func ExtractEntity(text string) string {
	if m := namedPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := servicePattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func match[T any](rules []rule[T], text string, fallback T) T {
	for _, r := range rules {
		for _, trigger := range r.triggers {
			if strings.Contains(text, trigger) {
				return r.label
			}
		}
	}
	return fallback
}
