package dispatch

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"crm-insights/internal/insights/daterange"
	"crm-insights/internal/models"
)

type branch int

const (
	branchDefault branch = iota
	branchBestCustomer
	branchAtRisk
	branchSearch
	branchRevenue
	branchAppointments
)

var followUps = map[branch][]string{
	branchDefault: {
		"Who is my best customer this month?",
		"How much revenue did I make this week?",
		"How many appointments do I have today?",
	},
	branchBestCustomer: {
		"Which customers are at risk?",
		"How much revenue did I make this month?",
		"Who was my best customer last month?",
	},
	branchAtRisk: {
		"Who is my best customer this month?",
		"How many appointments do I have this week?",
		"How much revenue did I make last month?",
	},
	branchSearch: {
		"Who is my best customer this month?",
		"Which customers are at risk?",
	},
	branchRevenue: {
		"How much revenue did I make last month?",
		"Who is my best customer this month?",
		"How many appointments do I have this week?",
	},
	branchAppointments: {
		"How much revenue did I make this week?",
		"Which customers are at risk?",
	},
}

var printer = message.NewPrinter(language.English)

// suggestions returns a copy so callers can't mutate the lookup.
func suggestions(b branch) []string {
	src := followUps[b]
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// DefaultSuggestions returns the general follow-up questions offered when no
// topic-specific list applies.
func DefaultSuggestions() []string {
	return suggestions(branchDefault)
}

func formatCurrency(amount float64) string {
	return printer.Sprintf("$%.2f", amount)
}

func plural(n int, singular, pluralForm string) string {
	if n == 1 {
		return singular
	}
	return pluralForm
}

func period(tf models.Timeframe) string {
	return daterange.Phrase(tf)
}

func bestCustomerSummary(c *models.CustomerResult, tf models.Timeframe) string {
	return fmt.Sprintf("Your best customer %s is %s, with %s in revenue from %d %s.",
		period(tf), c.Name, formatCurrency(c.TotalSpent),
		c.AppointmentCount, plural(c.AppointmentCount, "appointment", "appointments"))
}

func noBestCustomerSummary(tf models.Timeframe) string {
	return fmt.Sprintf("No customers found with completed appointments %s.", period(tf))
}

func atRiskSummary(n int) string {
	if n == 0 {
		return fmt.Sprintf("Great news! All of your customers have visited in the last %d days.", AtRiskDays)
	}
	return fmt.Sprintf("You have %d %s who %s visited in over %d days.",
		n, plural(n, "customer", "customers"), plural(n, "hasn't", "haven't"), AtRiskDays)
}

func searchSummary(n int, entity string) string {
	switch {
	case n == 0 && entity != "":
		return fmt.Sprintf("No customers found matching %q.", entity)
	case n == 0:
		return "You don't have any customers yet."
	case entity != "":
		return fmt.Sprintf("Found %d %s matching %q.", n, plural(n, "customer", "customers"), entity)
	default:
		return fmt.Sprintf("Found %d %s.", n, plural(n, "customer", "customers"))
	}
}

func revenueSummary(r models.RevenueResult, tf models.Timeframe) string {
	return fmt.Sprintf("Your revenue %s is %s from %d completed %s, averaging %s per transaction across %d unique %s.",
		period(tf), formatCurrency(r.TotalRevenue),
		r.AppointmentCount, plural(r.AppointmentCount, "appointment", "appointments"),
		formatCurrency(r.AvgTransactionValue),
		r.UniqueCustomers, plural(r.UniqueCustomers, "customer", "customers"))
}

func appointmentsSummary(n int, tf models.Timeframe) string {
	return fmt.Sprintf("You have %d %s %s.", n, plural(n, "appointment", "appointments"), period(tf))
}

func clarifyResult() models.QueryResult {
	return models.QueryResult{
		Type:                models.ResultTypeError,
		Summary:             "I'm not sure how to answer that yet. Try asking about your customers, your revenue or your appointments.",
		FollowUpSuggestions: suggestions(branchDefault),
	}
}

func failedResult() models.QueryResult {
	return models.QueryResult{
		Type:                models.ResultTypeError,
		Summary:             "Sorry, I couldn't answer that right now. Please try again in a moment.",
		FollowUpSuggestions: suggestions(branchDefault),
	}
}
