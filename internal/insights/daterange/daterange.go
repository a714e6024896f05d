// Package daterange maps relative timeframes onto concrete reporting windows.
package daterange

import (
	"strings"
	"time"

	"crm-insights/internal/models"
)

// Resolver computes day boundaries in a fixed location.
type Resolver struct {
	loc *time.Location
}

// NewResolver returns a Resolver for loc. A nil loc means time.Local.
func NewResolver(loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.Local
	}
	return &Resolver{loc: loc}
}

// Location returns the location day boundaries are computed in.
func (r *Resolver) Location() *time.Location {
	return r.loc
}

// Resolve turns tf into a DateRange relative to now. Ranges ending "to date" stop at now;
// past periods (last-week, last-month) end on their final calendar day. Unknown timeframes
// resolve to this-month, as does custom without a caller-supplied range.
func (r *Resolver) Resolve(tf models.Timeframe, custom *models.DateRange, now time.Time) models.DateRange {
	now = now.In(r.loc)
	today := midnight(now)

	switch tf {
	case models.TimeframeToday:
		return models.DateRange{Start: today, End: endOfDay(today)}
	case models.TimeframeYesterday:
		start := today.AddDate(0, 0, -1)
		return models.DateRange{Start: start, End: endOfDay(start)}
	case models.TimeframeThisWeek:
		return models.DateRange{Start: weekStart(today), End: now}
	case models.TimeframeLastWeek:
		start := weekStart(today).AddDate(0, 0, -7)
		return models.DateRange{Start: start, End: start.AddDate(0, 0, 6)}
	case models.TimeframeLastMonth:
		thisMonth := monthStart(today)
		return models.DateRange{Start: thisMonth.AddDate(0, -1, 0), End: thisMonth.AddDate(0, 0, -1)}
	case models.TimeframeThisYear:
		return models.DateRange{Start: time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, r.loc), End: now}
	case models.TimeframeCustom:
		if custom != nil {
			return *custom
		}
	}

	return models.DateRange{Start: monthStart(today), End: now}
}

// Resolve is a convenience wrapper using time.Local.
func Resolve(tf models.Timeframe, custom *models.DateRange, now time.Time) models.DateRange {
	return NewResolver(nil).Resolve(tf, custom, now)
}

// Describe renders a timeframe for prose, e.g. "last-month" -> "last month".
func Describe(tf models.Timeframe) string {
	switch tf {
	case "":
		tf = models.TimeframeThisMonth
	case models.TimeframeCustom:
		return "the selected period"
	}
	return strings.ReplaceAll(string(tf), "-", " ")
}

// Phrase is Describe worded to follow a noun: "today", "last month",
// "in the selected period".
func Phrase(tf models.Timeframe) string {
	if tf == models.TimeframeCustom {
		return "in " + Describe(tf)
	}
	return Describe(tf)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// weekStart returns the Sunday on or before day.
// endOfDay is the last millisecond of day's calendar date. Days are not always
// 24 hours long across DST transitions.
func endOfDay(day time.Time) time.Time {
	return day.AddDate(0, 0, 1).Add(-time.Millisecond)
}

func weekStart(day time.Time) time.Time {
	return day.AddDate(0, 0, -int(day.Weekday()))
}

func monthStart(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
}
