// Package segment buckets customers by recency, frequency and monetary (RFM) quintile scores.
package segment

import "crm-insights/internal/models"

const (
	highScore = 4
	midScore  = 3
	lowScore  = 2
	minScore  = 1
)

// Classify maps 1-5 RFM scores onto a segment. Rules are evaluated top to
// bottom and the first match wins. New is checked ahead of At-Risk because
// every New score pair also satisfies the At-Risk guard.
func Classify(recency, frequency, monetary int) models.CustomerSegment {
	switch {
	case recency >= highScore && frequency >= highScore && monetary >= highScore:
		return models.SegmentChampions
	case recency >= midScore && frequency >= midScore && monetary >= midScore:
		return models.SegmentLoyal
	case recency >= highScore && frequency <= minScore:
		return models.SegmentNew
	case recency >= midScore && frequency <= lowScore:
		return models.SegmentAtRisk
	case recency <= lowScore && frequency <= lowScore:
		return models.SegmentLost
	default:
		return models.SegmentPotential
	}
}

// Rollup groups customers by segment and sums their spend. Every segment is
// present in the result, in models.Segments order, even when empty.
func Rollup(customers []models.CustomerRFM) []models.SegmentRevenue {
	bySegment := make(map[models.CustomerSegment]*models.SegmentRevenue, len(models.Segments))
	out := make([]models.SegmentRevenue, len(models.Segments))
	for i, s := range models.Segments {
		out[i].Segment = s
		bySegment[s] = &out[i]
	}

	var total float64
	for _, c := range customers {
		row := bySegment[Classify(c.RecencyScore, c.FrequencyScore, c.MonetaryScore)]
		row.CustomerCount++
		row.Revenue += c.TotalSpent
		total += c.TotalSpent
	}

	for i := range out {
		if out[i].CustomerCount > 0 {
			out[i].AverageRevenue = out[i].Revenue / float64(out[i].CustomerCount)
		}
		if total > 0 {
			out[i].RevenueShare = out[i].Revenue / total
		}
	}
	return out
}
