// internal/models/segment.go
package models

// CustomerSegment is an RFM behavioural bucket.
type CustomerSegment string

const (
	SegmentChampions CustomerSegment = "Champions"
	SegmentLoyal     CustomerSegment = "Loyal"
	SegmentAtRisk    CustomerSegment = "At-Risk"
	SegmentLost      CustomerSegment = "Lost"
	SegmentNew       CustomerSegment = "New"
	SegmentPotential CustomerSegment = "Potential"
)

// Segments lists every segment in reporting order.
var Segments = []CustomerSegment{
	SegmentChampions,
	SegmentLoyal,
	SegmentAtRisk,
	SegmentLost,
	SegmentNew,
	SegmentPotential,
}

// CustomerRFM carries one customer's quintile scores (1-5) and spend for a period.
type CustomerRFM struct {
	CustomerID     string  `json:"customerId"`
	Name           string  `json:"name"`
	RecencyScore   int     `json:"recencyScore"`
	FrequencyScore int     `json:"frequencyScore"`
	MonetaryScore  int     `json:"monetaryScore"`
	TotalSpent     float64 `json:"totalSpent"`
}

// SegmentRevenue is one row of the revenue-by-segment dashboard.
type SegmentRevenue struct {
	Segment        CustomerSegment `json:"segment"`
	CustomerCount  int             `json:"customerCount"`
	Revenue        float64         `json:"revenue"`
	AverageRevenue float64         `json:"averageRevenue"`
	RevenueShare   float64         `json:"revenueShare"`
}
