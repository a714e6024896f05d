package revenuebysegment

import "crm-insights/internal/models"

type Input struct {
	BusinessID string `json:"businessId"`
	Timeframe  string `json:"timeframe,omitempty"`
	StartDate  string `json:"startDate,omitempty"`
	EndDate    string `json:"endDate,omitempty"`
}

type Output struct {
	Segments       []models.SegmentRevenue `json:"segments"`
	TotalRevenue   float64                 `json:"totalRevenue"`
	TotalCustomers int                     `json:"totalCustomers"`
	StartDate      string                  `json:"startDate"`
	EndDate        string                  `json:"endDate"`
	Cached         bool                    `json:"cached"`
	Result         models.QueryResult      `json:"result"`
}
