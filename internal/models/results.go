// internal/models/results.go
package models

import "time"

// ResultType tells the caller how to render QueryResult.Data.
type ResultType string

const (
	ResultTypeCustomer     ResultType = "customer"
	ResultTypeRevenue      ResultType = "revenue"
	ResultTypeAppointments ResultType = "appointments"
	ResultTypeChart        ResultType = "chart"
	ResultTypeList         ResultType = "list"
	ResultTypeError        ResultType = "error"
)

type CustomerResult struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email,omitempty"`
	Phone            string     `json:"phone,omitempty"`
	TotalSpent       float64    `json:"totalSpent"`
	AppointmentCount int        `json:"appointmentCount"`
	LastVisit        *time.Time `json:"lastVisit,omitempty"`
}

type RevenueResult struct {
	TotalRevenue        float64 `json:"totalRevenue"`
	AppointmentCount    int     `json:"appointmentCount"`
	AvgTransactionValue float64 `json:"avgTransactionValue"`
	UniqueCustomers     int     `json:"uniqueCustomers"`
}

type AppointmentResult struct {
	ID           string    `json:"id"`
	CustomerName string    `json:"customerName"`
	Title        string    `json:"title"`
	StartTime    time.Time `json:"startTime"`
	EndTime      time.Time `json:"endTime"`
	Status       string    `json:"status"`
	Price        float64   `json:"price"`
}

// QueryResult is what a smart-chat question resolves to.
type QueryResult struct {
	Type                ResultType  `json:"type"`
	Data                interface{} `json:"data"`
	Summary             string      `json:"summary"`
	FollowUpSuggestions []string    `json:"followUpSuggestions"`
}
