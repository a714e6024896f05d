// internal/models/query_types.go
package models

// QueryType names a tenant-scoped aggregation the store can run.
type QueryType string

const (
	QueryTypeBestCustomer      QueryType = "best_customer"
	QueryTypeAtRiskCustomers   QueryType = "at_risk_customers"
	QueryTypeSearchCustomers   QueryType = "search_customers"
	QueryTypeRevenueInRange    QueryType = "revenue_in_range"
	QueryTypeAppointmentsRange QueryType = "appointments_in_range"
	QueryTypeCustomerRFM       QueryType = "customer_rfm"
	QueryTypeInsertCustomer    QueryType = "insert_customer"
)
