// Package store runs tenant-scoped CRM aggregations against PostgreSQL.
//
// Every statement filters on business_id = $1. Date arguments are ISO calendar
// dates and ranges are inclusive on both ends. Appointment timestamps are
// converted to the store's zone before their calendar date is compared.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lib/pq"

	"crm-insights/internal/models"
)

var (
	ErrTenantRequired    = errors.New("business id is required")
	ErrDuplicateCustomer = errors.New("customer already exists")
)

// SearchLimit caps SearchCustomers results.
const SearchLimit = 10

const uniqueViolation = "23505"

// PostgresStore implements the aggregation contract on a *sql.DB.
type PostgresStore struct {
	db      *sql.DB
	timeout time.Duration
	zone    string
}

// NewPostgresStore wraps db. A positive timeout bounds each statement. Date
// ranges are compared in loc, which should be the zone the ranges were
// resolved in. A nil loc means UTC.
func NewPostgresStore(db *sql.DB, timeout time.Duration, loc *time.Location) *PostgresStore {
	return &PostgresStore{db: db, timeout: timeout, zone: zoneName(loc)}
}

// zoneName returns an IANA name PostgreSQL accepts for AT TIME ZONE.
func zoneName(loc *time.Location) string {
	if loc == nil {
		return "UTC"
	}
	name := loc.String()
	if name != "Local" {
		return name
	}
	if tz := strings.TrimPrefix(os.Getenv("TZ"), ":"); tz != "" {
		return tz
	}
	return "UTC"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (s *PostgresStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// BestCustomer returns the top spender across completed appointments in the
// range, or nil when nobody qualifies.
func (s *PostgresStore) BestCustomer(ctx context.Context, businessID string, r models.DateRange) (*models.CustomerResult, error) {
	if businessID == "" {
		return nil, ErrTenantRequired
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := s.db.QueryRowContext(ctx, bestCustomerSQL, businessID, r.StartDate(), r.EndDate(), s.zone)
	c, err := scanCustomer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", models.QueryTypeBestCustomer, err)
	}
	return c, nil
}

// AtRiskCustomers lists customers with no completed appointment in the last
// daysThreshold days, including customers who never had one.
func (s *PostgresStore) AtRiskCustomers(ctx context.Context, businessID string, daysThreshold int) ([]models.CustomerResult, error) {
	if businessID == "" {
		return nil, ErrTenantRequired
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, atRiskCustomersSQL, businessID, daysThreshold)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", models.QueryTypeAtRiskCustomers, err)
	}
	return collectCustomers(rows, models.QueryTypeAtRiskCustomers)
}

// SearchCustomers matches name fragments case-insensitively and literally, so
// % and _ in the fragment are not wildcards. An empty fragment lists the first
// SearchLimit customers by name.
func (s *PostgresStore) SearchCustomers(ctx context.Context, businessID, nameFragment string) ([]models.CustomerResult, error) {
	if businessID == "" {
		return nil, ErrTenantRequired
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, searchCustomersSQL, businessID, escapeLike(nameFragment), SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", models.QueryTypeSearchCustomers, err)
	}
	return collectCustomers(rows, models.QueryTypeSearchCustomers)
}

// RevenueInRange totals completed appointments. No rows yields a zeroed result.
func (s *PostgresStore) RevenueInRange(ctx context.Context, businessID string, r models.DateRange) (*models.RevenueResult, error) {
	if businessID == "" {
		return nil, ErrTenantRequired
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var out models.RevenueResult
	err := s.db.QueryRowContext(ctx, revenueInRangeSQL, businessID, r.StartDate(), r.EndDate(), s.zone).Scan(
		&out.TotalRevenue,
		&out.AppointmentCount,
		&out.AvgTransactionValue,
		&out.UniqueCustomers,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.RevenueResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", models.QueryTypeRevenueInRange, err)
	}
	return &out, nil
}

// AppointmentsInRange lists appointments of every status, oldest first.
func (s *PostgresStore) AppointmentsInRange(ctx context.Context, businessID string, r models.DateRange) ([]models.AppointmentResult, error) {
	if businessID == "" {
		return nil, ErrTenantRequired
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, appointmentsInRangeSQL, businessID, r.StartDate(), r.EndDate(), s.zone)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", models.QueryTypeAppointmentsRange, err)
	}
	defer rows.Close()

	out := []models.AppointmentResult{}
	for rows.Next() {
		var a models.AppointmentResult
		if err := rows.Scan(&a.ID, &a.CustomerName, &a.Title, &a.StartTime, &a.EndTime, &a.Status, &a.Price); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", models.QueryTypeAppointmentsRange, err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", models.QueryTypeAppointmentsRange, err)
	}
	return out, nil
}

// CustomerRFM scores every customer with a completed appointment in the range
// into recency, frequency and monetary quintiles (5 is best).
func (s *PostgresStore) CustomerRFM(ctx context.Context, businessID string, r models.DateRange) ([]models.CustomerRFM, error) {
	if businessID == "" {
		return nil, ErrTenantRequired
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, customerRFMSQL, businessID, r.StartDate(), r.EndDate(), s.zone)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", models.QueryTypeCustomerRFM, err)
	}
	defer rows.Close()

	out := []models.CustomerRFM{}
	for rows.Next() {
		var c models.CustomerRFM
		if err := rows.Scan(&c.CustomerID, &c.Name, &c.RecencyScore, &c.FrequencyScore, &c.MonetaryScore, &c.TotalSpent); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", models.QueryTypeCustomerRFM, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", models.QueryTypeCustomerRFM, err)
	}
	return out, nil
}

// InsertCustomer writes a single customer row. A second customer with the same
// email in one business returns ErrDuplicateCustomer.
func (s *PostgresStore) InsertCustomer(ctx context.Context, c models.Customer) error {
	if c.BusinessID == "" {
		return ErrTenantRequired
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, insertCustomerSQL,
		c.ID, c.BusinessID, c.Name, c.Email, c.Phone, c.Notes, c.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateCustomer
		}
		return fmt.Errorf("%s: %w", models.QueryTypeInsertCustomer, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanCustomer(row scanner) (*models.CustomerResult, error) {
	var (
		c         models.CustomerResult
		lastVisit sql.NullTime
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.TotalSpent, &c.AppointmentCount, &lastVisit); err != nil {
		return nil, err
	}
	if lastVisit.Valid {
		t := lastVisit.Time
		c.LastVisit = &t
	}
	return &c, nil
}

func collectCustomers(rows *sql.Rows, qt models.QueryType) ([]models.CustomerResult, error) {
	defer rows.Close()

	out := []models.CustomerResult{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", qt, err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", qt, err)
	}
	return out, nil
}
