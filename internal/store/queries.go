package store

const customerColumns = `
	c.id,
	c.name,
	COALESCE(c.email, '') AS email,
	COALESCE(c.phone, '') AS phone,
	COALESCE(SUM(a.price), 0) AS total_spent,
	COUNT(a.id) AS appointment_count,
	MAX(a.start_time) AS last_visit`

const bestCustomerSQL = `
SELECT` + customerColumns + `
FROM customers c
JOIN appointments a
	ON a.customer_id = c.id
	AND a.business_id = c.business_id
WHERE c.business_id = $1
	AND a.status = 'completed'
	AND (a.start_time AT TIME ZONE $4)::date BETWEEN $2::date AND $3::date
GROUP BY c.id, c.name, c.email, c.phone
ORDER BY total_spent DESC, appointment_count DESC
LIMIT 1`

const atRiskCustomersSQL = `
SELECT` + customerColumns + `
FROM customers c
LEFT JOIN appointments a
	ON a.customer_id = c.id
	AND a.business_id = c.business_id
	AND a.status = 'completed'
WHERE c.business_id = $1
GROUP BY c.id, c.name, c.email, c.phone
HAVING MAX(a.start_time) IS NULL
	OR MAX(a.start_time) < NOW() - make_interval(days => $2)
ORDER BY last_visit ASC NULLS FIRST, c.name`

const searchCustomersSQL = `
SELECT` + customerColumns + `
FROM customers c
LEFT JOIN appointments a
	ON a.customer_id = c.id
	AND a.business_id = c.business_id
	AND a.status = 'completed'
WHERE c.business_id = $1
	AND ($2 = '' OR c.name ILIKE '%' || $2 || '%' ESCAPE '\')
GROUP BY c.id, c.name, c.email, c.phone
ORDER BY c.name
LIMIT $3`

const revenueInRangeSQL = `
SELECT
	COALESCE(SUM(price), 0) AS total_revenue,
	COUNT(*) AS appointment_count,
	COALESCE(AVG(price), 0) AS avg_transaction_value,
	COUNT(DISTINCT customer_id) AS unique_customers
FROM appointments
WHERE business_id = $1
	AND status = 'completed'
	AND (start_time AT TIME ZONE $4)::date BETWEEN $2::date AND $3::date`

const appointmentsInRangeSQL = `
SELECT
	a.id,
	COALESCE(c.name, '') AS customer_name,
	COALESCE(a.title, '') AS title,
	a.start_time,
	a.end_time,
	a.status,
	COALESCE(a.price, 0) AS price
FROM appointments a
LEFT JOIN customers c
	ON c.id = a.customer_id
	AND c.business_id = a.business_id
WHERE a.business_id = $1
	AND (a.start_time AT TIME ZONE $4)::date BETWEEN $2::date AND $3::date
ORDER BY a.start_time`

const customerRFMSQL = `
WITH visits AS (
	SELECT
		c.id,
		c.name,
		MAX(a.start_time) AS last_visit,
		COUNT(a.id) AS visit_count,
		COALESCE(SUM(a.price), 0) AS total_spent
	FROM customers c
	JOIN appointments a
		ON a.customer_id = c.id
		AND a.business_id = c.business_id
	WHERE c.business_id = $1
		AND a.status = 'completed'
		AND (a.start_time AT TIME ZONE $4)::date BETWEEN $2::date AND $3::date
	GROUP BY c.id, c.name
)
SELECT
	id,
	name,
	NTILE(5) OVER (ORDER BY last_visit ASC) AS recency_score,
	NTILE(5) OVER (ORDER BY visit_count ASC) AS frequency_score,
	NTILE(5) OVER (ORDER BY total_spent ASC) AS monetary_score,
	total_spent
FROM visits
ORDER BY total_spent DESC`

const insertCustomerSQL = `
INSERT INTO customers (id, business_id, name, email, phone, notes, created_at)
VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7)`
