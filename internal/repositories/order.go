package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/packstore/internal/models"
	"github.com/desertthunder/packstore/internal/shared"
)

// OrderRepository implements models.Repository[*models.Order].
//
// Orders are the financial record of a purchase and are append-only:
// Update and Delete are not supported.
type OrderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new OrderRepository with the given database connection
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts a new [models.Order] into the database with generated ID and sequence
func (r *OrderRepository) Create(order *models.Order) error {
	sequence, err := NextSequence(r.db, "orders")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	order.SetID(shared.GenerateID())
	order.SetSequence(sequence)

	if err := order.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO orders (id, sequence, email, pack_id, gateway_order_id, gateway_payment_id, amount, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		order.ID(),
		sequence,
		order.Email(),
		order.PackID(),
		order.GatewayOrderID(),
		order.GatewayPaymentID(),
		order.Amount(),
		order.Status(),
		order.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	return nil
}

// Get retrieves an order by ID
func (r *OrderRepository) Get(id string) (*models.Order, error) {
	query := `
		SELECT id, sequence, email, pack_id, gateway_order_id, gateway_payment_id, amount, status, created_at
		FROM orders
		WHERE id = ?
	`

	return scanOrder(r.db.QueryRow(query, id))
}

// Update is not supported: orders are append-only financial records.
func (r *OrderRepository) Update(order *models.Order) error {
	return fmt.Errorf("orders are append-only: %w", shared.ErrNotImplemented)
}

// Delete is not supported: orders are append-only financial records.
func (r *OrderRepository) Delete(id string) error {
	return fmt.Errorf("orders are append-only: %w", shared.ErrNotImplemented)
}

// List retrieves all orders matching the given criteria, oldest first
func (r *OrderRepository) List(criteria map[string]any) ([]*models.Order, error) {
	query := `
		SELECT id, sequence, email, pack_id, gateway_order_id, gateway_payment_id, amount, status, created_at
		FROM orders
		WHERE 1 = 1
	`

	args := []any{}

	if email, ok := criteria["email"].(string); ok && email != "" {
		query += " AND email = ?"
		args = append(args, email)
	}

	if packID, ok := criteria["pack_id"].(string); ok && packID != "" {
		query += " AND pack_id = ?"
		args = append(args, packID)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrderRow(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return orders, nil
}

// scanOrder scans a single [sql.Row] into a [models.Order]
func scanOrder(row *sql.Row) (*models.Order, error) {
	var (
		id               string
		sequence         int
		email            string
		packID           string
		gatewayOrderID   string
		gatewayPaymentID string
		amount           int64
		status           string
		createdAt        time.Time
	)

	err := row.Scan(&id, &sequence, &email, &packID, &gatewayOrderID, &gatewayPaymentID, &amount, &status, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}

	order := models.NewOrder(sequence, email, packID, gatewayOrderID, gatewayPaymentID, amount)
	order.SetID(id)
	order.SetStatus(status)
	order.SetCreatedAt(createdAt)

	return order, nil
}

// scanOrderRow scans a row from [sql.Rows] into a [models.Order]
func scanOrderRow(rows *sql.Rows) (*models.Order, error) {
	var (
		id               string
		sequence         int
		email            string
		packID           string
		gatewayOrderID   string
		gatewayPaymentID string
		amount           int64
		status           string
		createdAt        time.Time
	)

	err := rows.Scan(&id, &sequence, &email, &packID, &gatewayOrderID, &gatewayPaymentID, &amount, &status, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}

	order := models.NewOrder(sequence, email, packID, gatewayOrderID, gatewayPaymentID, amount)
	order.SetID(id)
	order.SetStatus(status)
	order.SetCreatedAt(createdAt)

	return order, nil
}
