package models

import (
	"fmt"
	"time"
)

// StatusCompleted is the only status order recording ever writes: the caller
// confirms payment success upstream before POSTing.
const StatusCompleted = "completed"

// Order is an immutable record of a completed purchase of one Pack by one
// email. Rows are append-only; repeat purchases produce additional rows.
type Order struct {
	id               string
	sequence         int
	email            string
	packID           string
	gatewayOrderID   string
	gatewayPaymentID string
	amount           int64
	status           string
	createdAt        time.Time
}

// NewOrder creates a completed Order for one purchased pack.
//
// amount is the share of the total attributed to this pack, in the smallest
// currency unit.
func NewOrder(sequence int, email, packID, gatewayOrderID, gatewayPaymentID string, amount int64) *Order {
	return &Order{
		sequence:         sequence,
		email:            email,
		packID:           packID,
		gatewayOrderID:   gatewayOrderID,
		gatewayPaymentID: gatewayPaymentID,
		amount:           amount,
		status:           StatusCompleted,
		createdAt:        time.Now(),
	}
}

func (o *Order) ID() string               { return o.id }
func (o *Order) Sequence() int            { return o.sequence }
func (o *Order) Email() string            { return o.email }
func (o *Order) PackID() string           { return o.packID }
func (o *Order) GatewayOrderID() string   { return o.gatewayOrderID }
func (o *Order) GatewayPaymentID() string { return o.gatewayPaymentID }
func (o *Order) Amount() int64            { return o.amount }
func (o *Order) Status() string           { return o.status }
func (o *Order) CreatedAt() time.Time     { return o.createdAt }

// UpdatedAt returns the creation time; orders are never updated after insert.
func (o *Order) UpdatedAt() time.Time { return o.createdAt }

func (o *Order) SetID(id string)           { o.id = id }
func (o *Order) SetSequence(seq int)       { o.sequence = seq }
func (o *Order) SetStatus(s string)        { o.status = s }
func (o *Order) SetCreatedAt(ts time.Time) { o.createdAt = ts }

// Validate checks that all purchase identifiers are present.
func (o *Order) Validate() error {
	if o.email == "" {
		return fmt.Errorf("order email is required")
	}
	if o.packID == "" {
		return fmt.Errorf("order pack id is required")
	}
	if o.gatewayOrderID == "" || o.gatewayPaymentID == "" {
		return fmt.Errorf("order gateway identifiers are required")
	}
	if o.amount < 0 {
		return fmt.Errorf("order amount cannot be negative")
	}
	if o.status == "" {
		return fmt.Errorf("order status is required")
	}
	return nil
}
