package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine is one (motorbike, quantity) pair submitted for purchase.
type CartLine struct {
	MotorbikeID int64 `json:"motorbike_id"`
	Quantity    int   `json:"quantity"`
}

type Order struct {
	ID          string          `json:"id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

// OrderLine freezes the unit price observed in the same transaction that
// decremented the motorbike's stock. It never changes after placement.
type OrderLine struct {
	OrderID     string          `json:"order_id"`
	MotorbikeID int64           `json:"motorbike_id"`
	Quantity    int             `json:"quantity"`
	PriceAtTime decimal.Decimal `json:"price_at_time"`
}

// PlacedOrder is the result of a successful placement.
type PlacedOrder struct {
	OrderID     string
	TotalAmount decimal.Decimal
	Lines       []OrderLine
	CreatedAt   time.Time

	// TotalMismatch reports that the client-supplied total disagreed with the
	// server-computed one. The order is placed anyway; the flag is surfaced
	// on the order.placed event for fraud review.
	TotalMismatch bool
}

// LineDetail is an order line enriched with the motorbike's display
// attributes at query time. Price stays the frozen PriceAtTime.
type LineDetail struct {
	MotorbikeID int64           `json:"motorbike_id"`
	Brand       string          `json:"brand"`
	Model       string          `json:"model"`
	ImageURL    *string         `json:"image_url,omitempty"`
	Quantity    int             `json:"quantity"`
	PriceAtTime decimal.Decimal `json:"price_at_time"`
}

type OrderDetail struct {
	Order
	Lines []LineDetail `json:"items"`
}

type OrderSummary struct {
	Order
	TotalItems    int `json:"total_items"`
	TotalQuantity int `json:"total_quantity"`
}
