package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Sentinel errors for checkout validation.
var ErrEmptyBag = fmt.Errorf("bag is empty")

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// MissingSelectionError indicates a line item reached checkout without a
// selected color or size.
type MissingSelectionError struct {
	ProductID string
	Field     string
}

func (e *MissingSelectionError) Error() string {
	return fmt.Sprintf("no %s selected for product %s", e.Field, e.ProductID)
}

// Order is a completed checkout with its pricing snapshot.
type Order struct {
	ID        string
	Number    string
	Lines     []OrderLine
	Total     decimal.Decimal
	Customer  Customer
	CreatedAt time.Time
}

// OrderLine is one purchased line, priced at checkout time.
type OrderLine struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Color     string          `json:"color"`
	Size      string          `json:"size"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Customer identifies the buyer and where to ship.
type Customer struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Phone    string  `json:"phone"`
	Shipping Address `json:"shipping"`
}

// Address is a shipping address.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, order *Order) error
}

// OrderEmail is the flat payload handed to the mail collaborator.
type OrderEmail struct {
	To          string
	OrderNumber string
	Lines       []OrderLine
	Total       decimal.Decimal
	Shipping    Address
}

// Mailer sends transactional order email. Delivery guarantees are the
// collaborator's concern, not this package's.
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, email OrderEmail) error
}
