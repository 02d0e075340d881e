package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vetrina/storefront/internal/bag"
)

// ServiceConfig holds the non-dependency knobs for checkout.
type ServiceConfig struct {
	// WhatsAppPhone is the store's number in international format without
	// the leading plus, e.g. "5215512345678". Empty disables the deep link.
	WhatsAppPhone string
	// NotifyEmail receives a copy of every confirmation, typically the
	// store's own inbox. Empty disables the copy.
	NotifyEmail string
}

// PlaceOrderRequest carries the bag contents and buyer details.
type PlaceOrderRequest struct {
	Lines    []bag.Line
	Customer Customer
}

// PlaceOrderResult is the outcome of a successfully placed order.
type PlaceOrderResult struct {
	Order       *Order
	WhatsAppURL string
}

// Service encapsulates order placement. This is the orchestrating layer the
// bag store delegates validation to: quantities and selections are checked
// here, before anything is persisted.
type Service struct {
	cfg    ServiceConfig
	orders Repository
	mailer Mailer
	lg     *zap.Logger
	now    func() time.Time
}

// NewService creates a checkout Service with the required collaborators.
func NewService(cfg ServiceConfig, orders Repository, mailer Mailer, lg *zap.Logger) *Service {
	return &Service{
		cfg:    cfg,
		orders: orders,
		mailer: mailer,
		lg:     lg,
		now:    time.Now,
	}
}

// PlaceOrder validates the bag lines, prices the order, persists it, builds
// the WhatsApp deep link, and dispatches confirmation email. Email failures
// are logged, not propagated: by then the order exists.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyBag
	}

	lines := make([]OrderLine, len(req.Lines))
	total := decimal.Zero
	for i, l := range req.Lines {
		if l.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: l.Product.ID}
		}
		if l.Color == "" {
			return nil, &MissingSelectionError{ProductID: l.Product.ID, Field: "color"}
		}
		if l.Size == "" {
			return nil, &MissingSelectionError{ProductID: l.Product.ID, Field: "size"}
		}

		lines[i] = OrderLine{
			ProductID: l.Product.ID,
			Name:      l.Product.Name,
			Color:     l.Color,
			Size:      l.Size,
			Quantity:  l.Quantity,
			UnitPrice: l.Product.Price,
		}
		total = total.Add(l.Subtotal())
	}
	total = total.Round(2)

	id := uuid.New().String()
	o := &Order{
		ID:        id,
		Number:    orderNumber(id),
		Lines:     lines,
		Total:     total,
		Customer:  req.Customer,
		CreatedAt: s.now(),
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.sendConfirmations(ctx, o)

	return &PlaceOrderResult{
		Order:       o,
		WhatsAppURL: BuildWhatsAppLink(s.cfg.WhatsAppPhone, o),
	}, nil
}

// sendConfirmations emails the customer and, when configured, the store copy.
func (s *Service) sendConfirmations(ctx context.Context, o *Order) {
	recipients := []string{o.Customer.Email}
	if s.cfg.NotifyEmail != "" {
		recipients = append(recipients, s.cfg.NotifyEmail)
	}
	for _, to := range recipients {
		if to == "" {
			continue
		}
		err := s.mailer.SendOrderConfirmation(ctx, OrderEmail{
			To:          to,
			OrderNumber: o.Number,
			Lines:       o.Lines,
			Total:       o.Total,
			Shipping:    o.Customer.Shipping,
		})
		if err != nil {
			s.lg.Error("order confirmation email failed",
				zap.String("order", o.Number),
				zap.String("to", to),
				zap.Error(err),
			)
		}
	}
}

// orderNumber derives the short human-facing order reference from the id.
func orderNumber(id string) string {
	return "VS-" + strings.ToUpper(strings.ReplaceAll(id, "-", "")[:8])
}
