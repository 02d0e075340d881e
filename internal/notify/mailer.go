// Package notify sends transactional email through an HTTP mail provider.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/vetrina/storefront/internal/checkout"
)

// Config holds the mail provider settings.
type Config struct {
	// Endpoint is the provider's send URL, e.g. https://api.mailprovider.com/v3/send.
	Endpoint string
	// APIKey authenticates requests as a bearer token.
	APIKey string
	// From is the sender address on outgoing mail.
	From string
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Mailer delivers order confirmation email over the provider's HTTP API.
type Mailer struct {
	cfg  Config
	http *http.Client
}

var _ checkout.Mailer = (*Mailer)(nil)

// NewMailer creates a Mailer. A nil HTTPClient gets a 10s timeout default.
func NewMailer(cfg Config) *Mailer {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Mailer{cfg: cfg, http: client}
}

// sendRequest is the provider's wire format for a single message.
type sendRequest struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	TextBody string `json:"text_body"`
}

// SendOrderConfirmation renders the order summary as plain text and posts it
// to the provider.
func (m *Mailer) SendOrderConfirmation(ctx context.Context, email checkout.OrderEmail) error {
	payload, err := json.Marshal(sendRequest{
		From:     m.cfg.From,
		To:       email.To,
		Subject:  fmt.Sprintf("Order confirmation %s", email.OrderNumber),
		TextBody: renderOrderText(email),
	})
	if err != nil {
		return errors.Wrap(err, "marshal send request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.cfg.APIKey)

	resp, err := m.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "send mail")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("mail provider returned %d: %s", resp.StatusCode, body)
	}
	return nil
}

// renderOrderText builds the plain-text body of the confirmation.
func renderOrderText(email checkout.OrderEmail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Thank you for your order %s!\n\n", email.OrderNumber)
	for _, l := range email.Lines {
		fmt.Fprintf(&b, "%d x %s (%s / %s) - $%s\n",
			l.Quantity, l.Name, l.Color, strings.ToUpper(l.Size),
			l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).StringFixed(2),
		)
	}
	fmt.Fprintf(&b, "\nTotal: $%s\n", email.Total.StringFixed(2))

	fmt.Fprintf(&b, "\nShipping to:\n%s\n", email.Shipping.Line1)
	if email.Shipping.Line2 != "" {
		fmt.Fprintf(&b, "%s\n", email.Shipping.Line2)
	}
	fmt.Fprintf(&b, "%s %s, %s\n", email.Shipping.PostalCode, email.Shipping.City, email.Shipping.Country)
	return b.String()
}
