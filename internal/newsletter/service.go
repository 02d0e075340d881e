package newsletter

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// Service validates and records newsletter signups.
type Service struct {
	subs Repository
	lg   *zap.Logger
	now  func() time.Time
}

// NewService creates a newsletter Service.
func NewService(subs Repository, lg *zap.Logger) *Service {
	return &Service{
		subs: subs,
		lg:   lg,
		now:  time.Now,
	}
}

// Subscribe normalizes and validates the address, then upserts it. Addresses
// on the suppression list are accepted silently so a scraped bounce list
// cannot be probed through this endpoint.
func (s *Service) Subscribe(ctx context.Context, email, source string) error {
	addr := normalizeEmail(email)
	if addr == "" {
		return ErrInvalidEmail
	}

	suppressed, err := s.subs.IsSuppressed(ctx, addr)
	if err != nil {
		return errors.Wrap(err, "check suppression")
	}
	if suppressed {
		s.lg.Info("suppressed address skipped", zap.String("email", addr))
		return nil
	}

	sub := Subscriber{
		Email:        addr,
		Source:       source,
		SubscribedAt: s.now(),
	}
	if err := s.subs.Upsert(ctx, sub); err != nil {
		return errors.Wrap(err, "upsert subscriber")
	}

	s.lg.Info("subscriber added", zap.String("email", addr), zap.String("source", source))
	return nil
}

// normalizeEmail lowercases and validates the address. Returns "" when the
// address does not parse as a bare RFC 5322 addr-spec.
func normalizeEmail(email string) string {
	addr := strings.ToLower(strings.TrimSpace(email))
	if addr == "" {
		return ""
	}
	parsed, err := mail.ParseAddress(addr)
	if err != nil || parsed.Address != addr {
		return ""
	}
	return addr
}
