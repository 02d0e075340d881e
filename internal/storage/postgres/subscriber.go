package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vetrina/storefront/internal/newsletter"
)

const (
	upsertSubscriberSQL = `INSERT INTO subscribers (email, source, subscribed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET source = EXCLUDED.source`

	isSuppressedSQL = `SELECT suppressed FROM subscribers WHERE email = $1`

	markSuppressedSQL = `INSERT INTO subscribers (email, suppressed)
		VALUES ($1, TRUE)
		ON CONFLICT (email) DO UPDATE SET suppressed = TRUE`
)

var _ newsletter.Repository = (*SubscriberRepository)(nil)

// SubscriberRepository implements newsletter.Repository backed by PostgreSQL.
type SubscriberRepository struct {
	pool *pgxpool.Pool
}

// NewSubscriberRepository returns a SubscriberRepository using the pool.
func NewSubscriberRepository(pool *pgxpool.Pool) *SubscriberRepository {
	return &SubscriberRepository{pool: pool}
}

// Upsert records the subscription. Re-subscribing keeps the original
// subscribed_at and suppression state.
func (r *SubscriberRepository) Upsert(ctx context.Context, sub newsletter.Subscriber) error {
	_, err := r.pool.Exec(ctx, upsertSubscriberSQL, sub.Email, sub.Source, sub.SubscribedAt)
	if err != nil {
		return errors.Wrapf(err, "upsert subscriber %q", sub.Email)
	}
	return nil
}

// IsSuppressed reports whether the address is on the suppression list.
// Unknown addresses are not suppressed.
func (r *SubscriberRepository) IsSuppressed(ctx context.Context, email string) (bool, error) {
	var suppressed bool
	err := r.pool.QueryRow(ctx, isSuppressedSQL, email).Scan(&suppressed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, errors.Wrapf(err, "check suppression for %q", email)
	}
	return suppressed, nil
}

// MarkSuppressed flags the address so future signups are dropped silently.
// Used by the bulk suppression import tool.
func (r *SubscriberRepository) MarkSuppressed(ctx context.Context, email string) error {
	if _, err := r.pool.Exec(ctx, markSuppressedSQL, email); err != nil {
		return errors.Wrapf(err, "mark suppressed %q", email)
	}
	return nil
}
