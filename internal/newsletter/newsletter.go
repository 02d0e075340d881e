// Package newsletter handles mailing list signups.
package newsletter

import (
	"context"
	"fmt"
	"time"
)

// ErrInvalidEmail is returned when the submitted address fails validation.
var ErrInvalidEmail = fmt.Errorf("invalid email address")

// Subscriber is one mailing list member.
type Subscriber struct {
	Email        string    `json:"email"`
	Source       string    `json:"source"`
	SubscribedAt time.Time `json:"subscribed_at"`
}

// Repository defines persistence operations for subscribers. Upsert must be
// idempotent: re-subscribing an existing address is not an error.
type Repository interface {
	Upsert(ctx context.Context, sub Subscriber) error
	IsSuppressed(ctx context.Context, email string) (bool, error)
}
