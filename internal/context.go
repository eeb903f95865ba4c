package internal

import (
	"context"
	"time"
)

type ctxKey string

const ContextGuestKey ctxKey = "guestID"

func GuestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if guestID, ok := ctx.Value(ContextGuestKey).(string); ok {
		return guestID
	}
	return ""
}

func ContextWithGuestID(ctx context.Context, guestID string) context.Context {
	return context.WithValue(ctx, ContextGuestKey, guestID)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
