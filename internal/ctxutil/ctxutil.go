package ctxutil

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// private keys to avoid collisions
type key int

const (
	keyActorID key = iota
	keySchoolID
	keyOpName
)

// WithActorID threads the resolved acting user's id through a request.
func WithActorID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, keyActorID, id)
}

func ActorID(ctx context.Context) (uuid.UUID, bool) {
	v := ctx.Value(keyActorID)
	if v == nil {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func WithSchoolID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, keySchoolID, id)
}

func SchoolID(ctx context.Context) (uuid.UUID, bool) {
	v := ctx.Value(keySchoolID)
	if v == nil {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// WithOp names the operation for logs.
func WithOp(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, keyOpName, name)
}

func Op(ctx context.Context) (string, bool) {
	v := ctx.Value(keyOpName)
	if v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

var DefaultDBTimeout = 5 * time.Second

// WithTimeout wraps context.WithTimeout, tolerating a non-positive d.
func WithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, d)
}

// WithDBTimeout applies the standard DB timeout, shrinking to the
// parent's remaining deadline when that is shorter.
func WithDBTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if dl, ok := parent.Deadline(); ok {
		remain := time.Until(dl)
		if remain < DefaultDBTimeout {
			return context.WithTimeout(parent, remain)
		}
	}
	return context.WithTimeout(parent, DefaultDBTimeout)
}
