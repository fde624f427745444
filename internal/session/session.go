// Package session turns a stored auth token into a verified Session.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ChuLiYu/talenthub-cli/pkg/types"
)

var log = slog.Default()

// ErrUnauthenticated is returned when no session could be established: the
// token is missing, rejected, or the identity endpoint could not be reached.
var ErrUnauthenticated = errors.New("session: unauthenticated")

// Identity answers who a token belongs to. Implemented by api.Client.
type Identity interface {
	Me(ctx context.Context, token string) (types.User, error)
}

// Resolver verifies tokens against the identity endpoint.
type Resolver struct {
	identity Identity
	now      func() time.Time
}

// NewResolver creates a resolver backed by identity.
func NewResolver(identity Identity) *Resolver {
	return &Resolver{identity: identity, now: time.Now}
}

// Resolve asks the identity endpoint who token belongs to. Every call makes
// exactly one request unless the token is empty. Failures of any kind are
// reported as ErrUnauthenticated wrapping the cause.
func (r *Resolver) Resolve(ctx context.Context, token string) (types.Session, error) {
	if token == "" {
		return types.Session{}, ErrUnauthenticated
	}

	user, err := r.identity.Me(ctx, token)
	if err != nil {
		log.Debug("session resolve failed", "error", err)
		return types.Session{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	sess := types.Session{
		Token:      token,
		Role:       types.ParseRole(user.Role),
		UserID:     user.ID,
		Username:   user.Username,
		VerifiedAt: r.now(),
	}
	log.Debug("session resolved", "user", sess.Username, "role", sess.Role)
	return sess, nil
}

// Refresh returns sess unchanged while it is fresh under maxAge and resolves
// its token again otherwise.
func (r *Resolver) Refresh(ctx context.Context, sess types.Session, maxAge time.Duration) (types.Session, error) {
	if sess.Fresh(r.now(), maxAge) {
		return sess, nil
	}
	return r.Resolve(ctx, sess.Token)
}
