package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ChuLiYu/talenthub-cli/internal/api"
	"github.com/ChuLiYu/talenthub-cli/internal/fakehub"
	"github.com/ChuLiYu/talenthub-cli/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubIdentity struct {
	user  types.User
	err   error
	calls int
}

func (s *stubIdentity) Me(_ context.Context, token string) (types.User, error) {
	s.calls++
	return s.user, s.err
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestResolveEmptyTokenMakesNoCall(t *testing.T) {
	identity := &stubIdentity{}
	_, err := NewResolver(identity).Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Zero(t, identity.calls)
}

func TestResolveMapsRoles(t *testing.T) {
	tests := []struct {
		role string
		want types.Role
	}{
		{"admin", types.RoleAdmin},
		{"employer", types.RoleEmployer},
		{"Applicant", types.RoleApplicant},
		{"not_assigned", types.RoleNone},
		{"", types.RoleNone},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
			identity := &stubIdentity{user: types.User{ID: 7, Username: "u", Role: tt.role}}
			r := NewResolver(identity)
			r.now = fixedClock(now)

			sess, err := r.Resolve(context.Background(), "tok")
			require.NoError(t, err)
			assert.Equal(t, tt.want, sess.Role)
			assert.Equal(t, int64(7), sess.UserID)
			assert.Equal(t, "tok", sess.Token)
			assert.Equal(t, now, sess.VerifiedAt)
			assert.True(t, sess.Authenticated())
			assert.Equal(t, 1, identity.calls)
		})
	}
}

func TestResolveWrapsFailures(t *testing.T) {
	cause := errors.New("connection refused")
	identity := &stubIdentity{err: cause}

	_, err := NewResolver(identity).Resolve(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.ErrorIs(t, err, cause)
}

func TestRefreshHonoursMaxAge(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	identity := &stubIdentity{user: types.User{ID: 1, Role: "employer"}}
	r := NewResolver(identity)
	r.now = fixedClock(start)

	sess, err := r.Resolve(context.Background(), "tok")
	require.NoError(t, err)
	require.Equal(t, 1, identity.calls)

	r.now = fixedClock(start.Add(30 * time.Second))
	_, err = r.Refresh(context.Background(), sess, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, identity.calls, "fresh session is not re-verified")

	_, err = r.Refresh(context.Background(), sess, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, identity.calls, "max age 0 verifies every time")

	r.now = fixedClock(start.Add(2 * time.Minute))
	_, err = r.Refresh(context.Background(), sess, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 3, identity.calls, "stale session is re-verified")
}

func TestResolveAgainstService(t *testing.T) {
	hub := fakehub.New(t)
	client := api.NewClient(hub.AuthBase(), hub.APIBase(), nil)
	user, token := hub.AddUser("erin", "pw", types.RoleEmployer)

	sess, err := NewResolver(client).Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, types.RoleEmployer, sess.Role)
	assert.Equal(t, user.ID, sess.UserID)

	_, err = NewResolver(client).Resolve(context.Background(), "bogus")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.ErrorIs(t, err, api.ErrUnauthorized)
	assert.Equal(t, 2, hub.CallCount("GET /auth/users/me/"))
}
