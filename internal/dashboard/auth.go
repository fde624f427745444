package dashboard

import (
	"context"
	"fmt"
	"strings"

	"github.com/ChuLiYu/talenthub-cli/internal/api"
	"github.com/ChuLiYu/talenthub-cli/internal/guard"
	"github.com/ChuLiYu/talenthub-cli/pkg/types"
)

// Landing resolves the stored token and returns the dashboard route of its
// role. Without a token, or when the identity lookup fails, the public
// landing route is returned; a failed lookup is not an error here.
func (a *App) Landing(ctx context.Context) (guard.Route, types.Session, error) {
	token, err := a.store.Token()
	if err != nil {
		return guard.RouteLanding, types.Session{}, fmt.Errorf("failed to read stored token: %w", err)
	}
	if token == "" {
		return guard.RouteLanding, types.Session{}, nil
	}

	sess, err := a.resolver.Resolve(ctx, token)
	if err != nil {
		log.Info("stored token not accepted, showing landing", "error", err)
		return guard.RouteLanding, types.Session{}, nil
	}
	a.remember(sess)
	return guard.LandingFor(sess.Role), sess, nil
}

// Login exchanges credentials for a token, stores it and resolves the role.
// Any failure is reported as ErrInvalidCredentials and leaves the stored
// token as it was.
func (a *App) Login(ctx context.Context, username, password string) (guard.Route, types.Session, error) {
	token, err := a.client.Login(ctx, username, password)
	if err != nil {
		return "", types.Session{}, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}

	sess, err := a.resolver.Resolve(ctx, token)
	if err != nil {
		return "", types.Session{}, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}
	if err := a.store.SetToken(token); err != nil {
		return "", types.Session{}, fmt.Errorf("failed to store token: %w", err)
	}
	a.remember(sess)

	route := guard.LandingFor(sess.Role)
	log.Info("logged in", "user", sess.Username, "role", sess.Role, "route", route)
	return route, sess, nil
}

// SignupInput is the signup form.
type SignupInput struct {
	Username string
	Email    string
	Password string
	Role     types.Role // applicant or employer, applicant when empty
}

// Signup creates an account and returns the login route. Only the applicant
// and employer roles can be chosen.
func (a *App) Signup(ctx context.Context, in SignupInput) (guard.Route, types.User, error) {
	role := in.Role
	if role == types.RoleNone {
		role = types.RoleApplicant
	}
	if role != types.RoleApplicant && role != types.RoleEmployer {
		return "", types.User{}, fmt.Errorf("%w: role must be applicant or employer, got %q", ErrSignupFailed, in.Role)
	}
	if strings.TrimSpace(in.Username) == "" || in.Password == "" {
		return "", types.User{}, fmt.Errorf("%w: username and password are required", ErrSignupFailed)
	}

	user, err := a.client.Signup(ctx, api.SignupRequest{
		Username: strings.TrimSpace(in.Username),
		Email:    strings.TrimSpace(in.Email),
		Password: in.Password,
		Role:     role,
	})
	if err != nil {
		return "", types.User{}, fmt.Errorf("%w: %w", ErrSignupFailed, err)
	}
	log.Info("account created", "user", user.Username, "role", user.Role)
	return guard.RouteLogin, user, nil
}

// Logout drops the stored token and returns the landing route. The remote
// token is revoked on a best-effort basis.
func (a *App) Logout(ctx context.Context) (guard.Route, error) {
	token, err := a.store.Token()
	if err != nil {
		log.Warn("failed to read stored token", "error", err)
	}
	if token != "" {
		if err := a.client.Logout(ctx, token); err != nil {
			log.Warn("remote logout failed", "error", err)
		}
	}
	if err := a.store.ClearToken(); err != nil {
		return "", fmt.Errorf("failed to clear token: %w", err)
	}
	a.remember(types.Session{})
	return guard.RouteLanding, nil
}

// Whoami resolves the stored token.
func (a *App) Whoami(ctx context.Context) (types.Session, error) {
	token, err := a.store.Token()
	if err != nil {
		return types.Session{}, fmt.Errorf("failed to read stored token: %w", err)
	}
	sess, err := a.resolver.Resolve(ctx, token)
	if err != nil {
		return types.Session{}, err
	}
	a.remember(sess)
	return sess, nil
}
