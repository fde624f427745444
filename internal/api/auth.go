package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ChuLiYu/talenthub-cli/pkg/types"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AuthToken string `json:"auth_token"`
}

// SignupRequest is the payload of a new account.
type SignupRequest struct {
	Username string     `json:"username"`
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Role     types.Role `json:"role"`
}

// Login exchanges credentials for an auth token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return "", fmt.Errorf("login: %w", ErrBadRequest)
	}
	var parsed loginResponse
	err := c.doJSON(ctx, call{
		method:   http.MethodPost,
		url:      c.authURL("/token/login/"),
		resource: "auth.login",
		body:     loginRequest{Username: strings.TrimSpace(username), Password: password},
	}, &parsed)
	if err != nil {
		return "", err
	}
	if parsed.AuthToken == "" {
		return "", errors.New("login: response carried no auth_token")
	}
	return parsed.AuthToken, nil
}

// Logout invalidates the token on the service.
func (c *Client) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	_, err := c.do(ctx, call{
		method:   http.MethodPost,
		url:      c.authURL("/token/logout/"),
		resource: "auth.logout",
		token:    token,
	})
	return err
}

// Signup creates an account. The service assigns the id.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (types.User, error) {
	var user types.User
	err := c.doJSON(ctx, call{
		method:   http.MethodPost,
		url:      c.authURL("/users/"),
		resource: "auth.signup",
		body:     req,
	}, &user)
	return user, err
}

// Me asks the identity endpoint who the token belongs to.
func (c *Client) Me(ctx context.Context, token string) (types.User, error) {
	if token == "" {
		return types.User{}, ErrUnauthorized
	}
	var user types.User
	err := c.doJSON(ctx, call{
		method:   http.MethodGet,
		url:      c.authURL("/users/me/"),
		resource: "auth.me",
		token:    token,
	}, &user)
	return user, err
}
