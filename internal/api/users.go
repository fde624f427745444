package api

import (
	"context"
	"net/http"

	"github.com/ChuLiYu/talenthub-cli/pkg/types"
)

// UserQuery selects a page of users. Filters are case-insensitive.
type UserQuery struct {
	PageQuery
	Username string
	Email    string
	Role     string
}

// ListUsers fetches one page of user records. Admin only; the service
// enforces the role.
func (c *Client) ListUsers(ctx context.Context, token string, q UserQuery) (Page[types.User], error) {
	values := q.values()
	if q.Username != "" {
		values.Set("username", q.Username)
	}
	if q.Email != "" {
		values.Set("email", q.Email)
	}
	if q.Role != "" {
		values.Set("role", q.Role)
	}
	payload, err := c.do(ctx, call{
		method:   http.MethodGet,
		url:      c.apiURL("/admin/users/", values),
		resource: "admin.users",
		token:    token,
	})
	if err != nil {
		return Page[types.User]{}, err
	}
	return decodePage[types.User](payload, q.PageQuery)
}
