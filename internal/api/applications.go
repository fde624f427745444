package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ChuLiYu/talenthub-cli/pkg/types"
)

// ApplicationQuery selects a page of applications.
type ApplicationQuery struct {
	PageQuery
	Status types.ApplicationStatus // empty means all statuses
}

type applyRequest struct {
	Job  int64 `json:"job"`
	User int64 `json:"user"`
}

type reviewRequest struct {
	Status types.ApplicationStatus `json:"status"`
}

// ListApplications fetches one page of applications visible to the token.
// The service scopes the set by role: applicants see their own, employers see
// those on their jobs, admins see all.
func (c *Client) ListApplications(ctx context.Context, token string, q ApplicationQuery) (Page[types.Application], error) {
	values := q.values()
	if q.Status != "" {
		values.Set("status", string(q.Status))
	}
	payload, err := c.do(ctx, call{
		method:   http.MethodGet,
		url:      c.apiURL("/applications/", values),
		resource: "applications",
		token:    token,
	})
	if err != nil {
		return Page[types.Application]{}, err
	}
	return decodePage[types.Application](payload, q.PageQuery)
}

// CreateApplication applies userID to jobID. Duplicate applications are
// rejected by the service with ErrBadRequest.
func (c *Client) CreateApplication(ctx context.Context, token string, jobID, userID int64) (types.Application, error) {
	var app types.Application
	err := c.doJSON(ctx, call{
		method:   http.MethodPost,
		url:      c.apiURL("/applications/", nil),
		resource: "applications",
		token:    token,
		body:     applyRequest{Job: jobID, User: userID},
	}, &app)
	return app, err
}

// UpdateApplicationStatus sets the review status of application id.
func (c *Client) UpdateApplicationStatus(ctx context.Context, token string, id int64, status types.ApplicationStatus) (types.Application, error) {
	if _, err := types.ParseApplicationStatus(string(status)); err != nil {
		return types.Application{}, fmt.Errorf("%v: %w", err, ErrBadRequest)
	}
	var app types.Application
	err := c.doJSON(ctx, call{
		method:   http.MethodPatch,
		url:      c.apiURL(fmt.Sprintf("/applications/%d/", id), nil),
		resource: "applications",
		token:    token,
		body:     reviewRequest{Status: status},
	}, &app)
	return app, err
}
