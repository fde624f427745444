package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ChuLiYu/talenthub-cli/pkg/types"
)

// JobQuery selects a page of jobs.
type JobQuery struct {
	PageQuery
	Title string // case-insensitive substring match
	Sort  string // id, title, salary or created_at
}

// JobInput is the create/update payload of a job.
type JobInput struct {
	Title              string       `json:"title"`
	Description        string       `json:"description"`
	Requirements       string       `json:"requirements"`
	Salary             types.Salary `json:"salary"`
	SalaryConfidential bool         `json:"salary_confidential"`
}

// Validate checks the fields the service would reject anyway.
func (in JobInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("job title is required: %w", ErrBadRequest)
	}
	if in.Salary.Valid && in.Salary.Amount < 0 {
		return fmt.Errorf("salary must not be negative: %w", ErrBadRequest)
	}
	return nil
}

// InputFromJob pre-fills an update form from an existing job.
func InputFromJob(job types.Job) JobInput {
	return JobInput{
		Title:              job.Title,
		Description:        job.Description,
		Requirements:       job.Requirements,
		Salary:             job.Salary,
		SalaryConfidential: job.SalaryConfidential,
	}
}

// ListJobs fetches one page of jobs.
func (c *Client) ListJobs(ctx context.Context, token string, q JobQuery) (Page[types.Job], error) {
	values := q.values()
	if q.Title != "" {
		values.Set("title", q.Title)
	}
	if q.Sort != "" {
		values.Set("sort", q.Sort)
	}
	payload, err := c.do(ctx, call{
		method:   http.MethodGet,
		url:      c.apiURL("/jobs/", values),
		resource: "jobs",
		token:    token,
	})
	if err != nil {
		return Page[types.Job]{}, err
	}
	return decodePage[types.Job](payload, q.PageQuery)
}

// CreateJob posts a new job.
func (c *Client) CreateJob(ctx context.Context, token string, in JobInput) (types.Job, error) {
	if err := in.Validate(); err != nil {
		return types.Job{}, err
	}
	var job types.Job
	err := c.doJSON(ctx, call{
		method:   http.MethodPost,
		url:      c.apiURL("/jobs/", nil),
		resource: "jobs",
		token:    token,
		body:     in,
	}, &job)
	return job, err
}

// UpdateJob replaces the editable fields of job id.
func (c *Client) UpdateJob(ctx context.Context, token string, id int64, in JobInput) (types.Job, error) {
	if err := in.Validate(); err != nil {
		return types.Job{}, err
	}
	var job types.Job
	err := c.doJSON(ctx, call{
		method:   http.MethodPut,
		url:      c.apiURL(fmt.Sprintf("/jobs/%d/", id), nil),
		resource: "jobs",
		token:    token,
		body:     in,
	}, &job)
	return job, err
}

// DeleteJob removes job id.
func (c *Client) DeleteJob(ctx context.Context, token string, id int64) error {
	_, err := c.do(ctx, call{
		method:   http.MethodDelete,
		url:      c.apiURL(fmt.Sprintf("/jobs/%d/", id), nil),
		resource: "jobs",
		token:    token,
	})
	return err
}
