package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Page is one page of a remote collection.
//
// HasNext is always reported explicitly. When the service answers with an
// envelope ({"results", "next", "count"}) it is taken from "next" or derived
// from "count". A bare array carries no such information and falls back to the
// page-is-full rule: a page holding exactly perPage items is assumed to have a
// successor. A final page that happens to be exactly full costs one extra empty
// fetch, which the pager absorbs by resetting to page 1.
type Page[T any] struct {
	Items   []T
	HasNext bool
	Count   int // total reported by the service, -1 when unknown
}

// PageQuery carries the common paging parameters.
type PageQuery struct {
	Page    int
	PerPage int
}

func (q PageQuery) values() url.Values {
	v := url.Values{}
	page := q.Page
	if page < 1 {
		page = 1
	}
	v.Set("page", strconv.Itoa(page))
	if q.PerPage > 0 {
		v.Set("perpage", strconv.Itoa(q.PerPage))
	}
	return v
}

type envelope struct {
	Results json.RawMessage `json:"results"`
	Next    json.RawMessage `json:"next"`
	Count   *int            `json:"count"`
}

func decodePage[T any](payload []byte, q PageQuery) (Page[T], error) {
	page := Page[T]{Count: -1}
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		page.Items = []T{}
		return page, nil
	}

	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &page.Items); err != nil {
			return page, fmt.Errorf("decode page: %w", err)
		}
		page.HasNext = q.PerPage > 0 && len(page.Items) == q.PerPage
		return page, nil
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return page, fmt.Errorf("decode page envelope: %w", err)
	}
	if len(env.Results) > 0 && !bytes.Equal(env.Results, []byte("null")) {
		if err := json.Unmarshal(env.Results, &page.Items); err != nil {
			return page, fmt.Errorf("decode page results: %w", err)
		}
	}
	if page.Items == nil {
		page.Items = []T{}
	}

	switch {
	case len(env.Next) > 0:
		var next *string
		if err := json.Unmarshal(env.Next, &next); err != nil {
			return page, fmt.Errorf("decode page next: %w", err)
		}
		page.HasNext = next != nil && *next != ""
		if env.Count != nil {
			page.Count = *env.Count
		}
	case env.Count != nil:
		page.Count = *env.Count
		current := q.Page
		if current < 1 {
			current = 1
		}
		perPage := q.PerPage
		if perPage <= 0 {
			perPage = len(page.Items)
		}
		page.HasNext = (current-1)*perPage+len(page.Items) < *env.Count
	default:
		page.HasNext = q.PerPage > 0 && len(page.Items) == q.PerPage
	}
	return page, nil
}
