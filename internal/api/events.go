package api

import (
	"context"
	"net/http"
	"net/url"

	"edusocial/internal/models"
)

func (f EventFilter) query() url.Values {
	q := url.Values{}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Difficulty != "" {
		q.Set("difficulty", f.Difficulty)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	return q
}

func (c *Client) Events(ctx context.Context, filter EventFilter) ([]models.Event, error) {
	var out []models.Event
	if err := c.fetch(ctx, request{method: http.MethodGet, path: "/events", query: filter.query()}, &out, "events"); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpcomingEvents(ctx context.Context) ([]models.Event, error) {
	var out []models.Event
	if err := c.fetch(ctx, request{method: http.MethodGet, path: "/events/upcoming"}, &out, "events"); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Event(ctx context.Context, eventID string) (*models.Event, error) {
	var out models.Event
	if err := c.fetch(ctx, request{method: http.MethodGet, path: "/events/" + pathID(eventID)}, &out, "event"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RegisterEvent(ctx context.Context, eventID string) error {
	return c.post(ctx, "/events/"+pathID(eventID)+"/register", nil, nil)
}

func (c *Client) CancelEventRegistration(ctx context.Context, eventID string) error {
	return c.delete(ctx, "/events/"+pathID(eventID)+"/register", nil, nil)
}

func (c *Client) EventRegistrationStatus(ctx context.Context, eventID string) (bool, error) {
	var out struct {
		IsRegistered *bool `json:"isRegistered"`
		Registered   *bool `json:"registered"`
	}
	if err := c.get(ctx, "/events/"+pathID(eventID)+"/registration-status", nil, &out); err != nil {
		return false, err
	}
	switch {
	case out.IsRegistered != nil:
		return *out.IsRegistered, nil
	case out.Registered != nil:
		return *out.Registered, nil
	}
	return false, nil
}
