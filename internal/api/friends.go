package api

import (
	"context"
	"net/http"
	"net/url"

	"edusocial/internal/models"
)

func (c *Client) Friendships(ctx context.Context) (*models.FriendshipBuckets, error) {
	var out models.FriendshipBuckets
	if err := c.get(ctx, "/friendships", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UserFriendships(ctx context.Context, userID string) (*models.FriendshipBuckets, error) {
	var out models.FriendshipBuckets
	if err := c.get(ctx, "/friendships/user/"+pathID(userID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SendFriendRequest(ctx context.Context, req FriendRequest) (*models.Friendship, error) {
	var out models.Friendship
	if err := c.fetch(ctx, request{method: http.MethodPost, path: "/friendships", body: req}, &out, "friendship"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AcceptFriendship(ctx context.Context, friendshipID string) error {
	return c.put(ctx, "/friendships/"+pathID(friendshipID)+"/accept", nil, nil)
}

func (c *Client) RejectFriendship(ctx context.Context, friendshipID string) error {
	return c.put(ctx, "/friendships/"+pathID(friendshipID)+"/reject", nil, nil)
}

// DeleteFriendship cancels a sent request or removes a friend.
func (c *Client) DeleteFriendship(ctx context.Context, friendshipID string) error {
	return c.delete(ctx, "/friendships/"+pathID(friendshipID), nil, nil)
}

func (c *Client) FriendSuggestions(ctx context.Context) ([]models.User, error) {
	var out []models.User
	if err := c.fetch(ctx, request{method: http.MethodGet, path: "/friendships/suggestions/random"}, &out, "suggestions", "users"); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	var out []models.User
	q := url.Values{"query": {query}}
	if err := c.fetch(ctx, request{method: http.MethodGet, path: "/users/search", query: q}, &out, "users"); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UserInfo(ctx context.Context, userID string) (*models.User, error) {
	var out models.User
	if err := c.fetch(ctx, request{method: http.MethodGet, path: "/users/" + pathID(userID)}, &out, "user"); err != nil {
		return nil, err
	}
	return &out, nil
}
