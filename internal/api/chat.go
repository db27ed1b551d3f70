package api

import (
	"context"
	"net/http"
	"net/url"

	"edusocial/internal/models"
)

func (c *Client) Conversations(ctx context.Context) ([]models.Conversation, error) {
	var out []models.Conversation
	if err := c.fetch(ctx, request{method: http.MethodGet, path: "/chat/conversations"}, &out, "conversations"); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Messages(ctx context.Context, conversationID string) ([]models.Message, error) {
	var out []models.Message
	path := "/chat/conversations/" + pathID(conversationID) + "/messages"
	if err := c.fetch(ctx, request{method: http.MethodGet, path: path}, &out, "messages"); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*models.Message, error) {
	var out models.Message
	if err := c.fetch(ctx, request{method: http.MethodPost, path: "/chat/messages", body: req}, &out, "message"); err != nil {
		return nil, err
	}
	if out.TempID == "" {
		out.TempID = req.TempMessageID
	}
	return &out, nil
}

func (c *Client) DeleteMessage(ctx context.Context, messageID string, forEveryone bool) error {
	var q url.Values
	if forEveryone {
		q = url.Values{"forEveryone": {"true"}}
	}
	return c.delete(ctx, "/chat/messages/"+pathID(messageID), q, nil)
}

func (c *Client) CreateConversation(ctx context.Context, req CreateConversationRequest) (*models.Conversation, error) {
	var out models.Conversation
	if err := c.fetch(ctx, request{method: http.MethodPost, path: "/chat/conversations", body: req}, &out, "conversation"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SearchChatUsers(ctx context.Context, query string) ([]models.User, error) {
	var out []models.User
	q := url.Values{"query": {query}}
	if err := c.fetch(ctx, request{method: http.MethodGet, path: "/chat/users/search", query: q}, &out, "users"); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) InitiateCall(ctx context.Context, req CallRequest) (*models.Call, error) {
	var out models.Call
	if err := c.fetch(ctx, request{method: http.MethodPost, path: "/calls/initiate", body: req}, &out, "call"); err != nil {
		return nil, err
	}
	if out.ConversationID == "" {
		out.ConversationID = req.ConversationID
	}
	return &out, nil
}

func (c *Client) AnswerCall(ctx context.Context, callID string) error {
	return c.post(ctx, "/calls/answer", CallActionRequest{CallID: callID}, nil)
}

func (c *Client) RejectCall(ctx context.Context, callID string) error {
	return c.post(ctx, "/calls/reject", CallActionRequest{CallID: callID}, nil)
}

func (c *Client) EndCall(ctx context.Context, callID string) error {
	return c.post(ctx, "/calls/end", CallActionRequest{CallID: callID}, nil)
}
