package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"edusocial/internal/logger"
	"edusocial/internal/validation"
)

// Client talks to the platform's REST API. Authentication and 401 handling
// live in the http.Client's transport (see internal/middleware).
type Client struct {
	baseURL string
	http    *http.Client
	log     logger.Logger
}

func New(baseURL string, httpClient *http.Client, log logger.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    httpClient,
		log:     log,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        interface{}
	raw         io.Reader
	contentType string
	header      http.Header
}

type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.do(ctx, request{method: http.MethodGet, path: path, query: query}, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, request{method: http.MethodPost, path: path, body: body}, out)
}

func (c *Client) put(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, request{method: http.MethodPut, path: path, body: body}, out)
}

func (c *Client) delete(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.do(ctx, request{method: http.MethodDelete, path: path, query: query}, out)
}

// do validates the body, sends the request and decodes the response into out.
func (c *Client) do(ctx context.Context, r request, out interface{}) error {
	var body io.Reader
	contentType := r.contentType
	switch {
	case r.raw != nil:
		body = r.raw
	case r.body != nil:
		if err := validation.Struct(r.body); err != nil {
			if _, ok := err.(*validation.Error); ok {
				return err
			}
		}
		buf, err := json.Marshal(r.body)
		if err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		body = bytes.NewReader(buf)
		contentType = "application/json"
	}

	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	for k, vals := range r.header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", r.method, r.path)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "reading %s %s", r.method, r.path)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classify(resp, payload)
	}
	return decode(resp.StatusCode, payload, out)
}

// decode unwraps the {success,data,message} envelope when present.
func decode(status int, payload []byte, out interface{}) error {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil
	}
	var env envelope
	if payload[0] == '{' {
		if err := json.Unmarshal(payload, &env); err != nil {
			return errors.Wrap(err, "decoding response")
		}
		if env.Success != nil && !*env.Success {
			return &Error{Status: status, Message: env.Message}
		}
	}
	if out == nil {
		return nil
	}
	data := payload
	if env.Success != nil && len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		data = env.Data
	}
	return errors.Wrap(json.Unmarshal(data, out), "decoding response")
}

// unwrap decodes raw into out, first looking for one of keys in an enclosing object.
func unwrap(raw json.RawMessage, out interface{}, keys ...string) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	if raw[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err == nil {
			for _, key := range keys {
				for k, v := range obj {
					v = bytes.TrimSpace(v)
					if strings.EqualFold(k, key) && len(v) > 0 && (v[0] == '{' || v[0] == '[') {
						return errors.Wrap(json.Unmarshal(v, out), "decoding "+key)
					}
				}
			}
		}
	}
	return errors.Wrap(json.Unmarshal(raw, out), "decoding response")
}

// fetch does a request and unwraps the result under keys.
func (c *Client) fetch(ctx context.Context, r request, out interface{}, keys ...string) error {
	var raw json.RawMessage
	if err := c.do(ctx, r, &raw); err != nil {
		return err
	}
	return unwrap(raw, out, keys...)
}

func pathID(id string) string {
	return url.PathEscape(id)
}
