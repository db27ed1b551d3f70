package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edusocial/internal/logger"
	"edusocial/internal/middleware"
	"edusocial/internal/models"
	"edusocial/internal/session"
	"edusocial/internal/validation"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *session.Session) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	sess := session.New(session.NewMemoryStore())
	require.NoError(t, sess.Set("tok", "ref", &models.User{ID: "u1"}))

	httpClient := &http.Client{Transport: middleware.Chain(nil,
		middleware.Auth(sess),
		middleware.Unauthorized(sess, logger.Discard(), nil),
	)}
	return New(srv.URL+"/api/", httpClient, logger.Discard()), sess
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		header map[string]string
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "401 is ErrUnauthorized",
			status: http.StatusUnauthorized,
			body:   `{"message":"expired","attemptsRemaining":2}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrUnauthorized)
				var e *Error
				require.True(t, errors.As(err, &e))
				assert.Equal(t, 2, e.AttemptsRemaining)
			},
		},
		{
			name:   "423 is LockedError",
			status: http.StatusLocked,
			body:   `{"message":"locked","lockedUntil":"2030-01-01T00:00:00Z","unlockEmailSent":true}`,
			check: func(t *testing.T, err error) {
				var le *LockedError
				require.True(t, errors.As(err, &le))
				assert.True(t, le.UnlockEmailSent)
				assert.Equal(t, 2030, le.LockedUntil.Year())
				assert.Equal(t, http.StatusLocked, StatusCode(err))
			},
		},
		{
			name:   "429 reads Retry-After",
			status: http.StatusTooManyRequests,
			header: map[string]string{"Retry-After": "42"},
			body:   `{"message":"slow down"}`,
			check: func(t *testing.T, err error) {
				var re *RateLimitError
				require.True(t, errors.As(err, &re))
				assert.Equal(t, 42*time.Second, re.RetryAfter)
			},
		},
		{
			name:   "429 defaults to 300s",
			status: http.StatusTooManyRequests,
			check: func(t *testing.T, err error) {
				var re *RateLimitError
				require.True(t, errors.As(err, &re))
				assert.Equal(t, DefaultRetryAfter, re.RetryAfter)
			},
		},
		{
			name:   "500 is a generic Error",
			status: http.StatusInternalServerError,
			body:   `{"error":"boom"}`,
			check: func(t *testing.T, err error) {
				var e *Error
				require.True(t, errors.As(err, &e))
				assert.Equal(t, "boom", e.Message)
				assert.NotErrorIs(t, err, ErrUnauthorized)
			},
		},
		{
			name:   "200 with success false",
			status: http.StatusOK,
			body:   `{"success":false,"message":"nope"}`,
			check: func(t *testing.T, err error) {
				var e *Error
				require.True(t, errors.As(err, &e))
				assert.Equal(t, "nope", e.Message)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.header {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := c.Me(context.Background())
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestClient_401ClearsSession(t *testing.T) {
	c, sess := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.Posts(context.Background(), 1, 10)

	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.False(t, sess.IsAuthenticated())
	assert.Nil(t, sess.User())
}

func TestClient_DecodesEnvelopeAndKeyedPayloads(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/api/posts":
			assert.Equal(t, "1000", r.URL.Query().Get("limit"))
			_, _ = io.WriteString(w, `{"posts":[{"PostID":"p1","LikesCount":2},{"postId":"p2"}]}`)
		case "/api/posts/p1":
			_, _ = io.WriteString(w, `{"success":true,"data":{"post":{"postId":"p1","content":"hi"}}}`)
		case "/api/friendships":
			_, _ = io.WriteString(w, `{"success":true,"data":{"friends":[{"friendshipID":"f1","userID":"u2"}],"pendingRequests":[],"sentRequests":[]}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	posts, err := c.Posts(ctx, 1, 1000)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "p1", posts[0].ID)
	assert.Equal(t, 2, posts[0].LikesCount)

	post, err := c.Post(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "hi", post.Content)

	buckets, err := c.Friendships(ctx)
	require.NoError(t, err)
	require.Len(t, buckets.Friends, 1)
	assert.Equal(t, "u2", buckets.Friends[0].User.ID)
}

func TestClient_SendMessage(t *testing.T) {
	var got map[string]interface{}
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat/messages", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"success":true,"data":{"messageId":"m1","conversationId":"c1","content":"hey"}}`)
	})

	msg, err := c.SendMessage(context.Background(), SendMessageRequest{
		ConversationID: "c1", Content: "hey", Type: models.MessageText, TempMessageID: "temp_x",
	})
	require.NoError(t, err)

	assert.Equal(t, "temp_x", got["tempMessageId"])
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, "temp_x", msg.TempID)
}

func TestClient_ValidatesBeforeSending(t *testing.T) {
	called := false
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	_, err := c.Login(context.Background(), LoginRequest{Email: "not-an-email", Password: "x"})

	var verr *validation.Error
	require.True(t, errors.As(err, &verr))
	assert.NotEmpty(t, verr.Field("email"))
	assert.False(t, called)
}

func TestClient_Login2FAUsesTempToken(t *testing.T) {
	c, sess := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer temp-1", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"bad code"}`)
	})

	_, err := c.Login2FA(context.Background(), "temp-1", TwoFactorRequest{Code: "123456"})

	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.True(t, sess.IsAuthenticated(), "a rejected 2FA code must not clear an unrelated session")
}

func TestClient_CreatePostMultipart(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "hello", r.FormValue("content"))
		files := r.MultipartForm.File["media"]
		require.Len(t, files, 1)
		assert.Equal(t, "pic.png", files[0].Filename)
		_, _ = io.WriteString(w, `{"post":{"postId":"p9","content":"hello"}}`)
	})

	post, err := c.CreatePost(context.Background(), CreatePostRequest{
		Content: "hello",
		Files:   []Upload{{Name: "/tmp/pic.png", Reader: strings.NewReader("png-bytes")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "p9", post.ID)
}

func TestClient_ToggleReportsWhatWasSent(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/posts/p1/like":
			_, _ = io.WriteString(w, `{"liked":false,"likesCount":0}`)
		case "/api/posts/p1/bookmark":
			_, _ = io.WriteString(w, `{}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	res, err := c.LikePost(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, LikeResult{HasState: true, HasCount: true}, res)

	res, err = c.BookmarkPost(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, LikeResult{}, res)
}
