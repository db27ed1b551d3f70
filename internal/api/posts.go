package api

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"

	"edusocial/internal/models"
)

// LikeResult is the server's view after a like/bookmark toggle. HasState
// and HasCount tell whether the response carried each value.
type LikeResult struct {
	Active   bool
	Count    int
	HasState bool
	HasCount bool
}

type toggleBody struct {
	Liked          *bool `json:"liked"`
	IsLiked        *bool `json:"isLiked"`
	Bookmarked     *bool `json:"bookmarked"`
	IsBookmarked   *bool `json:"isBookmarked"`
	LikesCount     *int  `json:"likesCount"`
	BookmarksCount *int  `json:"bookmarksCount"`
}

func (t toggleBody) result() LikeResult {
	var r LikeResult
	for _, b := range []*bool{t.Liked, t.IsLiked, t.Bookmarked, t.IsBookmarked} {
		if b != nil {
			r.Active, r.HasState = *b, true
			break
		}
	}
	for _, n := range []*int{t.LikesCount, t.BookmarksCount} {
		if n != nil {
			r.Count, r.HasCount = *n, true
			break
		}
	}
	return r
}

func pageQuery(page, limit int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}

func (c *Client) Posts(ctx context.Context, page, limit int) ([]models.Post, error) {
	var out []models.Post
	err := c.fetch(ctx, request{method: http.MethodGet, path: "/posts", query: pageQuery(page, limit)}, &out, "posts")
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Post(ctx context.Context, postID string) (*models.Post, error) {
	var out models.Post
	if err := c.fetch(ctx, request{method: http.MethodGet, path: "/posts/" + pathID(postID)}, &out, "post"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UserPosts(ctx context.Context, userID string, page, limit int) ([]models.Post, error) {
	var out []models.Post
	err := c.fetch(ctx, request{method: http.MethodGet, path: "/posts/user/" + pathID(userID), query: pageQuery(page, limit)}, &out, "posts")
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreatePost sends a multipart form: title, content and one "media" part per file.
func (c *Client) CreatePost(ctx context.Context, req CreatePostRequest) (*models.Post, error) {
	if req.Content == "" && len(req.Files) == 0 {
		return nil, errors.New("post needs content or media")
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if req.Title != "" {
		_ = mw.WriteField("title", req.Title)
	}
	_ = mw.WriteField("content", req.Content)
	for _, f := range req.Files {
		part, err := mw.CreateFormFile("media", filepath.Base(f.Name))
		if err != nil {
			return nil, errors.Wrap(err, "creating form file")
		}
		if _, err := io.Copy(part, f.Reader); err != nil {
			return nil, errors.Wrapf(err, "reading %s", f.Name)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, errors.Wrap(err, "closing multipart body")
	}

	var out models.Post
	err := c.fetch(ctx, request{
		method:      http.MethodPost,
		path:        "/posts",
		raw:         &buf,
		contentType: mw.FormDataContentType(),
	}, &out, "post")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdatePost(ctx context.Context, postID string, req UpdatePostRequest) (*models.Post, error) {
	var out models.Post
	if err := c.fetch(ctx, request{method: http.MethodPut, path: "/posts/" + pathID(postID), body: req}, &out, "post"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeletePost(ctx context.Context, postID string) error {
	return c.delete(ctx, "/posts/"+pathID(postID), nil, nil)
}

func (c *Client) LikePost(ctx context.Context, postID string) (LikeResult, error) {
	var t toggleBody
	if err := c.post(ctx, "/posts/"+pathID(postID)+"/like", nil, &t); err != nil {
		return LikeResult{}, err
	}
	return t.result(), nil
}

func (c *Client) BookmarkPost(ctx context.Context, postID string) (LikeResult, error) {
	var t toggleBody
	if err := c.post(ctx, "/posts/"+pathID(postID)+"/bookmark", nil, &t); err != nil {
		return LikeResult{}, err
	}
	return t.result(), nil
}

func (c *Client) SharePost(ctx context.Context, postID string, req ShareRequest) error {
	return c.post(ctx, "/posts/"+pathID(postID)+"/share", req, nil)
}

func (c *Client) ReportPost(ctx context.Context, postID string, req ReportRequest) error {
	return c.post(ctx, "/posts/"+pathID(postID)+"/report", req, nil)
}

func (c *Client) Comments(ctx context.Context, postID string, page, limit int) ([]models.Comment, error) {
	var out []models.Comment
	err := c.fetch(ctx, request{method: http.MethodGet, path: "/posts/" + pathID(postID) + "/comments", query: pageQuery(page, limit)}, &out, "comments")
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AddComment posts a comment, or a reply when ParentCommentID is set.
func (c *Client) AddComment(ctx context.Context, postID string, req CommentRequest) (*models.Comment, error) {
	var out models.Comment
	if err := c.fetch(ctx, request{method: http.MethodPost, path: "/posts/" + pathID(postID) + "/comments", body: req}, &out, "comment"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) LikeComment(ctx context.Context, commentID string) (LikeResult, error) {
	var t toggleBody
	if err := c.post(ctx, "/posts/comments/"+pathID(commentID)+"/like", nil, &t); err != nil {
		return LikeResult{}, err
	}
	return t.result(), nil
}

func (c *Client) DeleteComment(ctx context.Context, commentID string) error {
	return c.delete(ctx, "/posts/comments/"+pathID(commentID), nil, nil)
}
