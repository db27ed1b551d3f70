package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edusocial/internal/config"
)

func TestObjectName(t *testing.T) {
	now := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		file   string
		prefix string
		ext    string
	}{
		{file: "Photo.PNG", prefix: "chat/u1/2024/03/", ext: ".png"},
		{file: "notes", prefix: "chat/u1/2024/03/", ext: ".bin"},
	}

	for _, tt := range tests {
		name := ObjectName("u1", tt.file, now)
		assert.True(t, strings.HasPrefix(name, tt.prefix), name)
		assert.True(t, strings.HasSuffix(name, tt.ext), name)
	}
	assert.NotEqual(t, ObjectName("u1", "a.png", now), ObjectName("u1", "a.png", now))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", ContentType("a.PNG"))
	assert.Equal(t, "application/octet-stream", ContentType("a.unknownext"))
}

// fakeS3 accepts bucket checks and object PUTs.
func fakeS3(t *testing.T) (*httptest.Server, *[]string) {
	var puts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodHead:
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodGet && r.URL.Query().Has("location"):
			w.Header().Set("Content-Type", "application/xml")
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><LocationConstraint xmlns="http://s3.amazonaws.com/doc/2006-03-01/">us-east-1</LocationConstraint>`))
		case r.Method == http.MethodPut:
			puts = append(puts, r.URL.Path)
			w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &puts
}

func TestMinIOClient_UploadAndDelete(t *testing.T) {
	srv, puts := fakeS3(t)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	ctx := context.Background()
	m, err := NewMinIOClient(ctx, config.MinIO{
		Endpoint:   u.Host,
		AccessKey:  "key",
		SecretKey:  "secret",
		BucketName: "chat-media",
		Region:     "us-east-1",
		URLExpiry:  time.Hour,
	})
	require.NoError(t, err)

	objectName, link, err := m.Upload(ctx, "u1", "hello.txt", strings.NewReader("hi"), 2)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(objectName, "chat/u1/"))
	require.Len(t, *puts, 1)
	assert.Equal(t, "/chat-media/"+objectName, (*puts)[0])
	assert.Contains(t, link, objectName)
	assert.Contains(t, link, "X-Amz-Signature")

	assert.NoError(t, m.Delete(ctx, objectName))
}
