package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"edusocial/internal/api"
	"edusocial/internal/config"
	"edusocial/internal/feed"
	"edusocial/internal/logger"
	"edusocial/internal/models"
	"edusocial/internal/service"
	"edusocial/internal/session"
)

type mockAuth struct {
	mock.Mock
	service.AuthService
}

func (m *mockAuth) Login(ctx context.Context, email, password string) (*service.LoginResult, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LoginResult), args.Error(1)
}

func (m *mockAuth) Login2FA(ctx context.Context, tempToken, code string) (*models.User, error) {
	args := m.Called(ctx, tempToken, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type mockPosts struct {
	mock.Mock
	service.PostService
}

func (m *mockPosts) Feed(ctx context.Context, opts service.FeedOptions) ([]models.Post, error) {
	args := m.Called(ctx, opts)
	out, _ := args.Get(0).([]models.Post)
	return out, args.Error(1)
}

func (m *mockPosts) ToggleLike(ctx context.Context, postID string) (*models.Post, error) {
	args := m.Called(ctx, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func setup(t *testing.T, loggedIn bool) (*commandLine, *bytes.Buffer) {
	t.Helper()
	sess := session.New(session.NewMemoryStore())
	if loggedIn {
		require.NoError(t, sess.Set("tok", "rt", &models.User{ID: "u1", FullName: "Ada"}))
	}
	out := &bytes.Buffer{}
	return &commandLine{
		svc:     &service.Service{Auth: &mockAuth{}, Post: &mockPosts{}},
		session: sess,
		cfg:     &config.Config{Callback: config.Callback{Addr: "127.0.0.1:0"}},
		log:     logger.Discard(),
		out:     out,
	}, out
}

type cliTest struct {
	name    string
	args    []string // without program name
	wantErr error
}

func runTests(t *testing.T, cli *commandLine, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		args := append([]string{"client"}, tt.args...)
		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(context.Background(), args)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func Test_commandLine_usage(t *testing.T) {
	cli, _ := setup(t, true)
	runTests(t, cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "login without email", args: []string{"login"}, wantErr: errHelp},
		{name: "bad flag", args: []string{"feed", "-nope"}, wantErr: errHelp},
		{name: "bad feed mode", args: []string{"feed", "-mode", "random"}, wantErr: errHelp},
		{name: "like without post", args: []string{"like"}, wantErr: errHelp},
		{name: "comment without text", args: []string{"comment", "-post", "p1"}, wantErr: errHelp},
		{name: "friends accept without id", args: []string{"friends", "accept"}, wantErr: errHelp},
		{name: "friends unknown", args: []string{"friends", "lol"}, wantErr: errHelp},
		{name: "chat send without conv", args: []string{"chat", "send", "-text", "hi"}, wantErr: errHelp},
		{name: "chat group without users", args: []string{"chat", "group", "-title", "x"}, wantErr: errHelp},
		{name: "call start without conv", args: []string{"call", "start"}, wantErr: errHelp},
		{name: "courses enroll without id", args: []string{"courses", "enroll"}, wantErr: errHelp},
		{name: "events register without id", args: []string{"events", "register"}, wantErr: errHelp},
	})
}

func Test_commandLine_requiresLogin(t *testing.T) {
	cli, _ := setup(t, false)
	runTests(t, cli, []cliTest{
		{name: "feed", args: []string{"feed"}, wantErr: service.ErrNotAuthenticated},
		{name: "friends", args: []string{"friends", "list"}, wantErr: service.ErrNotAuthenticated},
		{name: "chat", args: []string{"chat", "conversations"}, wantErr: service.ErrNotAuthenticated},
		{name: "courses", args: []string{"courses"}, wantErr: service.ErrNotAuthenticated},
		{name: "payment-listen", args: []string{"payment-listen"}, wantErr: service.ErrNotAuthenticated},
	})
}

func Test_commandLine_login(t *testing.T) {
	defer func(f func(int) ([]byte, error)) { readPasswordFunc = f }(readPasswordFunc)

	t.Run("empty password", func(t *testing.T) {
		cli, _ := setup(t, false)
		readPasswordFunc = func(int) ([]byte, error) { return nil, nil }
		err := cli.run(context.Background(), []string{"client", "login", "-email", "a@b.c"})
		assert.ErrorIs(t, err, errHelp)
	})

	t.Run("password", func(t *testing.T) {
		cli, out := setup(t, false)
		auth := cli.svc.Auth.(*mockAuth)
		auth.On("Login", mock.Anything, "a@b.c", "pw").
			Return(&service.LoginResult{User: &models.User{FullName: "Ada"}}, nil)
		readPasswordFunc = func(int) ([]byte, error) { return []byte("pw"), nil }

		require.NoError(t, cli.run(context.Background(), []string{"client", "login", "-email", "a@b.c"}))
		assert.Contains(t, out.String(), "Logged in as Ada")
	})

	t.Run("second factor", func(t *testing.T) {
		cli, out := setup(t, false)
		auth := cli.svc.Auth.(*mockAuth)
		auth.On("Login", mock.Anything, "a@b.c", "pw").
			Return(&service.LoginResult{Requires2FA: true, TempToken: "temp"}, nil)
		auth.On("Login2FA", mock.Anything, "temp", "123456").Return(&models.User{FullName: "Ada"}, nil)
		readPasswordFunc = func(int) ([]byte, error) { return []byte("pw"), nil }

		require.NoError(t, cli.run(context.Background(), []string{"client", "login", "-email", "a@b.c", "-otp", "123456"}))
		assert.Contains(t, out.String(), "Logged in as Ada")
		auth.AssertExpectations(t)
	})

	t.Run("locked", func(t *testing.T) {
		cli, out := setup(t, false)
		cli.svc.Auth.(*mockAuth).On("Login", mock.Anything, "a@b.c", "pw").
			Return(nil, &api.LockedError{Message: "locked", UnlockEmailSent: true})
		readPasswordFunc = func(int) ([]byte, error) { return []byte("pw"), nil }

		err := cli.run(context.Background(), []string{"client", "login", "-email", "a@b.c"})
		assert.Error(t, err)
		assert.Contains(t, out.String(), "unlock link")
	})
}

func Test_commandLine_feed(t *testing.T) {
	cli, out := setup(t, true)
	posts := cli.svc.Post.(*mockPosts)
	posts.On("Feed", mock.Anything, service.FeedOptions{Mode: feed.Trending, Query: "go"}).Return([]models.Post{
		{ID: "p1", AuthorName: "Ada", Content: "go tips", LikesCount: 3, CreatedAt: time.Now()},
		{ID: "p2", AuthorName: "Bo", Content: "go again", CreatedAt: time.Now()},
	}, nil)

	require.NoError(t, cli.run(context.Background(), []string{"client", "feed", "-mode", "trending", "-q", "go", "-n", "1"}))
	assert.Contains(t, out.String(), "[p1] Ada")
	assert.NotContains(t, out.String(), "[p2]")
}

func Test_commandLine_like(t *testing.T) {
	cli, out := setup(t, true)
	cli.svc.Post.(*mockPosts).On("ToggleLike", mock.Anything, "p1").Return(&models.Post{ID: "p1", Liked: true, LikesCount: 4}, nil)

	require.NoError(t, cli.run(context.Background(), []string{"client", "like", "-post", "p1"}))
	assert.Equal(t, "liked=true likes=4\n", out.String())
}

func Test_printNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := &printNotifier{w: &buf}
	n.Success("done")
	n.Error("failed")
	n.Info("fyi")
	assert.Equal(t, "✓ done\n✗ failed\ni fyi\n", buf.String())
}
