package service

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"edusocial/internal/api"
	"edusocial/internal/config"
	"edusocial/internal/database"
	"edusocial/internal/logger"
	"edusocial/internal/models"
	"edusocial/internal/realtime"
	"edusocial/internal/repository"
	"edusocial/internal/session"
)

// MockAPI stands in for *api.Client behind every service interface.
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) auth(args mock.Arguments) (*models.AuthResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuthResponse), args.Error(1)
}

func (m *MockAPI) Login(ctx context.Context, req api.LoginRequest) (*models.AuthResponse, error) {
	return m.auth(m.Called(ctx, req))
}

func (m *MockAPI) Login2FA(ctx context.Context, tempToken string, req api.TwoFactorRequest) (*models.AuthResponse, error) {
	return m.auth(m.Called(ctx, tempToken, req))
}

func (m *MockAPI) Register(ctx context.Context, req api.RegisterRequest) (*models.AuthResponse, error) {
	return m.auth(m.Called(ctx, req))
}

func (m *MockAPI) Me(ctx context.Context) (*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAPI) Check(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockAPI) Refresh(ctx context.Context, refreshToken string) (*models.AuthResponse, error) {
	return m.auth(m.Called(ctx, refreshToken))
}

func (m *MockAPI) GoogleLogin(ctx context.Context, credential string) (*models.AuthResponse, error) {
	return m.auth(m.Called(ctx, credential))
}

func (m *MockAPI) FacebookLogin(ctx context.Context, accessToken string) (*models.AuthResponse, error) {
	return m.auth(m.Called(ctx, accessToken))
}

func (m *MockAPI) OAuthConnections(ctx context.Context) ([]models.OAuthConnection, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]models.OAuthConnection)
	return out, args.Error(1)
}

func (m *MockAPI) ConnectOAuth(ctx context.Context, provider, token string) error {
	return m.Called(ctx, provider, token).Error(0)
}

func (m *MockAPI) DisconnectOAuth(ctx context.Context, provider string) error {
	return m.Called(ctx, provider).Error(0)
}

func (m *MockAPI) UserInfo(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAPI) UserPosts(ctx context.Context, userID string, page, limit int) ([]models.Post, error) {
	args := m.Called(ctx, userID, page, limit)
	out, _ := args.Get(0).([]models.Post)
	return out, args.Error(1)
}

func (m *MockAPI) UserFriendships(ctx context.Context, userID string) (*models.FriendshipBuckets, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FriendshipBuckets), args.Error(1)
}

func (m *MockAPI) Posts(ctx context.Context, page, limit int) ([]models.Post, error) {
	args := m.Called(ctx, page, limit)
	out, _ := args.Get(0).([]models.Post)
	return out, args.Error(1)
}

func (m *MockAPI) Post(ctx context.Context, postID string) (*models.Post, error) {
	args := m.Called(ctx, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockAPI) CreatePost(ctx context.Context, req api.CreatePostRequest) (*models.Post, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockAPI) UpdatePost(ctx context.Context, postID string, req api.UpdatePostRequest) (*models.Post, error) {
	args := m.Called(ctx, postID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockAPI) DeletePost(ctx context.Context, postID string) error {
	return m.Called(ctx, postID).Error(0)
}

func (m *MockAPI) LikePost(ctx context.Context, postID string) (api.LikeResult, error) {
	args := m.Called(ctx, postID)
	return args.Get(0).(api.LikeResult), args.Error(1)
}

func (m *MockAPI) BookmarkPost(ctx context.Context, postID string) (api.LikeResult, error) {
	args := m.Called(ctx, postID)
	return args.Get(0).(api.LikeResult), args.Error(1)
}

func (m *MockAPI) SharePost(ctx context.Context, postID string, req api.ShareRequest) error {
	return m.Called(ctx, postID, req).Error(0)
}

func (m *MockAPI) ReportPost(ctx context.Context, postID string, req api.ReportRequest) error {
	return m.Called(ctx, postID, req).Error(0)
}

func (m *MockAPI) Comments(ctx context.Context, postID string, page, limit int) ([]models.Comment, error) {
	args := m.Called(ctx, postID, page, limit)
	out, _ := args.Get(0).([]models.Comment)
	return out, args.Error(1)
}

func (m *MockAPI) AddComment(ctx context.Context, postID string, req api.CommentRequest) (*models.Comment, error) {
	args := m.Called(ctx, postID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Comment), args.Error(1)
}

func (m *MockAPI) LikeComment(ctx context.Context, commentID string) (api.LikeResult, error) {
	args := m.Called(ctx, commentID)
	return args.Get(0).(api.LikeResult), args.Error(1)
}

func (m *MockAPI) DeleteComment(ctx context.Context, commentID string) error {
	return m.Called(ctx, commentID).Error(0)
}

func (m *MockAPI) Friendships(ctx context.Context) (*models.FriendshipBuckets, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FriendshipBuckets), args.Error(1)
}

func (m *MockAPI) SendFriendRequest(ctx context.Context, req api.FriendRequest) (*models.Friendship, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Friendship), args.Error(1)
}

func (m *MockAPI) AcceptFriendship(ctx context.Context, friendshipID string) error {
	return m.Called(ctx, friendshipID).Error(0)
}

func (m *MockAPI) RejectFriendship(ctx context.Context, friendshipID string) error {
	return m.Called(ctx, friendshipID).Error(0)
}

func (m *MockAPI) DeleteFriendship(ctx context.Context, friendshipID string) error {
	return m.Called(ctx, friendshipID).Error(0)
}

func (m *MockAPI) FriendSuggestions(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]models.User)
	return out, args.Error(1)
}

func (m *MockAPI) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	args := m.Called(ctx, query)
	out, _ := args.Get(0).([]models.User)
	return out, args.Error(1)
}

func (m *MockAPI) Conversations(ctx context.Context) ([]models.Conversation, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]models.Conversation)
	return out, args.Error(1)
}

func (m *MockAPI) Messages(ctx context.Context, conversationID string) ([]models.Message, error) {
	args := m.Called(ctx, conversationID)
	out, _ := args.Get(0).([]models.Message)
	return out, args.Error(1)
}

func (m *MockAPI) SendMessage(ctx context.Context, req api.SendMessageRequest) (*models.Message, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockAPI) DeleteMessage(ctx context.Context, messageID string, forEveryone bool) error {
	return m.Called(ctx, messageID, forEveryone).Error(0)
}

func (m *MockAPI) CreateConversation(ctx context.Context, req api.CreateConversationRequest) (*models.Conversation, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *MockAPI) SearchChatUsers(ctx context.Context, query string) ([]models.User, error) {
	args := m.Called(ctx, query)
	out, _ := args.Get(0).([]models.User)
	return out, args.Error(1)
}

func (m *MockAPI) InitiateCall(ctx context.Context, req api.CallRequest) (*models.Call, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Call), args.Error(1)
}

func (m *MockAPI) AnswerCall(ctx context.Context, callID string) error {
	return m.Called(ctx, callID).Error(0)
}

func (m *MockAPI) RejectCall(ctx context.Context, callID string) error {
	return m.Called(ctx, callID).Error(0)
}

func (m *MockAPI) EndCall(ctx context.Context, callID string) error {
	return m.Called(ctx, callID).Error(0)
}

func (m *MockAPI) Courses(ctx context.Context) ([]models.Course, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]models.Course)
	return out, args.Error(1)
}

func (m *MockAPI) EnrolledCourses(ctx context.Context) ([]models.Course, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]models.Course)
	return out, args.Error(1)
}

func (m *MockAPI) CourseDetails(ctx context.Context, courseID string) (*models.Course, error) {
	args := m.Called(ctx, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Course), args.Error(1)
}

func (m *MockAPI) EnrollFree(ctx context.Context, courseID string) error {
	return m.Called(ctx, courseID).Error(0)
}

func (m *MockAPI) ConfirmPayPal(ctx context.Context, res models.PaymentResult) error {
	return m.Called(ctx, res).Error(0)
}

func (m *MockAPI) CancelPayPal(ctx context.Context, transactionID string) error {
	return m.Called(ctx, transactionID).Error(0)
}

func (m *MockAPI) Events(ctx context.Context, filter api.EventFilter) ([]models.Event, error) {
	args := m.Called(ctx, filter)
	out, _ := args.Get(0).([]models.Event)
	return out, args.Error(1)
}

func (m *MockAPI) UpcomingEvents(ctx context.Context) ([]models.Event, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]models.Event)
	return out, args.Error(1)
}

func (m *MockAPI) Event(ctx context.Context, eventID string) (*models.Event, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

func (m *MockAPI) RegisterEvent(ctx context.Context, eventID string) error {
	return m.Called(ctx, eventID).Error(0)
}

func (m *MockAPI) CancelEventRegistration(ctx context.Context, eventID string) error {
	return m.Called(ctx, eventID).Error(0)
}

func (m *MockAPI) EventRegistrationStatus(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

// fakeTransport records publishes and lets tests push messages.
type fakeTransport struct {
	mu        sync.Mutex
	connected bool
	subs      map[string]realtime.Callback
	sent      []sentMessage
}

type sentMessage struct {
	Destination string
	Body        string
}

var _ realtime.Transport = (*fakeTransport)(nil)

func newFakeTransport() *fakeTransport {
	return &fakeTransport{connected: true, subs: make(map[string]realtime.Callback)}
}

func (f *fakeTransport) Connect(context.Context, string) error { return nil }
func (f *fakeTransport) Disconnect() error {
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()
	return nil
}
func (f *fakeTransport) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}
func (f *fakeTransport) Attempts() int          { return 0 }
func (f *fakeTransport) OnStateChange(func(bool)) {}

func (f *fakeTransport) Subscribe(dest string, cb realtime.Callback) *realtime.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[dest] = cb
	return &realtime.Subscription{ID: "sub-" + dest, Destination: dest}
}

func (f *fakeTransport) Unsubscribe(dest string) {
	f.mu.Lock()
	delete(f.subs, dest)
	f.mu.Unlock()
}

func (f *fakeTransport) SendMessage(dest string, body interface{}) bool {
	data, _ := json.Marshal(body)
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return false
	}
	f.sent = append(f.sent, sentMessage{Destination: dest, Body: string(data)})
	return true
}

func (f *fakeTransport) push(dest, body string) bool {
	f.mu.Lock()
	cb, ok := f.subs[dest]
	f.mu.Unlock()
	if ok {
		cb(json.RawMessage(body))
	}
	return ok
}

func (f *fakeTransport) sentTo(dest string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.sent {
		if m.Destination == dest {
			out = append(out, m.Body)
		}
	}
	return out
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *recordingNotifier) add(kind, msg string) {
	n.mu.Lock()
	n.msgs = append(n.msgs, kind+": "+msg)
	n.mu.Unlock()
}

func (n *recordingNotifier) Success(msg string) { n.add("success", msg) }
func (n *recordingNotifier) Error(msg string)   { n.add("error", msg) }
func (n *recordingNotifier) Info(msg string)    { n.add("info", msg) }

func (n *recordingNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}

func testConfig() *config.Config {
	return &config.Config{
		API: config.API{FetchTimeout: time.Second},
		Cache: config.Cache{
			FeedTTL:         5 * time.Minute,
			EnrolledTTL:     5 * time.Minute,
			AllCoursesTTL:   30 * time.Minute,
			FeedLimit:       1000,
			PollInterval:    10 * time.Millisecond,
			TypingIdleAfter: 30 * time.Millisecond,
		},
	}
}

// newTestRepo opens a migrated sqlite cache in a temp dir.
func newTestRepo(t *testing.T) *repository.Repository {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "cache.db")
	db, err := database.ConnectDB(config.Cache{Driver: "sqlite3", DSN: dsn}, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { db.CloseDB() })
	return repository.NewRepository(db.DB)
}

func loggedIn(t *testing.T, userID string) *session.Session {
	t.Helper()
	s := session.New(session.NewMemoryStore())
	require.NoError(t, s.Set("tok-"+userID, "refresh-"+userID, &models.User{ID: userID, FullName: "User " + userID}))
	return s
}
