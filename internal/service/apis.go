package service

import (
	"context"

	"edusocial/internal/api"
	"edusocial/internal/models"
)

// The narrow views of *api.Client each service depends on.

type AuthAPI interface {
	Login(ctx context.Context, req api.LoginRequest) (*models.AuthResponse, error)
	Login2FA(ctx context.Context, tempToken string, req api.TwoFactorRequest) (*models.AuthResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) (*models.AuthResponse, error)
	Me(ctx context.Context) (*models.User, error)
	Check(ctx context.Context) error
	Refresh(ctx context.Context, refreshToken string) (*models.AuthResponse, error)
	GoogleLogin(ctx context.Context, credential string) (*models.AuthResponse, error)
	FacebookLogin(ctx context.Context, accessToken string) (*models.AuthResponse, error)
	OAuthConnections(ctx context.Context) ([]models.OAuthConnection, error)
	ConnectOAuth(ctx context.Context, provider, token string) error
	DisconnectOAuth(ctx context.Context, provider string) error
}

type UserAPI interface {
	UserInfo(ctx context.Context, userID string) (*models.User, error)
	UserPosts(ctx context.Context, userID string, page, limit int) ([]models.Post, error)
	UserFriendships(ctx context.Context, userID string) (*models.FriendshipBuckets, error)
}

type PostAPI interface {
	Posts(ctx context.Context, page, limit int) ([]models.Post, error)
	Post(ctx context.Context, postID string) (*models.Post, error)
	CreatePost(ctx context.Context, req api.CreatePostRequest) (*models.Post, error)
	UpdatePost(ctx context.Context, postID string, req api.UpdatePostRequest) (*models.Post, error)
	DeletePost(ctx context.Context, postID string) error
	LikePost(ctx context.Context, postID string) (api.LikeResult, error)
	BookmarkPost(ctx context.Context, postID string) (api.LikeResult, error)
	SharePost(ctx context.Context, postID string, req api.ShareRequest) error
	ReportPost(ctx context.Context, postID string, req api.ReportRequest) error
	Comments(ctx context.Context, postID string, page, limit int) ([]models.Comment, error)
	AddComment(ctx context.Context, postID string, req api.CommentRequest) (*models.Comment, error)
	LikeComment(ctx context.Context, commentID string) (api.LikeResult, error)
	DeleteComment(ctx context.Context, commentID string) error
}

type FriendAPI interface {
	Friendships(ctx context.Context) (*models.FriendshipBuckets, error)
	SendFriendRequest(ctx context.Context, req api.FriendRequest) (*models.Friendship, error)
	AcceptFriendship(ctx context.Context, friendshipID string) error
	RejectFriendship(ctx context.Context, friendshipID string) error
	DeleteFriendship(ctx context.Context, friendshipID string) error
	FriendSuggestions(ctx context.Context) ([]models.User, error)
	SearchUsers(ctx context.Context, query string) ([]models.User, error)
}

type ChatAPI interface {
	Conversations(ctx context.Context) ([]models.Conversation, error)
	Messages(ctx context.Context, conversationID string) ([]models.Message, error)
	SendMessage(ctx context.Context, req api.SendMessageRequest) (*models.Message, error)
	DeleteMessage(ctx context.Context, messageID string, forEveryone bool) error
	CreateConversation(ctx context.Context, req api.CreateConversationRequest) (*models.Conversation, error)
	SearchChatUsers(ctx context.Context, query string) ([]models.User, error)
}

type CallAPI interface {
	InitiateCall(ctx context.Context, req api.CallRequest) (*models.Call, error)
	AnswerCall(ctx context.Context, callID string) error
	RejectCall(ctx context.Context, callID string) error
	EndCall(ctx context.Context, callID string) error
}

type CourseAPI interface {
	Courses(ctx context.Context) ([]models.Course, error)
	EnrolledCourses(ctx context.Context) ([]models.Course, error)
	CourseDetails(ctx context.Context, courseID string) (*models.Course, error)
	EnrollFree(ctx context.Context, courseID string) error
}

type PaymentAPI interface {
	ConfirmPayPal(ctx context.Context, res models.PaymentResult) error
	CancelPayPal(ctx context.Context, transactionID string) error
	CourseDetails(ctx context.Context, courseID string) (*models.Course, error)
}

type EventAPI interface {
	Events(ctx context.Context, filter api.EventFilter) ([]models.Event, error)
	UpcomingEvents(ctx context.Context) ([]models.Event, error)
	Event(ctx context.Context, eventID string) (*models.Event, error)
	RegisterEvent(ctx context.Context, eventID string) error
	CancelEventRegistration(ctx context.Context, eventID string) error
	EventRegistrationStatus(ctx context.Context, eventID string) (bool, error)
}

var (
	_ AuthAPI    = (*api.Client)(nil)
	_ UserAPI    = (*api.Client)(nil)
	_ PostAPI    = (*api.Client)(nil)
	_ FriendAPI  = (*api.Client)(nil)
	_ ChatAPI    = (*api.Client)(nil)
	_ CallAPI    = (*api.Client)(nil)
	_ CourseAPI  = (*api.Client)(nil)
	_ PaymentAPI = (*api.Client)(nil)
	_ EventAPI   = (*api.Client)(nil)
)
