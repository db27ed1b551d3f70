package service

import (
	"github.com/pkg/errors"

	"edusocial/internal/api"
	"edusocial/internal/config"
	"edusocial/internal/logger"
	"edusocial/internal/realtime"
	"edusocial/internal/repository"
	"edusocial/internal/session"
	"edusocial/internal/storage"
)

var (
	ErrNotAuthenticated   = errors.New("not logged in")
	ErrConversationClosed = errors.New("conversation is not open")
	ErrStorageDisabled    = errors.New("media storage is not configured")
	ErrNoActiveCall       = errors.New("no active call")
)

// Notifier shows short user-facing messages.
type Notifier interface {
	Success(msg string)
	Error(msg string)
	Info(msg string)
}

type Service struct {
	Auth    AuthService
	User    UserService
	Post    PostService
	Friend  FriendService
	Chat    ChatService
	Call    CallService
	Course  CourseService
	Payment PaymentService
	Event   EventService
}

// Deps are the collaborators shared by every service. Storage may be nil.
type Deps struct {
	API       *api.Client
	Repo      *repository.Repository
	Session   *session.Session
	Transport realtime.Transport
	Storage   storage.Storage
	Notifier  Notifier
	Config    *config.Config
	Log       logger.Logger
}

func NewService(d Deps) *Service {
	courses := NewCourseService(d.API, d.Repo.Timed, d.Session, d.Config.Cache, d.Log)
	return &Service{
		Auth:    NewAuthService(d.API, d.Session, d.Repo, d.Transport, d.Log),
		User:    NewUserService(d.API),
		Post:    NewPostService(d.API, d.Repo.Timed, d.Session, d.Notifier, d.Config.Cache, d.Log),
		Friend:  NewFriendService(d.API, d.Repo.Friends, d.Session, d.Notifier, d.Config, d.Log),
		Chat:    NewChatService(d.API, d.Transport, d.Storage, d.Session, d.Notifier, d.Config.Cache, d.Log),
		Call:    NewCallService(d.API, d.Transport, d.Notifier, d.Log),
		Course:  courses,
		Payment: NewPaymentService(d.API, courses, d.Repo.Payments, d.Notifier, d.Log),
		Event:   NewEventService(d.API, d.Notifier, d.Log),
	}
}
