package service

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"edusocial/internal/api"
	"edusocial/internal/logger"
	"edusocial/internal/models"
	"edusocial/internal/realtime"
	"edusocial/internal/repository"
	"edusocial/internal/session"
)

type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Login2FA(ctx context.Context, tempToken, code string) (*models.User, error)
	LoginWithGoogle(ctx context.Context, credential string) (*models.User, error)
	LoginWithFacebook(ctx context.Context, accessToken string) (*models.User, error)
	Register(ctx context.Context, req api.RegisterRequest) (*LoginResult, error)
	Refresh(ctx context.Context) error
	Me(ctx context.Context) (*models.User, error)
	Check(ctx context.Context) error
	Logout(ctx context.Context) error
	OAuthConnections(ctx context.Context) ([]models.OAuthConnection, error)
	ConnectOAuth(ctx context.Context, provider, token string) error
	DisconnectOAuth(ctx context.Context, provider string) error
}

// LoginResult is either a logged-in user or a pending second step.
type LoginResult struct {
	User             *models.User
	Requires2FA      bool
	Requires2FASetup bool
	TempToken        string
	Message          string
}

type authService struct {
	api       AuthAPI
	session   *session.Session
	repo      *repository.Repository
	transport realtime.Transport
	log       logger.Logger
}

func NewAuthService(authAPI AuthAPI, sess *session.Session, repo *repository.Repository, transport realtime.Transport, log logger.Logger) AuthService {
	return &authService{
		api:       authAPI,
		session:   sess,
		repo:      repo,
		transport: transport,
		log:       log,
	}
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	resp, err := s.api.Login(ctx, api.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	return s.complete(resp)
}

func (s *authService) Login2FA(ctx context.Context, tempToken, code string) (*models.User, error) {
	if tempToken == "" {
		return nil, errors.New("two-factor login needs the temporary token from the first step")
	}
	resp, err := s.api.Login2FA(ctx, tempToken, api.TwoFactorRequest{Code: code})
	if err != nil {
		return nil, err
	}
	return s.completeUser(resp)
}

func (s *authService) LoginWithGoogle(ctx context.Context, credential string) (*models.User, error) {
	resp, err := s.api.GoogleLogin(ctx, credential)
	if err != nil {
		return nil, err
	}
	return s.completeUser(resp)
}

func (s *authService) LoginWithFacebook(ctx context.Context, accessToken string) (*models.User, error) {
	resp, err := s.api.FacebookLogin(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return s.completeUser(resp)
}

func (s *authService) Register(ctx context.Context, req api.RegisterRequest) (*LoginResult, error) {
	resp, err := s.api.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Token == "" {
		// Accounts that need email verification come back without a token.
		return &LoginResult{User: resp.User, Message: resp.Message}, nil
	}
	return s.complete(resp)
}

// complete stores the session unless the server asks for a second factor.
func (s *authService) complete(resp *models.AuthResponse) (*LoginResult, error) {
	if resp.Requires2FA || resp.Requires2FASetup {
		return &LoginResult{
			Requires2FA:      resp.Requires2FA,
			Requires2FASetup: resp.Requires2FASetup,
			TempToken:        resp.TempToken,
			Message:          resp.Message,
		}, nil
	}
	user, err := s.completeUser(resp)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, Message: resp.Message}, nil
}

func (s *authService) completeUser(resp *models.AuthResponse) (*models.User, error) {
	if resp.Token == "" {
		return nil, errors.New("login response carried no token")
	}
	if err := s.session.Set(resp.Token, resp.RefreshToken, resp.User); err != nil {
		return nil, errors.Wrap(err, "saving session")
	}
	s.log.Info("logged in", s.session.UserID())
	return s.session.User(), nil
}

// Refresh swaps the refresh token for a new pair. A rejected refresh token
// ends the session.
func (s *authService) Refresh(ctx context.Context) error {
	rt := s.session.RefreshToken()
	if rt == "" {
		return ErrNotAuthenticated
	}
	resp, err := s.api.Refresh(ctx, rt)
	if err != nil {
		switch api.StatusCode(err) {
		case http.StatusBadRequest, http.StatusUnauthorized:
			if cerr := s.session.Clear(); cerr != nil {
				s.log.Warn("clearing session after failed refresh", cerr)
			}
		}
		return err
	}
	if resp.RefreshToken == "" {
		resp.RefreshToken = rt
	}
	user := resp.User
	if user == nil {
		user = s.session.User()
	}
	return s.session.Set(resp.Token, resp.RefreshToken, user)
}

func (s *authService) Me(ctx context.Context) (*models.User, error) {
	if !s.session.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}
	user, err := s.api.Me(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.session.SetUser(user); err != nil {
		s.log.Warn("caching user", err)
	}
	return user, nil
}

func (s *authService) Check(ctx context.Context) error {
	if !s.session.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	return s.api.Check(ctx)
}

// Logout drops the session and everything cached for the user.
func (s *authService) Logout(ctx context.Context) error {
	userID := s.session.UserID()

	if s.transport != nil {
		if err := s.transport.Disconnect(); err != nil {
			s.log.Warn("disconnecting realtime transport", err)
		}
	}
	if err := s.repo.Friends.Purge(ctx, userID); err != nil {
		s.log.Warn("purging friend cache", err)
	}
	if err := s.repo.Timed.PurgeUser(ctx, userID); err != nil {
		s.log.Warn("purging timed cache", err)
	}
	if err := s.session.Clear(); err != nil {
		return errors.Wrap(err, "clearing session")
	}
	s.log.Info("logged out", userID)
	return nil
}

func (s *authService) OAuthConnections(ctx context.Context) ([]models.OAuthConnection, error) {
	return s.api.OAuthConnections(ctx)
}

func (s *authService) ConnectOAuth(ctx context.Context, provider, token string) error {
	switch provider {
	case "google", "facebook":
	default:
		return errors.Errorf("unsupported provider %q", provider)
	}
	return s.api.ConnectOAuth(ctx, provider, token)
}

func (s *authService) DisconnectOAuth(ctx context.Context, provider string) error {
	return s.api.DisconnectOAuth(ctx, provider)
}
