package session

import (
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"edusocial/internal/models"
)

// Session is the single owner of the current token and user.
type Session struct {
	mu           sync.RWMutex
	store        Store
	token        string
	refreshToken string
	user         *models.User
	onClear      []func(userID string)
}

func New(store Store) *Session {
	return &Session{store: store}
}

// Restore loads a previously saved session. A missing session is not an error.
func (s *Session) Restore() error {
	d, err := s.store.Load()
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return nil
		}
		return err
	}
	s.mu.Lock()
	s.token, s.refreshToken, s.user = d.Token, d.RefreshToken, d.User
	s.mu.Unlock()
	return nil
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

func (s *Session) IsAuthenticated() bool {
	return s.Token() != ""
}

// User returns a copy of the cached user, or nil.
func (s *Session) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Set replaces the token pair and user and persists them.
// An empty refresh token keeps the current one.
func (s *Session) Set(token, refreshToken string, user *models.User) error {
	s.mu.Lock()
	s.token = token
	if refreshToken != "" {
		s.refreshToken = refreshToken
	}
	if user != nil {
		u := *user
		s.user = &u
	}
	d := s.snapshot()
	s.mu.Unlock()
	return s.store.Save(d)
}

func (s *Session) SetUser(user *models.User) error {
	s.mu.Lock()
	if user == nil {
		s.user = nil
	} else {
		u := *user
		s.user = &u
	}
	d := s.snapshot()
	s.mu.Unlock()
	return s.store.Save(d)
}

func (s *Session) snapshot() *Data {
	d := &Data{Token: s.token, RefreshToken: s.refreshToken}
	if s.user != nil {
		u := *s.user
		d.User = &u
	}
	return d
}

// UserID prefers the cached user and falls back to the token's claims.
func (s *Session) UserID() string {
	s.mu.RLock()
	user, token := s.user, s.token
	s.mu.RUnlock()
	if user != nil && user.ID != "" {
		return user.ID
	}
	claims, err := parseClaims(token)
	if err != nil {
		return ""
	}
	for _, key := range []string{"userId", "userID", "user_id", "sub"} {
		switch v := claims[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// ExpiresAt reads the exp claim; the zero time means unknown.
func (s *Session) ExpiresAt() time.Time {
	claims, err := parseClaims(s.Token())
	if err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// OnClear registers a hook run after Clear with the user id that was active.
func (s *Session) OnClear(fn func(userID string)) {
	s.mu.Lock()
	s.onClear = append(s.onClear, fn)
	s.mu.Unlock()
}

// Clear forgets the token, refresh token and user, then runs the clear hooks.
func (s *Session) Clear() error {
	userID := s.UserID()
	s.mu.Lock()
	s.token, s.refreshToken, s.user = "", "", nil
	hooks := append([]func(string){}, s.onClear...)
	s.mu.Unlock()

	err := s.store.Clear()
	for _, fn := range hooks {
		fn(userID)
	}
	return err
}

// The token is issued by the backend; the client only reads its claims.
func parseClaims(token string) (jwt.MapClaims, error) {
	if token == "" {
		return nil, errors.New("empty token")
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, errors.Wrap(err, "parsing token")
	}
	return claims, nil
}
