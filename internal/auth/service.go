// Package auth runs the login and registration forms.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/aminexfrad/F-S-SHOP/internal/domain"
	"github.com/aminexfrad/F-S-SHOP/internal/graphql"
	"github.com/aminexfrad/F-S-SHOP/internal/navigation"
	"github.com/aminexfrad/F-S-SHOP/internal/notice"
	"github.com/aminexfrad/F-S-SHOP/internal/session"
	"github.com/aminexfrad/F-S-SHOP/internal/shopapi"
	"go.uber.org/zap"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrIncompleteLogin    = errors.New("incomplete login data received")
	ErrRegistration       = errors.New("registration failed")
	ErrMissingFields      = errors.New("missing required fields")
)

// Form messages
const (
	MsgInvalidCredentials = "Invalid credentials"
	MsgIncompleteLogin    = "Incomplete login data received"
	MsgRegisterFailed     = "Registration failed. Please try again."
	MsgSomethingWrong     = "Something went wrong"
	MsgRegistered         = "Registration successful! Redirecting to login..."
	MsgMissingFields      = "Please fill in all fields"
)

type Backend interface {
	Login(ctx context.Context, username, password string) (*shopapi.LoginResult, error)
	Register(ctx context.Context, username, email, password string) (int64, error)
}

type Session interface {
	Current() session.Snapshot
	Login(ctx context.Context, user domain.User, accessToken, refreshToken string) error
}

type Service struct {
	backend Backend
	session Session
	nav     navigation.Navigator
	notices notice.Notifier
	logger  *zap.Logger
}

func NewService(backend Backend, sess Session, nav navigation.Navigator, notices notice.Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{backend: backend, session: sess, nav: nav, notices: notices, logger: logger.Named("auth")}
}

// RedirectIfAuthenticated sends a signed-in user away from the login screen.
func (s *Service) RedirectIfAuthenticated() bool {
	if !s.session.Current().IsAuthenticated() {
		return false
	}
	s.nav.Push(navigation.Home)
	return true
}

// Login signs the user in on the auth endpoint, stores the session and goes home.
// The returned error's Message is what the form shows.
func (s *Service) Login(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return &FormError{Err: ErrMissingFields, Message: MsgMissingFields}
	}

	res, err := s.backend.Login(ctx, username, password)
	if err != nil {
		var se *graphql.ServerError
		if errors.As(err, &se) {
			return &FormError{Err: fmt.Errorf("%w: %w", ErrInvalidCredentials, err), Message: MsgInvalidCredentials}
		}
		s.logger.Warn("login request failed", zap.Error(err))
		return &FormError{Err: err, Message: graphql.NetworkErrorMessage}
	}
	if res.AccessToken == "" || res.RefreshToken == "" || res.User == nil {
		return &FormError{Err: ErrIncompleteLogin, Message: MsgIncompleteLogin}
	}

	if err := s.session.Login(ctx, *res.User, res.AccessToken, res.RefreshToken); err != nil {
		s.logger.Error("failed to persist session", zap.Error(err))
		return &FormError{Err: err, Message: MsgSomethingWrong}
	}
	s.logger.Info("user logged in", zap.Int64("user_id", res.User.ID))
	s.nav.Push(navigation.Home)
	return nil
}

// Register creates an account and sends the user to the login screen.
func (s *Service) Register(ctx context.Context, username, email, password string) (int64, error) {
	if username == "" || email == "" || password == "" {
		return 0, &FormError{Err: ErrMissingFields, Message: MsgMissingFields}
	}

	id, err := s.backend.Register(ctx, username, email, password)
	if err != nil {
		var se *graphql.ServerError
		if errors.As(err, &se) {
			return 0, &FormError{Err: fmt.Errorf("%w: %w", ErrRegistration, err), Message: serverMessage(se, MsgRegisterFailed)}
		}
		s.logger.Warn("register request failed", zap.Error(err))
		return 0, &FormError{Err: err, Message: MsgSomethingWrong}
	}

	s.notices.Success(MsgRegistered)
	s.nav.Push(navigation.Login)
	return id, nil
}

func serverMessage(se *graphql.ServerError, fallback string) string {
	if len(se.Messages) > 0 && se.Messages[0] != "" {
		return se.Messages[0]
	}
	return fallback
}
