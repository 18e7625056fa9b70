// Package session tracks who is signed in and keeps the credential store in step.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/aminexfrad/F-S-SHOP/internal/credentials"
	"github.com/aminexfrad/F-S-SHOP/internal/domain"
	"github.com/aminexfrad/F-S-SHOP/internal/navigation"
	"go.uber.org/zap"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrLoading is returned by RequireUser before Restore has run.
	ErrLoading = errors.New("session is still loading")
)

type State int

const (
	StateLoading State = iota
	StateAnonymous
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Snapshot is an immutable copy of the session at one point in time.
type Snapshot struct {
	State        State
	User         domain.User
	AccessToken  string
	RefreshToken string
}

func (s Snapshot) IsAuthenticated() bool {
	return s.State == StateAuthenticated
}

type Session struct {
	mu     sync.RWMutex
	store  credentials.Store
	nav    navigation.Navigator
	logger *zap.Logger

	snap Snapshot
}

func New(store credentials.Store, nav navigation.Navigator, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		store:  store,
		nav:    nav,
		logger: logger,
		snap:   Snapshot{State: StateLoading},
	}
}

// Restore rebuilds the session from the credential store. All three credentials must be
// present and the user must parse; anything less is discarded and the session is anonymous.
func (s *Session) Restore(ctx context.Context) Snapshot {
	access, errA := s.store.Read(ctx, credentials.KeyAccessToken)
	refresh, errR := s.store.Read(ctx, credentials.KeyRefreshToken)
	rawUser, errU := s.store.Read(ctx, credentials.KeyUser)

	for _, err := range []error{errA, errR, errU} {
		if err != nil && !errors.Is(err, credentials.ErrNotFound) {
			s.logger.Warn("credential store unavailable, starting anonymous", zap.Error(err))
			return s.set(Snapshot{State: StateAnonymous})
		}
	}

	if errA == nil && errR == nil && errU == nil {
		var user domain.User
		err := json.Unmarshal([]byte(rawUser), &user)
		if err == nil {
			return s.set(Snapshot{
				State:        StateAuthenticated,
				User:         user,
				AccessToken:  access,
				RefreshToken: refresh,
			})
		}
		s.logger.Warn("stored user is corrupt, clearing credentials", zap.Error(err))
	}

	if err := s.clear(ctx); err != nil {
		s.logger.Warn("failed to clear partial credentials", zap.Error(err))
	}
	return s.set(Snapshot{State: StateAnonymous})
}

// Login persists the credentials with their lifetimes and makes the session authenticated.
func (s *Session) Login(ctx context.Context, user domain.User, accessToken, refreshToken string) error {
	rawUser, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	err = s.saveTokens(ctx, accessToken, refreshToken)
	if err == nil {
		err = s.store.Save(ctx, credentials.KeyUser, string(rawUser), credentials.UserTTL)
	}
	if err != nil {
		if clearErr := s.clear(ctx); clearErr != nil {
			s.logger.Warn("failed to roll back credentials", zap.Error(clearErr))
		}
		return fmt.Errorf("failed to persist session: %w", err)
	}

	s.set(Snapshot{
		State:        StateAuthenticated,
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
	s.logger.Info("user logged in", zap.Int64("user_id", user.ID))
	return nil
}

// Logout always ends anonymous and on the login screen; store failures are returned
// after the fact.
func (s *Session) Logout(ctx context.Context) error {
	err := s.clear(ctx)
	s.set(Snapshot{State: StateAnonymous})
	s.logger.Info("user logged out")
	s.nav.Push(navigation.Login)
	if err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

// UpdateTokens replaces both tokens; the user is left as is.
func (s *Session) UpdateTokens(ctx context.Context, accessToken, refreshToken string) error {
	if !s.Current().IsAuthenticated() {
		return ErrNotAuthenticated
	}
	if err := s.saveTokens(ctx, accessToken, refreshToken); err != nil {
		return fmt.Errorf("failed to persist tokens: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.State != StateAuthenticated {
		return ErrNotAuthenticated
	}
	s.snap.AccessToken = accessToken
	s.snap.RefreshToken = refreshToken
	return nil
}

func (s *Session) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// RequireUser returns the signed-in user. An anonymous session is sent to the login screen.
func (s *Session) RequireUser() (domain.User, error) {
	snap := s.Current()
	switch snap.State {
	case StateAuthenticated:
		return snap.User, nil
	case StateLoading:
		return domain.User{}, ErrLoading
	}
	s.nav.Push(navigation.Login)
	return domain.User{}, ErrNotAuthenticated
}

func (s *Session) saveTokens(ctx context.Context, accessToken, refreshToken string) error {
	if err := s.store.Save(ctx, credentials.KeyAccessToken, accessToken, credentials.AccessTokenTTL); err != nil {
		return err
	}
	return s.store.Save(ctx, credentials.KeyRefreshToken, refreshToken, credentials.RefreshTokenTTL)
}

func (s *Session) clear(ctx context.Context) error {
	var errs []error
	for _, key := range credentials.Keys {
		if err := s.store.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Session) set(snap Snapshot) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	return snap
}
