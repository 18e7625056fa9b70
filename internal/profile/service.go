// Package profile backs the account screen: profile details, order history and account
// deletion.
package profile

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aminexfrad/F-S-SHOP/internal/domain"
	"github.com/aminexfrad/F-S-SHOP/internal/navigation"
	"github.com/aminexfrad/F-S-SHOP/internal/notice"
	"github.com/aminexfrad/F-S-SHOP/internal/shopapi"
	"go.uber.org/zap"
)

// ConfirmationWord must be typed to delete the account.
const ConfirmationWord = "DELETE"

var (
	ErrConfirmationMismatch = errors.New("deletion not confirmed")
	ErrDeleteRejected       = errors.New("account deletion rejected")
)

const (
	MsgConfirmDelete  = "Please type DELETE to confirm"
	MsgLoadFailed     = "Error fetching profile"
	MsgOrdersFailed   = "Error fetching orders."
	MsgUpdated        = "Your profile has been updated."
	msgUpdateFailed   = "Error updating profile: %s"
	MsgDeleteFailed   = "Failed to delete account"
	MsgAccountDeleted = "Your account has been deleted successfully."
)

type Backend interface {
	Profile(ctx context.Context, userID int64) (*domain.Profile, error)
	EditProfile(ctx context.Context, userID int64, u shopapi.ProfileUpdate) (*domain.Profile, error)
	DeleteProfile(ctx context.Context, userID int64) (shopapi.DeleteResult, error)
	Orders(ctx context.Context, userID int64) ([]domain.OrderSummary, error)
}

type Session interface {
	RequireUser() (domain.User, error)
	Logout(ctx context.Context) error
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
	return &Service{backend: backend, session: sess, nav: nav, notices: notices, logger: logger.Named("profile")}
}

// Load fetches the signed-in user's profile. A user without one gets
// shopapi.ErrProfileNotFound.
func (s *Service) Load(ctx context.Context) (*domain.Profile, error) {
	user, err := s.session.RequireUser()
	if err != nil {
		return nil, err
	}
	p, err := s.backend.Profile(ctx, user.ID)
	if errors.Is(err, shopapi.ErrProfileNotFound) {
		return nil, err
	}
	if err != nil {
		s.logger.Warn("failed to fetch profile", zap.Int64("user_id", user.ID), zap.Error(err))
		s.notices.Error(MsgLoadFailed)
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return p, nil
}

// Save writes u. The phone number keeps its digits only.
func (s *Service) Save(ctx context.Context, u shopapi.ProfileUpdate) (*domain.Profile, error) {
	user, err := s.session.RequireUser()
	if err != nil {
		return nil, err
	}
	u.PhoneNumber = DigitsOnly(u.PhoneNumber)

	p, err := s.backend.EditProfile(ctx, user.ID, u)
	if err != nil {
		s.logger.Warn("failed to update profile", zap.Int64("user_id", user.ID), zap.Error(err))
		s.notices.Error(fmt.Sprintf(msgUpdateFailed, err))
		return nil, fmt.Errorf("save profile: %w", err)
	}
	s.notices.Success(MsgUpdated)
	return p, nil
}

// Orders returns the order history, newest first as the backend sends it.
func (s *Service) Orders(ctx context.Context) ([]domain.OrderSummary, error) {
	user, err := s.session.RequireUser()
	if err != nil {
		return nil, err
	}
	orders, err := s.backend.Orders(ctx, user.ID)
	if err != nil {
		s.logger.Warn("failed to fetch orders", zap.Int64("user_id", user.ID), zap.Error(err))
		s.notices.Error(MsgOrdersFailed)
		return nil, fmt.Errorf("load orders: %w", err)
	}
	return orders, nil
}

// DeleteAccount removes the account once confirmation equals ConfirmationWord, then
// signs out and goes home.
func (s *Service) DeleteAccount(ctx context.Context, confirmation string) error {
	user, err := s.session.RequireUser()
	if err != nil {
		return err
	}
	if confirmation != ConfirmationWord {
		s.notices.Error(MsgConfirmDelete)
		return ErrConfirmationMismatch
	}

	res, err := s.backend.DeleteProfile(ctx, user.ID)
	if err == nil && !res.Success {
		err = fmt.Errorf("%w: %s", ErrDeleteRejected, res.Message)
	}
	if err != nil {
		s.logger.Warn("failed to delete account", zap.Int64("user_id", user.ID), zap.Error(err))
		s.notices.Error(MsgDeleteFailed)
		return fmt.Errorf("delete account: %w", err)
	}

	if err := s.session.Logout(ctx); err != nil {
		s.logger.Error("failed to clear session after deletion", zap.Error(err))
	}
	s.logger.Info("account deleted", zap.Int64("user_id", user.ID))
	s.notices.Success(MsgAccountDeleted)
	s.nav.Push(navigation.Home)
	return nil
}

func DigitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// ImageURL resolves a stored profile image path against the media origin.
func ImageURL(origin, image string) string {
	if image == "" {
		return ""
	}
	if u, err := url.Parse(image); err == nil && u.IsAbs() {
		return image
	}
	return strings.TrimRight(origin, "/") + "/" + strings.TrimLeft(image, "/")
}

// DisplayName is "First Last", falling back to the username.
func DisplayName(p *domain.Profile) string {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name == "" {
		return p.User
	}
	return name
}
