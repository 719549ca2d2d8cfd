package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dashgg/internal/user"
	"dashgg/pkg/hash"
)

var (
	ErrUserExists        = errors.New("user already exists")
	ErrPanelUserTaken    = errors.New("panel account already linked to another user")
	ErrPanelUserMismatch = errors.New("panel account does not belong to this email")
	ErrInvalidCreds      = errors.New("invalid credentials")
)

type UserRepository interface {
	Create(context.Context, *user.User) error
	GetByEmail(context.Context, string) (*user.User, error)
	GetByID(context.Context, int64) (*user.User, error)
	GetByPanelUserID(context.Context, int64) (*user.User, error)
}

// PanelDirectory resolves panel accounts; ok is false for an unknown user.
type PanelDirectory interface {
	UserEmail(ctx context.Context, panelUserID int64) (email string, ok bool, err error)
}

type UserService struct {
	repo  UserRepository
	panel PanelDirectory
}

func NewUserService(repo UserRepository, panel PanelDirectory) *UserService {
	return &UserService{repo: repo, panel: panel}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a dashboard account bound to a panel user. The panel user
// must carry the same email, and can be bound to one account only.
func (s *UserService) Register(ctx context.Context, email, password string, panelUserID int64) (*user.User, error) {
	email = normalizeEmail(email)

	_, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return nil, ErrUserExists
	}
	if !errors.Is(err, user.ErrNotFound) {
		return nil, err
	}

	_, err = s.repo.GetByPanelUserID(ctx, panelUserID)
	if err == nil {
		return nil, ErrPanelUserTaken
	}
	if !errors.Is(err, user.ErrNotFound) {
		return nil, err
	}

	panelEmail, ok, err := s.panel.UserEmail(ctx, panelUserID)
	if err != nil {
		return nil, fmt.Errorf("look up panel user %d: %w", panelUserID, err)
	}
	if !ok || normalizeEmail(panelEmail) != email {
		return nil, ErrPanelUserMismatch
	}

	hashed, err := hash.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &user.User{
		Email:       email,
		Password:    hashed,
		PanelUserID: panelUserID,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		switch {
		case errors.Is(err, user.ErrEmailTaken):
			return nil, ErrUserExists
		case errors.Is(err, user.ErrPanelUserTaken):
			return nil, ErrPanelUserTaken
		}
		return nil, err
	}

	return u, nil
}

func (s *UserService) Login(ctx context.Context, email, password string) (*user.User, error) {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCreds
		}
		return nil, err
	}

	if !hash.CheckPassword(u.Password, password) {
		return nil, ErrInvalidCreds
	}

	return u, nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return s.repo.GetByID(ctx, id)
}
