package services

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pairchat/auth"
	"pairchat/domain"
	"pairchat/errors"
	"pairchat/repositories"
)

type IAuthService interface {
	Register(username, name, password string) (Session, error)
	Login(username, password string) (Session, error)
}

// Session is what a successful login or registration hands back to the
// client: the signed token plus the public profile it belongs to.
type Session struct {
	Token string
	User  domain.User
}

type AuthService struct {
	users  repositories.IUserRepository
	tokens auth.Tokens
}

func NewAuthService(users repositories.IUserRepository, tokens auth.Tokens) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

func (s *AuthService) Register(username, name, password string) (Session, error) {
	valReq := auth.RegisterRequest{
		Username: username,
		Name:     name,
		Password: password,
	}

	// Business rules first, before any expensive cryptographic work.
	if err := auth.ValidateRegister(valReq); err != nil {
		if stderrors.Is(err, errors.ErrInvalidPassword) {
			return Session{}, err
		}
		return Session{}, fmt.Errorf("%w: %v", errors.ErrInvalidInput, err)
	}

	// Hashing happens here so the repository never sees plain passwords.
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return Session{}, fmt.Errorf("hashing failed: %w", err)
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Name:         name,
		PasswordHash: hashedPassword,
		Roles:        []string{"user"},
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(user); err != nil {
		return Session{}, err // propagates ErrUserAlreadyExists on a taken username
	}

	return s.newSession(user)
}

func (s *AuthService) Login(username, password string) (Session, error) {
	user, err := s.users.GetByUsername(username)
	if err != nil {
		// Generic error to prevent user enumeration.
		return Session{}, errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return Session{}, errors.ErrInvalidCredentials
	}

	return s.newSession(user)
}

func (s *AuthService) newSession(user domain.User) (Session, error) {
	token, err := s.tokens.Generate(user.ID, user.Username)
	if err != nil {
		return Session{}, errors.ErrTokenGeneration
	}
	user.PasswordHash = ""
	return Session{Token: token, User: user}, nil
}
