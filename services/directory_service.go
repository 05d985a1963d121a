package services

import (
	"context"
	"strings"

	"github.com/samber/lo"

	"pairchat/domain"
	"pairchat/errors"
	"pairchat/repositories"
)

const maxSearchResults = 20

// Profile is the public slice of a user record, safe to hand to any
// authenticated caller.
type Profile struct {
	ID        string
	Username  string
	Name      string
	AvatarURL string
}

func toProfile(user domain.User) Profile {
	return Profile{
		ID:        user.ID,
		Username:  user.Username,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
	}
}

type IDirectoryService interface {
	// SearchUsers finds users whose username or display name contains the
	// keyword, excluding the caller.
	SearchUsers(ctx context.Context, callerID, keyword string) ([]Profile, error)
}

type DirectoryService struct {
	users repositories.IUserRepository
}

func NewDirectoryService(users repositories.IUserRepository) *DirectoryService {
	return &DirectoryService{users: users}
}

func (s *DirectoryService) SearchUsers(ctx context.Context, callerID, keyword string) ([]Profile, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, errors.ErrInvalidInput
	}

	users, err := s.users.Search(ctx, keyword, callerID, maxSearchResults)
	if err != nil {
		return nil, err
	}
	return lo.Map(users, func(user domain.User, _ int) Profile {
		return toProfile(user)
	}), nil
}
