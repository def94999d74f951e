package service

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/collab-service/internal/domain"
	"github.com/spec-kit/collab-service/internal/repository"
	"github.com/spec-kit/collab-service/pkg/util"
)

// UserService serves profile reads and the paginated directory.
type UserService struct {
	users repository.UserRepository
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// Get returns a single user.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("user", map[string]any{"user_id": id})
		}
		return nil, err
	}
	return user, nil
}

// List returns one page of users, newest first, with pagination metadata.
func (s *UserService) List(ctx context.Context, page util.Page) ([]domain.User, util.Pagination, error) {
	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, util.Pagination{}, err
	}
	users, err := s.users.List(ctx, page.Limit, page.Offset())
	if err != nil {
		return nil, util.Pagination{}, err
	}
	return users, util.NewPagination(total, page), nil
}

// UpdateProfilePicture sets the avatar URL; only http(s) URLs are accepted.
func (s *UserService) UpdateProfilePicture(ctx context.Context, id, pictureURL string) (*domain.User, error) {
	if !validImageURL(pictureURL) {
		return nil, util.NewValidationError("Please provide a valid image URL.", map[string]any{"field": "profile_picture_url"})
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	user.ProfilePictureURL = &pictureURL
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func validImageURL(raw string) bool {
	if strings.ContainsAny(raw, " \t\n") {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
