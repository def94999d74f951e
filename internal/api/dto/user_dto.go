package dto

import (
	"time"

	"github.com/spec-kit/collab-service/internal/domain"
	"github.com/spec-kit/collab-service/pkg/util"
)

// UserRegisterRequest payload for new accounts.
type UserRegisterRequest struct {
	Email             string  `json:"email"`
	FullName          string  `json:"full_name"`
	Username          string  `json:"username"`
	Password          string  `json:"password"`
	Role              string  `json:"role"`
	Timezone          string  `json:"timezone"`
	Language          string  `json:"language"`
	GroupID           *string `json:"group_id"`
	ProfilePictureURL *string `json:"profile_picture_url"`
}

// UserLoginRequest payload for login.
type UserLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordRequest payload for PUT /users/:user_id/password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ProfilePictureRequest payload for PUT /users/:user_id/profile-picture.
type ProfilePictureRequest struct {
	ProfilePictureURL string `json:"profile_picture_url"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserResponse is the public view of an account. Secrets never leave the service.
type UserResponse struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	FullName          string    `json:"full_name"`
	Username          string    `json:"username"`
	ProfilePictureURL *string   `json:"profile_picture_url"`
	Status            string    `json:"status"`
	Role              string    `json:"role"`
	Timezone          string    `json:"timezone"`
	Language          string    `json:"language"`
	GroupID           *string   `json:"group_id"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// UserDirectoryResponse is one page of the user directory.
type UserDirectoryResponse struct {
	Users      []UserResponse  `json:"users"`
	Pagination util.Pagination `json:"pagination"`
}

// NewUserResponse maps a domain user to its public view.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:                u.ID,
		Email:             u.Email,
		FullName:          u.FullName,
		Username:          u.Username,
		ProfilePictureURL: u.ProfilePictureURL,
		Status:            string(u.Status),
		Role:              string(u.Role),
		Timezone:          u.Timezone,
		Language:          u.Language,
		GroupID:           u.GroupID,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}
