package domain

import "time"

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

// User is a workspace member. SigningSecret keys every token issued to the user
// and is rotated independently of the password.
type User struct {
	ID                string
	Email             string
	FullName          string
	Username          string
	PasswordHash      string
	SigningSecret     string
	ProfilePictureURL *string
	Status            UserStatus
	Role              Role
	Timezone          string
	Language          string
	GroupID           *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Active reports whether the account may log in.
func (u *User) Active() bool {
	return u != nil && u.Status == UserStatusActive
}
