package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered  EventType = "user_registered"
	EventUserLoggedIn    EventType = "user_logged_in"
	EventPasswordChanged EventType = "password_changed"
	EventSessionsRevoked EventType = "sessions_revoked"
	EventRoomJoined      EventType = "room_joined"
	EventRoomLeft        EventType = "room_left"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, userID string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// UserLoggedInPayload payload.
type UserLoggedInPayload struct {
	ExpiresAt time.Time `json:"expires_at"`
}

// RoomPresencePayload payload for join/leave.
type RoomPresencePayload struct {
	RoomID string `json:"room_id"`
	PeerID string `json:"peer_id"`
}
