package domain

import "time"

// Participant is a peer present in a real-time room (call or event).
type Participant struct {
	PeerID   string    `json:"peer_id"`
	UserID   string    `json:"user_id"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	SocketID string    `json:"socket_id,omitempty"`
	JoinedAt time.Time `json:"joined_at"`
}
