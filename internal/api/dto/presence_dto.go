package dto

import "github.com/spec-kit/collab-service/internal/domain"

// JoinRoomRequest payload for POST /users/:user_id/rooms/:room_id/join.
type JoinRoomRequest struct {
	PeerID   string `json:"peer_id"`
	SocketID string `json:"socket_id"`
}

// RoomResponse lists the participants currently in a room.
type RoomResponse struct {
	RoomID       string               `json:"room_id"`
	Joined       bool                 `json:"joined"`
	Participants []domain.Participant `json:"participants"`
}
