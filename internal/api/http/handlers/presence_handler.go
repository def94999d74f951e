package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/collab-service/internal/api/dto"
	"github.com/spec-kit/collab-service/internal/auth"
	"github.com/spec-kit/collab-service/internal/service"
)

// PresenceHandler exposes room membership endpoints.
type PresenceHandler struct {
	presence *service.PresenceService
}

// NewPresenceHandler constructs handler.
func NewPresenceHandler(presenceService *service.PresenceService) *PresenceHandler {
	return &PresenceHandler{presence: presenceService}
}

// Join handles POST /api/v1/users/:user_id/rooms/:room_id/join.
func (h *PresenceHandler) Join(c *fiber.Ctx) error {
	authCtx, ok := auth.FromContext(c)
	if !ok || authCtx.User == nil {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}
	var req dto.JoinRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	roomID := c.Params("room_id")
	participants, joined, err := h.presence.Join(c.UserContext(), authCtx.User, roomID, service.JoinInput{
		PeerID:   req.PeerID,
		SocketID: req.SocketID,
	})
	if err != nil {
		return err
	}

	status := http.StatusOK
	if joined {
		status = http.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{
		"data": dto.RoomResponse{RoomID: roomID, Joined: joined, Participants: participants},
	})
}

// Leave handles DELETE /api/v1/users/:user_id/rooms/:room_id/peers/:peer_id.
func (h *PresenceHandler) Leave(c *fiber.Ctx) error {
	authCtx, ok := auth.FromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}
	if err := h.presence.Leave(c.UserContext(), authCtx.SubjectID(), c.Params("room_id"), c.Params("peer_id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Participants handles GET /api/v1/users/:user_id/rooms/:room_id/participants.
func (h *PresenceHandler) Participants(c *fiber.Ctx) error {
	roomID := c.Params("room_id")
	participants, err := h.presence.Participants(c.UserContext(), roomID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": dto.RoomResponse{RoomID: roomID, Participants: participants},
	})
}
