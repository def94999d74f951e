package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/collab-service/internal/domain"
	"github.com/spec-kit/collab-service/internal/events"
	"github.com/spec-kit/collab-service/internal/presence"
	"github.com/spec-kit/collab-service/pkg/util"
)

// JoinInput describes the peer joining a room.
type JoinInput struct {
	PeerID   string
	SocketID string
}

// PresenceService records room membership for authorized users.
type PresenceService struct {
	registry   presence.Registry
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// NewPresenceService constructs the service.
func NewPresenceService(registry presence.Registry, dispatcher events.Dispatcher, logger *zap.Logger) *PresenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PresenceService{registry: registry, dispatcher: dispatcher, logger: logger, now: time.Now}
}

// Join adds the user's peer to the room and returns the room as it now stands.
// A peer already present (same peer id or email) is not duplicated.
func (s *PresenceService) Join(ctx context.Context, user *domain.User, roomID string, in JoinInput) ([]domain.Participant, bool, error) {
	p := domain.Participant{
		PeerID:   in.PeerID,
		UserID:   user.ID,
		Email:    user.Email,
		Name:     user.FullName,
		SocketID: in.SocketID,
		JoinedAt: s.now().UTC(),
	}
	added, err := s.registry.Join(ctx, roomID, p)
	if err != nil {
		if errors.Is(err, presence.ErrInvalidParticipant) {
			return nil, false, util.NewValidationError(err.Error(), nil)
		}
		return nil, false, err
	}
	if added {
		s.publish(ctx, events.NewEvent(events.EventRoomJoined, user.ID, events.RoomPresencePayload{RoomID: roomID, PeerID: in.PeerID}))
	}

	participants, err := s.registry.Participants(ctx, roomID)
	if err != nil {
		return nil, false, err
	}
	return participants, added, nil
}

// Leave removes a peer from the room. Only the peer's own user may remove it.
func (s *PresenceService) Leave(ctx context.Context, userID, roomID, peerID string) error {
	participants, err := s.registry.Participants(ctx, roomID)
	if err != nil {
		return err
	}
	for _, p := range participants {
		if p.PeerID != peerID {
			continue
		}
		if p.UserID != userID {
			return util.NewForbidden("peer belongs to another user")
		}
		if err := s.registry.Leave(ctx, roomID, peerID); err != nil {
			return err
		}
		s.publish(ctx, events.NewEvent(events.EventRoomLeft, userID, events.RoomPresencePayload{RoomID: roomID, PeerID: peerID}))
		return nil
	}
	return nil
}

// Participants lists the room.
func (s *PresenceService) Participants(ctx context.Context, roomID string) ([]domain.Participant, error) {
	return s.registry.Participants(ctx, roomID)
}

func (s *PresenceService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
