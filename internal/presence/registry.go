// Package presence tracks which peers are connected to each real-time room.
// The registry is owned by the connection-handling layer and passed in
// explicitly; there is no package-level state.
package presence

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/spec-kit/collab-service/internal/domain"
)

var ErrInvalidParticipant = errors.New("participant requires room id and peer id")

// Registry is a room-scoped participant store.
type Registry interface {
	// Join adds p to the room unless a participant with the same peer id or
	// email is already present. It reports whether p was added.
	Join(ctx context.Context, roomID string, p domain.Participant) (bool, error)
	// Leave removes the peer from the room. Unknown peers are ignored.
	Leave(ctx context.Context, roomID, peerID string) error
	// Participants lists the room ordered by join time.
	Participants(ctx context.Context, roomID string) ([]domain.Participant, error)
}

// MemoryRegistry keeps rooms in process memory.
type MemoryRegistry struct {
	mu    sync.RWMutex
	rooms map[string]map[string]domain.Participant
}

// NewMemoryRegistry builds an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{rooms: make(map[string]map[string]domain.Participant)}
}

func (r *MemoryRegistry) Join(_ context.Context, roomID string, p domain.Participant) (bool, error) {
	if roomID == "" || p.PeerID == "" {
		return false, ErrInvalidParticipant
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		room = make(map[string]domain.Participant)
		r.rooms[roomID] = room
	}
	for _, existing := range room {
		if existing.PeerID == p.PeerID || (p.Email != "" && existing.Email == p.Email) {
			return false, nil
		}
	}
	room[p.PeerID] = p
	return true, nil
}

func (r *MemoryRegistry) Leave(_ context.Context, roomID, peerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	delete(room, peerID)
	if len(room) == 0 {
		delete(r.rooms, roomID)
	}
	return nil
}

func (r *MemoryRegistry) Participants(_ context.Context, roomID string) ([]domain.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := r.rooms[roomID]
	out := make([]domain.Participant, 0, len(room))
	for _, p := range room {
		out = append(out, p)
	}
	sortByJoinTime(out)
	return out, nil
}

func sortByJoinTime(ps []domain.Participant) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].JoinedAt.Equal(ps[j].JoinedAt) {
			return ps[i].PeerID < ps[j].PeerID
		}
		return ps[i].JoinedAt.Before(ps[j].JoinedAt)
	})
}
