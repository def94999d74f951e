package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/collab-service/internal/domain"
)

const keyPrefix = "presence:room:"

// joinScript adds a participant only when neither its peer id nor its email is
// already in the room, and refreshes the room expiry.
// KEYS[1] peers hash, KEYS[2] emails hash; ARGV: peer id, email, json, ttl ms.
var joinScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 1 then
  return 0
end
if ARGV[2] ~= '' and redis.call('HEXISTS', KEYS[2], ARGV[2]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[3])
if ARGV[2] ~= '' then
  redis.call('HSET', KEYS[2], ARGV[2], ARGV[1])
end
local ttl = tonumber(ARGV[4])
if ttl > 0 then
  redis.call('PEXPIRE', KEYS[1], ttl)
  redis.call('PEXPIRE', KEYS[2], ttl)
end
return 1
`)

// RedisRegistry stores each room as a pair of Redis hashes so that several
// service instances share one view of a room.
type RedisRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRegistry builds a registry. ttl bounds how long an idle room lingers;
// zero keeps rooms until their last participant leaves.
func NewRedisRegistry(client *redis.Client, ttl time.Duration) *RedisRegistry {
	return &RedisRegistry{client: client, ttl: ttl}
}

func peersKey(roomID string) string  { return keyPrefix + roomID + ":peers" }
func emailsKey(roomID string) string { return keyPrefix + roomID + ":emails" }

func (r *RedisRegistry) Join(ctx context.Context, roomID string, p domain.Participant) (bool, error) {
	if roomID == "" || p.PeerID == "" {
		return false, ErrInvalidParticipant
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return false, fmt.Errorf("encode participant: %w", err)
	}

	added, err := joinScript.Run(ctx, r.client,
		[]string{peersKey(roomID), emailsKey(roomID)},
		p.PeerID, p.Email, string(raw), r.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("join room %s: %w", roomID, err)
	}
	return added == 1, nil
}

func (r *RedisRegistry) Leave(ctx context.Context, roomID, peerID string) error {
	raw, err := r.client.HGet(ctx, peersKey(roomID), peerID).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("leave room %s: %w", roomID, err)
	}

	var p domain.Participant
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return fmt.Errorf("decode participant: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, peersKey(roomID), peerID)
		if p.Email != "" {
			pipe.HDel(ctx, emailsKey(roomID), p.Email)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("leave room %s: %w", roomID, err)
	}
	return nil
}

func (r *RedisRegistry) Participants(ctx context.Context, roomID string) ([]domain.Participant, error) {
	entries, err := r.client.HGetAll(ctx, peersKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list room %s: %w", roomID, err)
	}

	out := make([]domain.Participant, 0, len(entries))
	for _, raw := range entries {
		var p domain.Participant
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("decode participant: %w", err)
		}
		out = append(out, p)
	}
	sortByJoinTime(out)
	return out, nil
}
