package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/collab-service/internal/domain"
)

// MemoryUserRepository keeps users in process memory. It honors the same
// contract as the Postgres store, including pgx.ErrNoRows for missing rows.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]memoryRow
	seq   int64
	now   func() time.Time
}

type memoryRow struct {
	user domain.User
	seq  int64
}

// NewMemoryUserRepository returns an empty store.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]memoryRow), now: time.Now}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.taken(user.Email, user.Username) {
		return ErrDuplicateUser
	}
	r.seq++
	user.ID = uuid.NewString()
	user.CreatedAt = r.now().UTC()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = memoryRow{user: *user, seq: r.seq}
	return nil
}

func (r *MemoryUserRepository) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.users[user.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	// Same columns as the SQL UPDATE: the signing secret and creation time
	// are never written from a caller's copy.
	row.user.Email = user.Email
	row.user.FullName = user.FullName
	row.user.Username = user.Username
	row.user.PasswordHash = user.PasswordHash
	row.user.ProfilePictureURL = user.ProfilePictureURL
	row.user.Status = user.Status
	row.user.Role = user.Role
	row.user.Timezone = user.Timezone
	row.user.Language = user.Language
	row.user.GroupID = user.GroupID
	row.user.UpdatedAt = r.now().UTC()
	user.UpdatedAt = row.user.UpdatedAt
	r.users[user.ID] = row
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	user := row.user
	return &user, nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, row := range r.users {
		if row.user.Email == email {
			user := row.user
			return &user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *MemoryUserRepository) ExistsByEmailOrUsername(_ context.Context, email, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.taken(email, username), nil
}

func (r *MemoryUserRepository) UpdateSigningSecret(_ context.Context, id, secret string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	row.user.SigningSecret = secret
	row.user.UpdatedAt = r.now().UTC()
	r.users[id] = row
	return nil
}

// List orders newest first, like the SQL store.
func (r *MemoryUserRepository) List(_ context.Context, limit, offset int) ([]domain.User, error) {
	r.mu.RLock()
	rows := make([]memoryRow, 0, len(r.users))
	for _, row := range r.users {
		rows = append(rows, row)
	}
	r.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })
	if offset < 0 || offset >= len(rows) {
		return nil, nil
	}
	end := offset + limit
	if limit < 0 || end > len(rows) || end < offset {
		end = len(rows)
	}

	result := make([]domain.User, 0, end-offset)
	for _, row := range rows[offset:end] {
		result = append(result, row.user)
	}
	return result, nil
}

func (r *MemoryUserRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.users)), nil
}

func (r *MemoryUserRepository) taken(email, username string) bool {
	for _, row := range r.users {
		if row.user.Email == email || row.user.Username == username {
			return true
		}
	}
	return false
}
