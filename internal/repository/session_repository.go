package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/pe-space-master/internal/models"
	appErrors "github.com/noah-isme/pe-space-master/pkg/errors"
)

const sessionKeyPrefix = "pe-space-master:session:"

// SessionKey returns the storage key of an allocation session.
func SessionKey(id string) string {
	return sessionKeyPrefix + id
}

// RedisSessionRepository keeps allocation sessions in Redis as JSON with a TTL.
type RedisSessionRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisSessionRepository constructs a Redis backed session store.
func NewRedisSessionRepository(client *redis.Client, logger *zap.Logger) *RedisSessionRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisSessionRepository{client: client, logger: logger}
}

// Get loads a session. A missing or expired session returns appErrors.ErrCacheMiss.
func (r *RedisSessionRepository) Get(ctx context.Context, id string) (*models.AllocationSession, error) {
	if r.client == nil {
		return nil, appErrors.ErrCacheMiss
	}

	key := SessionKey(id)
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	var session models.AllocationSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", key, err)
	}
	return &session, nil
}

// Save stores the session and refreshes its TTL.
func (r *RedisSessionRepository) Save(ctx context.Context, session *models.AllocationSession, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}

	key := SessionKey(session.ID)
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", key, err)
	}

	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	r.logger.Debug("session saved", zap.String("session_id", session.ID), zap.Int("bytes", len(payload)))
	return nil
}

// Delete removes a session.
func (r *RedisSessionRepository) Delete(ctx context.Context, id string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, SessionKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", SessionKey(id), err)
	}
	return nil
}

// Close releases the underlying Redis connection if present.
func (r *RedisSessionRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemorySessionRepository is the in-process session store used when Redis is
// disabled. Sessions are stored serialised so callers never share state.
type MemorySessionRepository struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemorySessionRepository constructs an empty in-memory store.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{entries: make(map[string]memoryEntry), now: time.Now}
}

// Get loads a session. A missing or expired session returns appErrors.ErrCacheMiss.
func (r *MemorySessionRepository) Get(_ context.Context, id string) (*models.AllocationSession, error) {
	r.mu.RLock()
	entry, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return nil, appErrors.ErrCacheMiss
	}
	if !entry.expiresAt.IsZero() && r.now().After(entry.expiresAt) {
		r.mu.Lock()
		delete(r.entries, id)
		r.mu.Unlock()
		return nil, appErrors.ErrCacheMiss
	}

	var session models.AllocationSession
	if err := json.Unmarshal(entry.payload, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", id, err)
	}
	return &session, nil
}

// Save stores the session. A non-positive ttl keeps it until deleted.
func (r *MemorySessionRepository) Save(_ context.Context, session *models.AllocationSession, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", session.ID, err)
	}
	entry := memoryEntry{payload: payload}
	if ttl > 0 {
		entry.expiresAt = r.now().Add(ttl)
	}
	r.mu.Lock()
	r.entries[session.ID] = entry
	r.mu.Unlock()
	return nil
}

// Delete removes a session.
func (r *MemorySessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
	return nil
}
