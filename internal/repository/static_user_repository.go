package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/pe-space-master/internal/models"
)

// StaticUserRepository serves the accounts listed in configuration when no
// database is configured. Entries have the form "username:password:role";
// plain passwords are hashed on load, bcrypt hashes are used as given.
type StaticUserRepository struct {
	mu    sync.RWMutex
	users map[string]*models.User
}

// NewStaticUserRepository parses the configured account entries.
func NewStaticUserRepository(entries []string) (*StaticUserRepository, error) {
	repo := &StaticUserRepository{users: make(map[string]*models.User, len(entries))}
	now := time.Now().UTC()
	for _, entry := range entries {
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid auth user entry %q", entry)
		}
		username := strings.TrimSpace(parts[0])
		role := models.RoleTeacher
		if len(parts) == 3 {
			role = models.ParseUserRole(parts[2])
		}
		hash := parts[1]
		if !strings.HasPrefix(hash, "$2") {
			generated, err := bcrypt.GenerateFromPassword([]byte(parts[1]), bcrypt.DefaultCost)
			if err != nil {
				return nil, fmt.Errorf("hash password for %s: %w", username, err)
			}
			hash = string(generated)
		}
		repo.users[strings.ToLower(username)] = &models.User{
			ID:           "static-" + strings.ToLower(username),
			Username:     username,
			PasswordHash: hash,
			FullName:     username,
			Role:         role,
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	}
	return repo, nil
}

// Users returns copies of every configured account ordered by username.
func (r *StaticUserRepository) Users() []models.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.User, 0, len(r.users))
	for _, user := range r.users {
		out = append(out, *user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// FindByUsername returns sql.ErrNoRows for unknown users, matching UserRepository.
func (r *StaticUserRepository) FindByUsername(_ context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

// FindByID returns a user by identifier.
func (r *StaticUserRepository) FindByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.ID == id {
			clone := *user
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

// UpdateLastLogin records the login time in memory.
func (r *StaticUserRepository) UpdateLastLogin(_ context.Context, id string, ts time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.ID == id {
			t := ts
			user.LastLogin = &t
			user.UpdatedAt = ts
			return nil
		}
	}
	return sql.ErrNoRows
}
