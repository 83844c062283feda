package directory

import (
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"leaveflow/internal/platform/apperror"
	"leaveflow/internal/platform/logger"
)

// Directory holds users keyed by ID.
type Directory struct {
	mu     sync.RWMutex
	users  map[string]*User
	logger *zap.Logger
}

func New(l *zap.Logger) *Directory {
	return &Directory{
		users:  make(map[string]*User),
		logger: logger.Named(l, "directory"),
	}
}

// Add registers a user. Sequential approvers are stored as given; use
// UpdateUserApprovers to set them with validation.
func (d *Directory) Add(u User) (User, error) {
	u.ID = strings.TrimSpace(u.ID)
	if u.ID == "" {
		return User{}, apperror.Wrapf(ErrInvalidUser, "id is required")
	}
	if !u.Role.Valid() {
		return User{}, apperror.Wrapf(ErrInvalidUser, "unknown role %q", u.Role)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.users[u.ID]; exists {
		return User{}, apperror.Wrapf(ErrUserExists, "id %s", u.ID)
	}
	stored := u.clone()
	d.users[u.ID] = &stored
	d.logger.Debug("user added", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
	return stored.clone(), nil
}

func (d *Directory) Get(id string) (User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	if !ok {
		return User{}, apperror.Wrapf(ErrUserNotFound, "id %s", id)
	}
	return u.clone(), nil
}

func (d *Directory) Exists(id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.users[id]
	return ok
}

// List returns all users ordered by ID.
func (d *Directory) List() []User {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]User, 0, len(d.users))
	for _, u := range d.users {
		out = append(out, u.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UpdateUserApprovers replaces the user's ordered approver list. An empty list
// restores the default path.
func (d *Directory) UpdateUserApprovers(userID string, approverIDs []string) (User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[userID]
	if !ok {
		return User{}, apperror.Wrapf(ErrUserNotFound, "id %s", userID)
	}

	seen := make(map[string]struct{}, len(approverIDs))
	cleaned := make([]string, 0, len(approverIDs))
	for _, id := range approverIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			return User{}, apperror.Wrapf(ErrInvalidApprovers, "empty approver id")
		}
		if id == userID {
			return User{}, apperror.Wrapf(ErrInvalidApprovers, "user %s cannot approve their own leave", userID)
		}
		if _, dup := seen[id]; dup {
			return User{}, apperror.Wrapf(ErrInvalidApprovers, "approver %s listed twice", id)
		}
		if _, exists := d.users[id]; !exists {
			return User{}, apperror.Wrapf(ErrUserNotFound, "approver %s", id)
		}
		seen[id] = struct{}{}
		cleaned = append(cleaned, id)
	}

	u.SequentialApprovers = cleaned
	d.logger.Info("sequential approvers updated",
		zap.String("user_id", userID),
		zap.Strings("approvers", cleaned),
	)
	return u.clone(), nil
}

// FirstByRole returns the lowest-ID user holding the first of roles that has
// any holder, skipping exclude.
func (d *Directory) FirstByRole(exclude string, roles ...Role) (User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, role := range roles {
		var best *User
		for _, u := range d.users {
			if u.Role != role || u.ID == exclude {
				continue
			}
			if best == nil || u.ID < best.ID {
				best = u
			}
		}
		if best != nil {
			return best.clone(), true
		}
	}
	return User{}, false
}
