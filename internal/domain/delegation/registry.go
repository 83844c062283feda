package delegation

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"leaveflow/internal/platform/apperror"
	"leaveflow/internal/platform/logger"
)

// UserChecker reports whether a user ID is known.
type UserChecker interface {
	Exists(id string) bool
}

// Registry keeps each user's delegation history, newest assignment first.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string][]*Entry
	owner  map[string]string // entry ID -> delegating user ID
	users  UserChecker
	now    func() time.Time
	logger *zap.Logger
}

func NewRegistry(users UserChecker, now func() time.Time, l *zap.Logger) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		byUser: make(map[string][]*Entry),
		owner:  make(map[string]string),
		users:  users,
		now:    now,
		logger: logger.Named(l, "delegation.registry"),
	}
}

// Add prepends a new grant from userID to delegateID for [start, end].
func (r *Registry) Add(userID, delegateID string, start, end time.Time) (Entry, error) {
	if err := r.validate(userID, delegateID, start, end); err != nil {
		return Entry{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	e := &Entry{
		ID:            uuid.NewString(),
		DelegatedToID: delegateID,
		StartDate:     start,
		EndDate:       end,
		AssignedAt:    r.now(),
	}
	r.byUser[userID] = append([]*Entry{e}, r.byUser[userID]...)
	r.owner[e.ID] = userID

	r.logger.Info("delegation added",
		zap.String("user_id", userID),
		zap.String("delegation_id", e.ID),
		zap.String("delegate_id", delegateID),
		zap.Time("start", start),
		zap.Time("end", end),
	)
	return *e, nil
}

// Cancel deletes a scheduled entry. Active and past entries stay as audit trail.
func (r *Registry) Cancel(userID, historyID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, idx, err := r.lookupLocked(userID, historyID)
	if err != nil {
		return err
	}
	now := r.now()
	if phase := e.PhaseAt(now); phase != PhaseScheduled {
		r.logger.Warn("delegation cancel refused",
			zap.String("user_id", userID),
			zap.String("delegation_id", historyID),
			zap.String("phase", string(phase)),
		)
		return apperror.Wrapf(ErrNotScheduled, "delegation %s is %s", historyID, phase)
	}

	entries := r.byUser[userID]
	r.byUser[userID] = append(entries[:idx:idx], entries[idx+1:]...)
	delete(r.owner, historyID)
	r.logger.Info("delegation cancelled", zap.String("user_id", userID), zap.String("delegation_id", historyID))
	return nil
}

// Stop truncates an active entry so that it is already past at the moment it
// was stopped. Windows are inclusive at both ends.
func (r *Registry) Stop(userID, historyID string) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, _, err := r.lookupLocked(userID, historyID)
	if err != nil {
		return Entry{}, err
	}
	now := r.now()
	if phase := e.PhaseAt(now); phase != PhaseActive {
		r.logger.Warn("delegation stop refused",
			zap.String("user_id", userID),
			zap.String("delegation_id", historyID),
			zap.String("phase", string(phase)),
		)
		return Entry{}, apperror.Wrapf(ErrNotActive, "delegation %s is %s", historyID, phase)
	}
	e.EndDate = now.Add(-time.Nanosecond)
	r.logger.Info("delegation stopped", zap.String("user_id", userID), zap.String("delegation_id", historyID))
	return *e, nil
}

// Extend rewrites the end of a scheduled or active entry.
func (r *Registry) Extend(userID, historyID string, newEnd time.Time) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, _, err := r.lookupLocked(userID, historyID)
	if err != nil {
		return Entry{}, err
	}
	if err := r.requireMutableLocked(e, userID); err != nil {
		return Entry{}, err
	}
	if newEnd.Before(e.StartDate) {
		return Entry{}, apperror.Wrapf(ErrInvalidDelegation, "end before start")
	}
	e.EndDate = newEnd
	r.logger.Info("delegation extended",
		zap.String("user_id", userID),
		zap.String("delegation_id", historyID),
		zap.Time("end", newEnd),
	)
	return *e, nil
}

// Update rewrites the target and window of a scheduled or active entry.
func (r *Registry) Update(userID, historyID, delegateID string, start, end time.Time) (Entry, error) {
	if err := r.validate(userID, delegateID, start, end); err != nil {
		return Entry{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, _, err := r.lookupLocked(userID, historyID)
	if err != nil {
		return Entry{}, err
	}
	if err := r.requireMutableLocked(e, userID); err != nil {
		return Entry{}, err
	}
	e.DelegatedToID = delegateID
	e.StartDate = start
	e.EndDate = end
	r.logger.Info("delegation updated",
		zap.String("user_id", userID),
		zap.String("delegation_id", historyID),
		zap.String("delegate_id", delegateID),
	)
	return *e, nil
}

// ResolveActiveDelegate returns who may act for userID at now. When several
// entries overlap, the most recently assigned one wins.
func (r *Registry) ResolveActiveDelegate(userID string, now time.Time) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.byUser[userID] {
		if e.ActiveAt(now) {
			return e.DelegatedToID, true
		}
	}
	return "", false
}

// IsActingFor reports whether delegateID currently holds userID's authority.
func (r *Registry) IsActingFor(delegateID, userID string, now time.Time) bool {
	if delegateID == "" || userID == "" {
		return false
	}
	active, ok := r.ResolveActiveDelegate(userID, now)
	return ok && active == delegateID
}

// DelegatorsOf lists the users whose authority delegateID holds at now.
func (r *Registry) DelegatorsOf(delegateID string, now time.Time) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for userID, entries := range r.byUser {
		for _, e := range entries {
			if e.ActiveAt(now) {
				if e.DelegatedToID == delegateID {
					out = append(out, userID)
				}
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// History returns the user's entries, newest assignment first, with their
// phase at the registry's current time.
func (r *Registry) History(userID string) []View {
	r.mu.RLock()
	defer r.mu.RUnlock()
	now := r.now()
	out := make([]View, 0, len(r.byUser[userID]))
	for _, e := range r.byUser[userID] {
		out = append(out, View{Entry: *e, Phase: e.PhaseAt(now)})
	}
	return out
}

func (r *Registry) validate(userID, delegateID string, start, end time.Time) error {
	delegateID = strings.TrimSpace(delegateID)
	if delegateID == "" {
		return apperror.Wrapf(ErrInvalidDelegation, "delegate is required")
	}
	if delegateID == userID {
		return apperror.Wrapf(ErrInvalidDelegation, "cannot delegate to self")
	}
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return apperror.Wrapf(ErrInvalidDelegation, "invalid window")
	}
	if r.users != nil {
		if !r.users.Exists(userID) {
			return apperror.Wrapf(ErrUserNotFound, "id %s", userID)
		}
		if !r.users.Exists(delegateID) {
			return apperror.Wrapf(ErrUserNotFound, "delegate %s", delegateID)
		}
	}
	return nil
}

func (r *Registry) lookupLocked(userID, historyID string) (*Entry, int, error) {
	if r.owner[historyID] != userID {
		return nil, -1, apperror.Wrapf(ErrDelegationNotFound, "id %s", historyID)
	}
	for i, e := range r.byUser[userID] {
		if e.ID == historyID {
			return e, i, nil
		}
	}
	return nil, -1, apperror.Wrapf(ErrDelegationNotFound, "id %s", historyID)
}

func (r *Registry) requireMutableLocked(e *Entry, userID string) error {
	if e.PhaseAt(r.now()) == PhasePast {
		r.logger.Warn("delegation change refused",
			zap.String("user_id", userID),
			zap.String("delegation_id", e.ID),
			zap.String("phase", string(PhasePast)),
		)
		return apperror.Wrapf(ErrDelegationPast, "delegation %s", e.ID)
	}
	return nil
}
