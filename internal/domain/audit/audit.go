package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Event struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actorId"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	RequestID  string          `json:"requestId"`
	IP         string          `json:"ip"`
	CreatedAt  time.Time       `json:"createdAt"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
}

type Filter struct {
	Action     string
	EntityType string
	EntityID   string
	ActorUser  string
}

func (f Filter) matches(evt *Event) bool {
	if f.Action != "" && evt.Action != f.Action {
		return false
	}
	if f.EntityType != "" && evt.EntityType != f.EntityType {
		return false
	}
	if f.EntityID != "" && evt.EntityID != f.EntityID {
		return false
	}
	if f.ActorUser != "" && evt.ActorID != f.ActorUser {
		return false
	}
	return true
}

// Service is an append-only trail of mutating calls.
type Service struct {
	mu     sync.RWMutex
	events []*Event
	now    func() time.Time
}

func New(now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{now: now}
}

func (s *Service) Record(ctx context.Context, actorID, action, entityType, entityID, requestID, ip string, before, after any) error {
	evt := &Event{
		ID:         uuid.NewString(),
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		RequestID:  requestID,
		IP:         ip,
		CreatedAt:  s.now(),
	}
	if before != nil {
		payload, err := json.Marshal(before)
		if err != nil {
			return err
		}
		evt.Before = payload
	}
	if after != nil {
		payload, err := json.Marshal(after)
		if err != nil {
			return err
		}
		evt.After = payload
	}

	s.mu.Lock()
	s.events = append(s.events, evt)
	s.mu.Unlock()
	return nil
}

func (s *Service) Count(ctx context.Context, filter Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, evt := range s.events {
		if filter.matches(evt) {
			total++
		}
	}
	return total, nil
}

// List returns matching events newest first; limit <= 0 means no limit.
// Before/After payloads are only included when includeDetails is set.
func (s *Service) List(ctx context.Context, filter Filter, includeDetails bool, limit, offset int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	skipped := 0
	for i := len(s.events) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		evt := s.events[i]
		if !filter.matches(evt) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		item := *evt
		if !includeDetails {
			item.Before, item.After = nil, nil
		}
		out = append(out, item)
	}
	return out, nil
}
