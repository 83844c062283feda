package notifications

import (
	"sync"
	"time"
)

// Store keeps each user's inbox in memory, oldest first.
type Store struct {
	mu    sync.RWMutex
	inbox map[string][]*Notification
	byID  map[string]*Notification
	now   func() time.Time
}

func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		inbox: make(map[string][]*Notification),
		byID:  make(map[string]*Notification),
		now:   now,
	}
}
