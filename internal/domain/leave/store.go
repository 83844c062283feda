package leave

import "sync"

// Store indexes requests by ID and remembers creation order.
type Store struct {
	mu     sync.RWMutex
	byID   map[string]*LeaveRequest
	order  []string
	byUser map[string][]string
}

func NewStore() *Store {
	return &Store{
		byID:   make(map[string]*LeaveRequest),
		byUser: make(map[string][]string),
	}
}
