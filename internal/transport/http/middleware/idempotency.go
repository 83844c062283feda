package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"leaveflow/internal/transport/http/api"
)

const IdempotencyKeyHeader = "Idempotency-Key"

var (
	ErrIdempotencyConflict = errors.New("idempotency key conflicts with existing request")
	ErrIdempotencyInFlight = errors.New("a request with this idempotency key is still in progress")
)

type storedResponse struct {
	hash        string
	pending     bool
	status      int
	contentType string
	body        []byte
	expires     time.Time
}

// IdempotencyStore remembers the response to a keyed write for ttl.
type IdempotencyStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]storedResponse
}

func NewIdempotencyStore(ttl time.Duration, now func() time.Time) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if now == nil {
		now = time.Now
	}
	return &IdempotencyStore{ttl: ttl, now: now, entries: make(map[string]storedResponse)}
}

func RequestHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func idempotencyID(scope, key string) string {
	return scope + "\x00" + key
}

// Check returns the stored response for scope+key. When there is none the key
// is reserved for the caller, which must then Save or Release it. A stored
// response for a different payload is a conflict; a reservation still held by
// another request is ErrIdempotencyInFlight.
func (s *IdempotencyStore) Check(scope, key, requestHash string) (storedResponse, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := idempotencyID(scope, key)
	now := s.now()
	entry, ok := s.entries[id]
	if ok && now.After(entry.expires) {
		delete(s.entries, id)
		ok = false
	}
	if !ok {
		s.entries[id] = storedResponse{hash: requestHash, pending: true, expires: now.Add(s.ttl)}
		return storedResponse{}, false, nil
	}
	if entry.hash != requestHash {
		return storedResponse{}, false, ErrIdempotencyConflict
	}
	if entry.pending {
		return storedResponse{}, false, ErrIdempotencyInFlight
	}
	return entry, true, nil
}

// Save stores the response for scope+key and drops expired entries.
func (s *IdempotencyStore) Save(scope, key string, resp storedResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweepLocked(now)
	id := idempotencyID(scope, key)
	if existing, ok := s.entries[id]; ok && existing.hash != resp.hash {
		return ErrIdempotencyConflict
	}
	resp.pending = false
	resp.expires = now.Add(s.ttl)
	s.entries[id] = resp
	return nil
}

// Release drops a reservation that never got a response.
func (s *IdempotencyStore) Release(scope, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := idempotencyID(scope, key)
	if entry, ok := s.entries[id]; ok && entry.pending {
		delete(s.entries, id)
	}
}

func (s *IdempotencyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *IdempotencyStore) sweepLocked(now time.Time) {
	for id, entry := range s.entries {
		if now.After(entry.expires) {
			delete(s.entries, id)
		}
	}
}

type captureWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (c *captureWriter) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(p []byte) (int, error) {
	c.body.Write(p)
	return c.ResponseWriter.Write(p)
}

// Idempotency replays the stored response when a POST repeats its
// Idempotency-Key with the same body. Responses of 5xx are not stored.
func Idempotency(store *IdempotencyStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
			if store == nil || key == "" || r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			requestID := GetRequestID(r.Context())

			raw, err := io.ReadAll(r.Body)
			if err != nil {
				api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", requestID)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(raw))

			scope := r.URL.Path
			if actor, ok := GetActor(r.Context()); ok {
				scope = actor.ID + " " + scope
			}
			hash := RequestHash(raw)

			cached, found, err := store.Check(scope, key, hash)
			switch {
			case errors.Is(err, ErrIdempotencyInFlight):
				api.Fail(w, http.StatusConflict, "idempotency_in_flight", err.Error(), requestID)
				return
			case err != nil:
				api.Fail(w, http.StatusConflict, "idempotency_conflict", err.Error(), requestID)
				return
			}
			if found {
				w.Header().Set("Content-Type", cached.contentType)
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(cached.status)
				_, _ = w.Write(cached.body)
				return
			}

			capture := &captureWriter{ResponseWriter: w, status: http.StatusOK}
			completed := false
			defer func() {
				if !completed {
					store.Release(scope, key)
				}
			}()
			next.ServeHTTP(capture, r)
			if capture.status >= http.StatusInternalServerError {
				return
			}
			completed = true
			_ = store.Save(scope, key, storedResponse{
				hash:        hash,
				status:      capture.status,
				contentType: w.Header().Get("Content-Type"),
				body:        capture.body.Bytes(),
			})
		})
	}
}
