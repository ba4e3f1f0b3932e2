package api

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/investio/investio/internal/gate"
)

// VisitStore holds per-visit state keyed by a hashed cookie token. State is
// ephemeral: it lives in memory only and disappears when the visit expires
// or the process stops.
type VisitStore struct {
	visits      map[string]*visitEntry
	mu          sync.RWMutex
	cleanTicker *time.Ticker
	stopChan    chan struct{}
}

type visitEntry struct {
	state     gate.VisitState
	expiresAt time.Time
	createdAt time.Time
	duration  time.Duration
}

func visitHash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// NewVisitStore creates a visit store with a background cleanup worker.
func NewVisitStore() *VisitStore {
	store := &VisitStore{
		visits:   make(map[string]*visitEntry),
		stopChan: make(chan struct{}),
	}
	store.cleanTicker = time.NewTicker(5 * time.Minute)
	go store.backgroundWorker()
	return store
}

func (s *VisitStore) backgroundWorker() {
	for {
		select {
		case <-s.cleanTicker.C:
			s.cleanup()
		case <-s.stopChan:
			return
		}
	}
}

// Create registers a new empty visit for the token.
func (s *VisitStore) Create(token string, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.visits[visitHash(token)] = &visitEntry{
		expiresAt: now.Add(duration),
		createdAt: now,
		duration:  duration,
	}
}

// Lookup returns a copy of the visit state, extending the visit (sliding
// expiration) when it is still valid.
func (s *VisitStore) Lookup(token string) (gate.VisitState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.visits[visitHash(token)]
	if !exists {
		return gate.VisitState{}, false
	}
	now := time.Now()
	if now.After(entry.expiresAt) {
		return gate.VisitState{}, false
	}
	if entry.duration > 0 {
		entry.expiresAt = now.Add(entry.duration)
	}
	return entry.state, true
}

// Save replaces the visit state for an existing valid visit.
func (s *VisitStore) Save(token string, state gate.VisitState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.visits[visitHash(token)]
	if !exists || time.Now().After(entry.expiresAt) {
		return
	}
	entry.state = state
}

// Delete removes a visit (explicit logout).
func (s *VisitStore) Delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.visits, visitHash(token))
}

// Close stops the background worker.
func (s *VisitStore) Close() {
	s.cleanTicker.Stop()
	close(s.stopChan)
}

func (s *VisitStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, entry := range s.visits {
		if now.After(entry.expiresAt) {
			delete(s.visits, key)
			removed++
		}
	}
	if removed > 0 {
		log.Debug().Int("removed", removed).Msg("Cleaned up expired visits")
	}
}
