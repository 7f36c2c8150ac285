package memory

import (
	"sync"
	"time"

	"civic-chat-be/pkg/router"

	"github.com/patrickmn/go-cache"
)

// SessionCache keeps per-session retrieval state with an idle TTL and a
// hard session cap. go-cache handles expiry; the capacity sweep evicts
// the least-recently-touched entries when the cap is exceeded.
type SessionCache struct {
	cache       *cache.Cache
	maxSessions int
	idleTTL     time.Duration
	mu          sync.Mutex
}

func NewSessionCache(idleTTL time.Duration, maxSessions int) *SessionCache {
	if idleTTL <= 0 {
		idleTTL = time.Hour
	}
	if maxSessions <= 0 {
		maxSessions = 100
	}
	c := cache.New(idleTTL, 10*time.Minute)
	return &SessionCache{
		cache:       c,
		maxSessions: maxSessions,
		idleTTL:     idleTTL,
	}
}

// Get returns a copy of the entry and refreshes its idle clock. The copy
// keeps callers from mutating cached state without going through Put.
func (s *SessionCache) Get(sessionID string) (*router.CacheEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	x, found := s.cache.Get(sessionID)
	if !found {
		return nil, false
	}
	entry := x.(*router.CacheEntry)
	entry.LastTouchedAt = time.Now()
	s.cache.Set(sessionID, entry, s.idleTTL)

	snapshot := *entry
	return &snapshot, true
}

// Put merges the update into the existing entry field by field: a side
// that did not run this turn keeps its previous artifacts.
func (s *SessionCache) Put(sessionID string, update *router.CacheEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := &router.CacheEntry{SessionID: sessionID}
	if x, found := s.cache.Get(sessionID); found {
		existing := x.(*router.CacheEntry)
		snapshot := *existing
		entry = &snapshot
	}

	if update.Question != "" {
		entry.Question = update.Question
	}
	if update.Answer != "" {
		entry.Answer = update.Answer
	}
	if update.Mode != "" {
		entry.Mode = update.Mode
	}
	if update.Structured != nil {
		entry.Structured = update.Structured
	}
	if update.Unstructured != nil {
		entry.Unstructured = update.Unstructured
	}
	entry.LastTouchedAt = time.Now()

	s.cache.Set(sessionID, entry, s.idleTTL)
	s.sweepLocked()
}

// Delete drops the session's entry immediately.
func (s *SessionCache) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Delete(sessionID)
}

// Sweep enforces the session cap. go-cache already drops idle-expired
// entries; this removes the least-recently-touched live ones until the
// cache fits. Safe to call any number of times.
func (s *SessionCache) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
}

func (s *SessionCache) sweepLocked() {
	items := s.cache.Items()
	excess := len(items) - s.maxSessions
	if excess <= 0 {
		return
	}

	type aged struct {
		key     string
		touched time.Time
	}
	entries := make([]aged, 0, len(items))
	for key, item := range items {
		entry := item.Object.(*router.CacheEntry)
		entries = append(entries, aged{key: key, touched: entry.LastTouchedAt})
	}

	// Partial selection: evict the oldest `excess` entries
	for i := 0; i < excess; i++ {
		oldest := 0
		for j := 1; j < len(entries); j++ {
			if entries[j].touched.Before(entries[oldest].touched) {
				oldest = j
			}
		}
		s.cache.Delete(entries[oldest].key)
		entries = append(entries[:oldest], entries[oldest+1:]...)
	}
}

// Len reports the number of live sessions.
func (s *SessionCache) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.ItemCount()
}
