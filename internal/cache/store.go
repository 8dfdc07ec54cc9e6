package cache

import (
	"sync"
	"time"

	"github.com/dimitrmo/cygaz/internal/petrol"
)

// Store holds the most recent successful snapshot per petroleum type.
//
// Each type gets its own slot with its own lock, so operations on
// different types never contend. The refresh coordinator is the only
// writer; readers get the current PriceList value, which is never mutated
// after Put.
type Store struct {
	slots map[petrol.Type]*slot
}

type slot struct {
	mu          sync.RWMutex
	list        *petrol.PriceList
	lastAttempt time.Time
	refreshing  bool
}

// NewStore allocates a slot per known petroleum type. The key set is fixed
// for the process lifetime.
func NewStore() *Store {
	slots := make(map[petrol.Type]*slot, len(petrol.All()))
	for _, t := range petrol.All() {
		slots[t] = &slot{}
	}
	return &Store{slots: slots}
}

func (s *Store) slot(t petrol.Type) *slot {
	sl, ok := s.slots[t]
	if !ok {
		panic("cache: unknown petroleum type")
	}
	return sl
}

// Get returns the current snapshot for t, or ok=false before the first
// successful refresh. It never blocks on an in-flight refresh.
func (s *Store) Get(t petrol.Type) (petrol.PriceList, bool) {
	sl := s.slot(t)
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	if sl.list == nil {
		return petrol.PriceList{}, false
	}
	return *sl.list, true
}

// Put replaces the snapshot for t wholesale. Visible to all subsequent
// Get calls immediately.
func (s *Store) Put(t petrol.Type, list petrol.PriceList) {
	sl := s.slot(t)
	sl.mu.Lock()
	defer sl.mu.Unlock()
	sl.list = &list
	sl.lastAttempt = time.Now()
}

// TryBeginRefresh atomically claims the refresh-in-progress flag for t.
// It returns false if a refresh is already running; the caller must not
// start a second one.
func (s *Store) TryBeginRefresh(t petrol.Type) bool {
	sl := s.slot(t)
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.refreshing {
		return false
	}
	sl.refreshing = true
	sl.lastAttempt = time.Now()
	return true
}

// EndRefresh releases the flag claimed by TryBeginRefresh. Must be called
// exactly once per successful claim, on success and failure paths alike.
func (s *Store) EndRefresh(t petrol.Type) {
	sl := s.slot(t)
	sl.mu.Lock()
	defer sl.mu.Unlock()
	sl.refreshing = false
}

// Refreshing reports whether a refresh is currently in flight for t.
func (s *Store) Refreshing(t petrol.Type) bool {
	sl := s.slot(t)
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return sl.refreshing
}

// LastAttempt returns when a refresh for t last started or completed,
// zero if never attempted.
func (s *Store) LastAttempt(t petrol.Type) time.Time {
	sl := s.slot(t)
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return sl.lastAttempt
}
