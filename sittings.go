package learningassistant

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Sitting is the host-side state around one Session. Callers hold its lock,
// through SittingRegistry.Do, for every access to the session.
type Sitting struct {
	mu sync.Mutex

	Session  *Session
	BankID   string
	Language Language
	Logger   *LLMLogger

	advisories map[int]Advisory
	generation int
	lastUsed   time.Time
}

func NewSitting(s *Session, bankID string, lang Language, logger *LLMLogger) *Sitting {
	return &Sitting{
		Session:    s,
		BankID:     bankID,
		Language:   lang,
		Logger:     logger,
		advisories: make(map[int]Advisory),
		lastUsed:   time.Now(),
	}
}

// SetAdvisory stores the cross-check result for question index i.
func (st *Sitting) SetAdvisory(i int, a Advisory) {
	st.advisories[i] = a
	st.Logger.LogAdvisory(i+1, a)
}

// Advisory returns the cross-check result for question index i, if it has
// arrived.
func (st *Sitting) Advisory(i int) (Advisory, bool) {
	a, ok := st.advisories[i]
	return a, ok
}

// Reset restarts the session and drops every stored advisory.
func (st *Sitting) Reset() {
	st.Session.Reset()
	st.advisories = make(map[int]Advisory)
	st.generation++
	st.Logger.Logf("Sitting reset (generation %d)\n", st.generation)
}

// SittingRegistry holds the live sittings of a process, oldest evicted first
// once the limit is reached.
type SittingRegistry struct {
	mu       sync.RWMutex
	sittings map[string]*Sitting
	queue    []string // insertion order of sitting IDs
	max      int
}

// NewSittingRegistry creates a registry holding at most max sittings. Zero
// means unlimited.
func NewSittingRegistry(max int) *SittingRegistry {
	return &SittingRegistry{
		sittings: make(map[string]*Sitting),
		queue:    make([]string, 0),
		max:      max,
	}
}

// Add registers st under its session ID.
func (r *SittingRegistry) Add(st *Sitting) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := st.Session.ID()
	if _, ok := r.sittings[id]; !ok {
		r.queue = append(r.queue, id)
	}
	r.sittings[id] = st

	for r.max > 0 && len(r.queue) > r.max {
		oldest := r.queue[0]
		r.queue = r.queue[1:]
		if evicted, ok := r.sittings[oldest]; ok {
			delete(r.sittings, oldest)
			evicted.Logger.Close()
			log.Printf("Evicted sitting %s", oldest)
		}
	}
}

// Get returns the sitting with the given ID.
func (r *SittingRegistry) Get(id string) (*Sitting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.sittings[id]
	if !ok {
		return nil, fmt.Errorf("sitting %s: %w", id, ErrNotFound)
	}
	return st, nil
}

// Do runs fn with the sitting locked.
func (r *SittingRegistry) Do(id string, fn func(*Sitting) error) error {
	st, err := r.Get(id)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.lastUsed = time.Now()
	return fn(st)
}

// Remove removes a sitting and closes its log.
func (r *SittingRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.sittings[id]
	if !ok {
		return
	}
	delete(r.sittings, id)
	for i, qid := range r.queue {
		if qid == id {
			r.queue = append(r.queue[:i], r.queue[i+1:]...)
			break
		}
	}
	st.Logger.Close()
}

// Size returns the number of live sittings.
func (r *SittingRegistry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sittings)
}

// Close closes the logs of all sittings.
func (r *SittingRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, st := range r.sittings {
		st.Logger.Close()
		delete(r.sittings, id)
	}
	r.queue = r.queue[:0]
}

// Prune removes sittings idle for longer than maxIdle and returns how many
// were removed.
func (r *SittingRegistry) Prune(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	r.mu.RLock()
	var stale []string
	for id, st := range r.sittings {
		st.mu.Lock()
		idle := st.lastUsed.Before(cutoff)
		st.mu.Unlock()
		if idle {
			stale = append(stale, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range stale {
		r.Remove(id)
	}
	return len(stale)
}

// Generation changes every time the sitting is reset, so late advisories for
// a discarded sequence can be recognized.
func (st *Sitting) Generation() int {
	return st.generation
}
