package session

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/baalimago/go_away_boilerplate/pkg/ancli"
	"github.com/baalimago/go_away_boilerplate/pkg/misc"
	"github.com/google/uuid"
)

// Store keeps the sessions of all connected browsers, in memory only.
type Store struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	responder Responder
	debug     bool
}

func NewStore(responder Responder) *Store {
	return &Store{
		sessions:  make(map[string]*Session),
		responder: responder,
		debug:     misc.Truthy(os.Getenv("DEBUG")) || misc.Truthy(os.Getenv("DEBUG_SESSION")),
	}
}

// GetOrCreate returns the session with id, or a new session if id is unknown.
// The bool is true if the session was created. Looking up a session counts as
// activity, an open page keeps its session alive.
func (st *Store) GetOrCreate(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if s, exists := st.sessions[id]; exists && id != "" {
		s.touch()
		return s, false
	}
	s := New(uuid.NewString(), st.responder)
	st.sessions[s.ID] = s
	if st.debug {
		ancli.PrintOK(fmt.Sprintf("created session: '%v'\n", s.ID))
	}
	return s, true
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Prune sessions which have been idle since before cutoff. Sessions with a reply
// in progress are kept. Returns amount of pruned sessions.
func (st *Store) Prune(cutoff time.Time) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	pruned := 0
	for id, s := range st.sessions {
		if s.idleSince(cutoff) {
			delete(st.sessions, id)
			pruned++
		}
	}
	return pruned
}

// Janitor prunes sessions idle for longer than maxIdle, every interval, until ctx is done.
func (st *Store) Janitor(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			pruned := st.Prune(now.Add(-maxIdle))
			if st.debug && pruned > 0 {
				ancli.PrintOK(fmt.Sprintf("pruned %v idle sessions\n", pruned))
			}
		}
	}
}
