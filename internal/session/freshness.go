// Package session provides the in-memory freshness bookkeeping shared by all
// request handlers.
package session

import "sync"

// Freshness maps a user id to the last-known claims stamp (unix milliseconds)
// for that user within this process. A token carrying an older stamp is
// considered stale and gets re-validated against the user store; a deleted
// entry signals a sign-out to other sessions of the same user.
//
// The map is unreplicated and lost on restart, so sessions elsewhere are not
// invalidated immediately after a restart. That is acceptable: the refresh
// interval bounds how long a stale claim set can survive. Updates are plain
// key overwrites with last-writer-wins semantics; a lost race costs at most
// one redundant store fetch.
type Freshness struct {
	mu sync.RWMutex
	lm map[int64]int64
}

// NewFreshness creates an empty freshness map.
func NewFreshness() *Freshness {
	return &Freshness{lm: make(map[int64]int64)}
}

// Get returns the stamp recorded for uid, or 0 if there is none.
func (f *Freshness) Get(uid int64) int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lm[uid]
}

// Set records the stamp for uid, overwriting any previous value.
func (f *Freshness) Set(uid, lm int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lm[uid] = lm
}

// Delete drops the entry for uid. Deleting a missing entry is a no-op.
func (f *Freshness) Delete(uid int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.lm, uid)
}
