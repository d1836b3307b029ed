package subscription

import "sync"

// userLocks serializes balance-affecting work per user. A webhook delivery
// racing a usage read's rollover for the same user would otherwise interleave
// read-modify-write sequences and lose updates.
type userLocks struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

// acquire locks the given user's mutex and returns the unlock func.
func (ul *userLocks) acquire(userID uint) func() {
	ul.mu.Lock()
	if ul.locks == nil {
		ul.locks = make(map[uint]*sync.Mutex)
	}
	l, ok := ul.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		ul.locks[userID] = l
	}
	ul.mu.Unlock()

	l.Lock()
	return l.Unlock
}
