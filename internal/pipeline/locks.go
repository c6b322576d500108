package pipeline

import "sync"

// contactLocks provides one mutex per contact ID so merges onto the same
// contact serialize while different contacts proceed in parallel. Entries are
// reference-counted and removed once the last holder releases, so the map
// does not grow with the contact population.
type contactLocks struct {
	mu    sync.Mutex
	locks map[string]*contactLock
}

type contactLock struct {
	mu   sync.Mutex
	refs int
}

func newContactLocks() *contactLocks {
	return &contactLocks{locks: make(map[string]*contactLock)}
}

// Lock acquires the mutex for the given contact ID and returns its release
// function.
func (l *contactLocks) Lock(id string) func() {
	l.mu.Lock()
	cl, ok := l.locks[id]
	if !ok {
		cl = &contactLock{}
		l.locks[id] = cl
	}
	cl.refs++
	l.mu.Unlock()

	cl.mu.Lock()

	return func() {
		cl.mu.Unlock()
		l.mu.Lock()
		cl.refs--
		if cl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
