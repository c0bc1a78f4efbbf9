package heating

import "sync"

// keyedMutex hands out one mutex per DeviceID. Entries are reference
// counted and removed when the last holder unlocks, so the map only
// contains devices with a writer in flight.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[DeviceID]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[DeviceID]*refMutex)}
}

// Lock blocks until id is held and returns the matching unlock func.
func (k *keyedMutex) Lock(id DeviceID) (unlock func()) {
	k.mu.Lock()
	m, ok := k.locks[id]
	if !ok {
		m = &refMutex{}
		k.locks[id] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()

	return func() {
		m.Unlock()

		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}

// held returns the number of ids with a holder or waiter.
func (k *keyedMutex) held() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
