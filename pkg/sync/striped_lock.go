package sync

import (
	base "sync"
)

const replicasPerStripe = 200

// StripedLock maps an unbounded key space, such as collateral pool addresses,
// onto a fixed set of mutexes. Two keys may share a stripe, so holders must
// not acquire a second key while holding one.
type StripedLock struct {
	locks []base.Mutex
	ring  *ring
}

// NewStripedLock returns a new StripedLock with a static number of stripes.
func NewStripedLock(stripes uint) *StripedLock {
	if stripes == 0 {
		stripes = 1
	}

	return &StripedLock{
		locks: make([]base.Mutex, stripes),
		ring:  newRing(stripes, replicasPerStripe),
	}
}

// Get gets the lock for a key
func (l *StripedLock) Get(key []byte) *base.Mutex {
	return &l.locks[l.ring.stripe(key)]
}

// Lock acquires the lock for key and returns its release function.
func (l *StripedLock) Lock(key []byte) func() {
	mu := l.Get(key)
	mu.Lock()
	return mu.Unlock
}
