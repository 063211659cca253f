package sync

import (
	base "sync"
)

const (
	ringPointsPerStripe = 200
)

// StripedLock maps an unbounded key space, such as account addresses, onto a
// fixed set of mutexes. Distinct keys may share a mutex.
type StripedLock struct {
	locks []base.Mutex
	ring  *ring
}

func NewStripedLock(stripes uint) *StripedLock {
	return &StripedLock{
		locks: make([]base.Mutex, stripes),
		ring:  newRing(stripes, ringPointsPerStripe),
	}
}

// Get returns the mutex guarding key.
func (l *StripedLock) Get(key []byte) *base.Mutex {
	return &l.locks[l.ring.shard(key)]
}
