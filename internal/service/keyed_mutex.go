package service

import "sync"

// keyedMutex serializes work per key without holding a lock per idle key
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refLock)}
}

// Lock blocks until key is free and returns the matching unlock
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()

	return func() {
		l.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// writeQueue orders background writes per key: each write waits for the one
// queued before it to finish.
type writeQueue struct {
	mu    sync.Mutex
	tails map[string]chan struct{}
}

func newWriteQueue() *writeQueue {
	return &writeQueue{tails: make(map[string]chan struct{})}
}

// enqueue reserves the next slot for key. prev is nil when nothing is queued
// ahead; done must be called once the write has settled.
func (q *writeQueue) enqueue(key string) (prev <-chan struct{}, done func()) {
	mine := make(chan struct{})

	q.mu.Lock()
	if tail, ok := q.tails[key]; ok {
		prev = tail
	}
	q.tails[key] = mine
	q.mu.Unlock()

	return prev, func() {
		q.mu.Lock()
		if q.tails[key] == mine {
			delete(q.tails, key)
		}
		q.mu.Unlock()
		close(mine)
	}
}
