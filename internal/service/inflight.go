package service

import (
	"sync"
)

type inflightKey struct {
	op     string
	target string
}

// inflight rejects a second submission of the same operation on the same target while the first
// is still running.
type inflight struct {
	mu     sync.Mutex
	active map[inflightKey]struct{}
}

func newInflight() *inflight {
	return &inflight{active: make(map[inflightKey]struct{})}
}

// acquire marks op on target as running. The returned release must be called when it finishes.
func (f *inflight) acquire(op, target string) (func(), error) {
	k := inflightKey{op: op, target: target}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.active[k]; ok {
		return nil, inFlightError(op, target)
	}
	f.active[k] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.active, k)
			f.mu.Unlock()
		})
	}, nil
}
