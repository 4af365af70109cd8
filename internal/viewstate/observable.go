package viewstate

import "sync"

// observable holds a screen state value and notifies subscribers on change.
// Updates must run on the dispatcher's main thread.
type observable[S any] struct {
	mu     sync.RWMutex
	state  S
	subs   map[int]func(S)
	nextID int
}

func (o *observable[S]) Snapshot() S {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Subscribe registers fn for every future state and returns a function that
// removes it.
func (o *observable[S]) Subscribe(fn func(S)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.subs == nil {
		o.subs = make(map[int]func(S))
	}
	o.nextID++
	id := o.nextID
	o.subs[id] = fn
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.subs, id)
	}
}

func (o *observable[S]) update(fn func(*S)) {
	o.mu.Lock()
	fn(&o.state)
	next := o.state
	subs := make([]func(S), 0, len(o.subs))
	for _, s := range o.subs {
		subs = append(subs, s)
	}
	o.mu.Unlock()

	for _, s := range subs {
		s(next)
	}
}
