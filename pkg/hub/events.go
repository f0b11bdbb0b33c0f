package hub

import "sync"

// emitter is an ordered list of subscribers of one event.
type emitter[F any] struct {
	mu   sync.Mutex
	next int
	subs []subscription[F]
}

type subscription[F any] struct {
	id int
	fn F
}

// add subscribes fn and returns its unsubscribe func.
func (e *emitter[F]) add(fn F) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.next
	e.next++
	e.subs = append(e.subs, subscription[F]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			for i, s := range e.subs {
				if s.id == id {
					e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// each calls call with every subscriber, outside the lock.
func (e *emitter[F]) each(call func(F)) {
	e.mu.Lock()
	fns := make([]F, len(e.subs))
	for i, s := range e.subs {
		fns[i] = s.fn
	}
	e.mu.Unlock()

	for _, fn := range fns {
		call(fn)
	}
}
