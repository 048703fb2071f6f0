package vsm

import (
	"context"
	"sync"
)

// Dispatcher queues work posted from other goroutines until the owner
// goroutine drains it. Everything touching visual state runs on the owner.
type Dispatcher struct {
	mu     sync.Mutex
	queue  []func()
	notify chan struct{}
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{notify: make(chan struct{}, 1)}
}

// Post never blocks.
func (d *Dispatcher) Post(fn func()) {
	d.mu.Lock()
	d.queue = append(d.queue, fn)
	d.mu.Unlock()
	select {
	case d.notify <- struct{}{}:
	default:
	}
}

// Drain runs everything queued so far, including work queued by the work
// itself, and returns how many items ran.
func (d *Dispatcher) Drain() int {
	n := 0
	for {
		d.mu.Lock()
		q := d.queue
		d.queue = nil
		d.mu.Unlock()
		if len(q) == 0 {
			return n
		}
		for _, fn := range q {
			fn()
		}
		n += len(q)
	}
}

// Run drains the queue whenever work arrives until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			d.Drain()
			return ctx.Err()
		case <-d.notify:
			d.Drain()
		}
	}
}
