package store

import (
	"sync"

	"catalog-cli/internal/model"
)

// Hub fans catalog snapshots out to listeners. Every subscriber has its own
// queue and goroutine, so a slow listener never blocks Publish and each
// listener sees every published snapshot exactly once, in publish order.
type Hub struct {
	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
}

type subscriber struct {
	fn Listener

	mu    sync.Mutex
	queue []model.Catalog
	wake  chan struct{}

	stopOnce sync.Once
	stop     chan struct{}
}

func NewHub() *Hub {
	return &Hub{subs: map[*subscriber]struct{}{}}
}

// Subscribe registers fn. If initial is given, those snapshots are delivered
// to fn (and only fn) before anything published later.
// The returned func stops delivery; it is safe to call more than once and
// from inside fn.
func (h *Hub) Subscribe(fn Listener, initial ...model.Catalog) (unsubscribe func()) {
	s := &subscriber{
		fn:    fn,
		wake:  make(chan struct{}, 1),
		stop:  make(chan struct{}),
		queue: append([]model.Catalog(nil), initial...),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return func() {}
	}
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	go s.run()
	if len(initial) > 0 {
		s.signal()
	}

	return func() {
		h.mu.Lock()
		delete(h.subs, s)
		h.mu.Unlock()
		s.halt()
	}
}

// Publish queues c for every current subscriber.
func (h *Hub) Publish(c model.Catalog) {
	c = c.Clone()
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for s := range h.subs {
		s.push(c)
	}
}

// Len returns the number of active subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close stops every subscriber. Later Publish calls are dropped.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = map[*subscriber]struct{}{}
	h.closed = true
	h.mu.Unlock()
	for s := range subs {
		s.halt()
	}
}

func (s *subscriber) push(c model.Catalog) {
	s.mu.Lock()
	s.queue = append(s.queue, c)
	s.mu.Unlock()
	s.signal()
}

func (s *subscriber) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) halt() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *subscriber) run() {
	for {
		select {
		case <-s.stop:
			return
		case <-s.wake:
		}
		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			c := s.queue[0]
			s.queue[0] = nil
			s.queue = s.queue[1:]
			s.mu.Unlock()

			select {
			case <-s.stop:
				return
			default:
			}
			s.fn(c)
		}
	}
}
