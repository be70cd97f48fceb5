package coordinator

import (
	"sync"

	domain "github.com/oshokin/sos-button/internal/domain/emergency"
)

// hub fans updates out to subscribers without ever blocking the publisher.
type hub struct {
	// subscribers by id.
	subscribers map[uint64]chan domain.Update
	// nextID is the id of the next subscriber.
	nextID uint64
	closed  bool
	mu      sync.Mutex
}

func newHub() *hub {
	return &hub{
		subscribers: make(map[uint64]chan domain.Update),
	}
}

// subscribe registers a subscriber. The returned function unsubscribes and
// closes the channel; it is safe to call more than once.
func (h *hub) subscribe(buffer int) (<-chan domain.Update, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan domain.Update, max(buffer, 1))

	if h.closed {
		close(ch)

		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	h.subscribers[id] = ch

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		if sub, ok := h.subscribers[id]; ok {
			delete(h.subscribers, id)
			close(sub)
		}
	}
}

// publish delivers u to every subscriber with room in its buffer.
// It reports how many subscribers missed the update.
func (h *hub) publish(u domain.Update) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	missed := 0

	for _, ch := range h.subscribers {
		select {
		case ch <- u:
		default:
			missed++
		}
	}

	return missed
}

// close closes every subscriber channel. Later subscribers get a closed channel.
func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	h.closed = true

	for id, ch := range h.subscribers {
		delete(h.subscribers, id)
		close(ch)
	}
}

// size returns the number of subscribers.
func (h *hub) size() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.subscribers)
}
