package signal

import "sync"

// Well-known event names. Both carry no payload; the semantics are
// "something changed, re-fetch", not a diff.
const (
	TradeCreated = "tradeCreated"
	TradeClosed  = "tradeClosed"
)

// Bus is a lightweight in-process broadcast channel. Any component may emit
// or subscribe to a named event. Delivery is non-blocking: every currently
// subscribed channel receives the signal (coalesced if one is already
// pending), and subscribers that are not mounted simply miss it. There is
// no acknowledgment and no retry.
type Bus struct {
	mu   sync.Mutex
	subs map[string][]chan struct{}
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]chan struct{})}
}

// Subscribe registers interest in an event. It returns the receive channel
// and an unsubscribe func. The unsubscribe func is idempotent and must be
// called on every exit path of the subscriber to avoid stale channels.
func (b *Bus) Subscribe(event string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	b.mu.Lock()
	b.subs[event] = append(b.subs[event], ch)
	b.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			list := b.subs[event]
			for i, c := range list {
				if c == ch {
					b.subs[event] = append(list[:i], list[i+1:]...)
					break
				}
			}
		})
	}

	return ch, unsubscribe
}

// Emit broadcasts the event to all current subscribers in subscription
// order. A subscriber with a signal already pending is not blocked on;
// the pending signal already means "re-fetch".
func (b *Bus) Emit(event string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[event] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
