package scanner

import (
	"sync"

	"github.com/raysh454/spectra/internal/model"
)

// Event is published after every update the runner persists.
type Event struct {
	ScanID   model.ScanID `json:"scan_id"`
	Status   model.Status `json:"status"`
	Progress float64      `json:"progress"`
	Stage    string       `json:"stage"`
}

// Broker fans runner events out to per-scan subscribers. Sends never block:
// a subscriber whose buffer is full misses events. Subscribers of a scan are
// closed once its complete event has been published.
type Broker struct {
	buffer int

	mu   sync.Mutex
	subs map[model.ScanID]map[chan Event]struct{}
}

// NewBroker returns a broker whose subscriber channels hold buffer events.
func NewBroker(buffer int) *Broker {
	if buffer < 1 {
		buffer = 16
	}
	return &Broker{buffer: buffer, subs: make(map[model.ScanID]map[chan Event]struct{})}
}

// Subscribe returns a channel of events for id and a function that cancels
// the subscription. Cancel is safe to call more than once and after the
// channel has been closed by the broker.
func (b *Broker) Subscribe(id model.ScanID) (<-chan Event, func()) {
	ch := make(chan Event, b.buffer)

	b.mu.Lock()
	set, ok := b.subs[id]
	if !ok {
		set = make(map[chan Event]struct{})
		b.subs[id] = set
	}
	set[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.remove(id, ch)
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber of ev.ScanID.
func (b *Broker) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs[ev.ScanID] {
		// Non-blocking send; drop if buffer is full.
		select {
		case ch <- ev:
		default:
		}
	}

	if ev.Status == model.StatusComplete {
		for ch := range b.subs[ev.ScanID] {
			b.remove(ev.ScanID, ch)
		}
	}
}

// Subscribers returns the number of open subscriptions for id.
func (b *Broker) Subscribers(id model.ScanID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[id])
}

// remove closes ch if it is still registered. Callers hold b.mu.
func (b *Broker) remove(id model.ScanID, ch chan Event) {
	set, ok := b.subs[id]
	if !ok {
		return
	}
	if _, ok := set[ch]; !ok {
		return
	}
	delete(set, ch)
	close(ch)
	if len(set) == 0 {
		delete(b.subs, id)
	}
}
