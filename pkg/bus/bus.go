package bus

import (
	"context"
	"sync"
	"time"
)

const defaultBufferSize = 100

type EventType string

const (
	EventReceived   EventType = "received"
	EventMapped     EventType = "mapped"
	EventDispatched EventType = "dispatched"
	EventReplied    EventType = "replied"
	EventIgnored    EventType = "ignored"
)

// Event records one lifecycle step of an inbound Chat event.
type Event struct {
	Type      EventType         `json:"type"`
	At        time.Time         `json:"at"`
	RequestID string            `json:"request_id,omitempty"`
	ChatEvent string            `json:"chat_event,omitempty"`
	Kind      string            `json:"kind,omitempty"`
	Space     string            `json:"space,omitempty"`
	Payload   map[string]string `json:"payload,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// MessageBus fans lifecycle events out to subscribers without blocking publishers.
type MessageBus struct {
	subscribers      map[uint64]chan Event
	nextSubscriberID uint64

	done      chan struct{}
	closeOnce sync.Once

	mu sync.RWMutex
}

func NewMessageBus() *MessageBus {
	return &MessageBus{
		subscribers: make(map[uint64]chan Event),
		done:        make(chan struct{}),
	}
}

// Publish delivers event to every subscriber with buffer space. A nil bus is a no-op.
func (mb *MessageBus) Publish(ctx context.Context, event Event) bool {
	if mb == nil {
		return false
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		return false
	case <-mb.done:
		return false
	default:
	}

	// Unsubscribe closes channels under the write lock.
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	for _, ch := range mb.subscribers {
		select {
		case ch <- event:
		default:
			// Drop instead of blocking the inbound path on slow subscribers.
		}
	}

	return true
}

// Subscribe returns a buffered event stream and its unsubscribe function.
// The stream closes on unsubscribe, ctx cancellation, or bus Close.
func (mb *MessageBus) Subscribe(ctx context.Context, buffer int) (<-chan Event, func()) {
	if ctx == nil {
		ctx = context.Background()
	}
	if buffer <= 0 {
		buffer = defaultBufferSize
	}

	ch := make(chan Event, buffer)

	mb.mu.Lock()
	select {
	case <-mb.done:
		mb.mu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}

	id := mb.nextSubscriberID
	mb.nextSubscriberID++
	mb.subscribers[id] = ch
	mb.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			mb.mu.Lock()
			if eventCh, ok := mb.subscribers[id]; ok {
				delete(mb.subscribers, id)
				close(eventCh)
			}
			mb.mu.Unlock()
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-mb.done:
			unsubscribe()
		}
	}()

	return ch, unsubscribe
}

func (mb *MessageBus) Close() {
	mb.closeOnce.Do(func() {
		close(mb.done)

		mb.mu.Lock()
		for id, ch := range mb.subscribers {
			close(ch)
			delete(mb.subscribers, id)
		}
		mb.mu.Unlock()
	})
}
