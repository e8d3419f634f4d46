package app

import (
	"sync"

	"quizforge-service/internal/domain"
)

// AttemptFeed fans newly recorded attempts out to per-owner subscribers.
// Delivery is best effort: when a subscriber's buffer is full the oldest
// pending event is dropped so a slow consumer never blocks the writer.
type AttemptFeed struct {
	mu          sync.Mutex
	subscribers map[string]map[chan domain.AttemptEvent]struct{}
}

func NewAttemptFeed() *AttemptFeed {
	return &AttemptFeed{
		subscribers: make(map[string]map[chan domain.AttemptEvent]struct{}),
	}
}

// Subscribe registers a listener for the owner's attempt events. The caller
// must invoke the returned cancel function exactly once.
func (f *AttemptFeed) Subscribe(ownerID string) (<-chan domain.AttemptEvent, func()) {
	ch := make(chan domain.AttemptEvent, 8)

	f.mu.Lock()
	set, ok := f.subscribers[ownerID]
	if !ok {
		set = make(map[chan domain.AttemptEvent]struct{})
		f.subscribers[ownerID] = set
	}
	set[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if set, ok := f.subscribers[ownerID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
				if len(set) == 0 {
					delete(f.subscribers, ownerID)
				}
			}
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber of the owner.
func (f *AttemptFeed) Publish(ownerID string, event domain.AttemptEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers[ownerID] {
		select {
		case ch <- event:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}
