package refinement

import (
	"strings"
	"sync"

	"focalai/internal/debate"
)

type EventType string

const (
	EventStarted   EventType = "started"
	EventEntry     EventType = "entry"
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
)

// Event is one live update of a refinement run.
type Event struct {
	Type       EventType     `json:"type"`
	IdeaID     string        `json:"idea_id"`
	UserID     string        `json:"user_id"`
	Iteration  int           `json:"iteration"`
	Entry      *debate.Entry `json:"entry,omitempty"`
	DocumentID string        `json:"document_id,omitempty"`
	Error      string        `json:"error,omitempty"`
}

const subscriberBuffer = 64

// Broadcaster fans events out to the subscribers of an idea. Slow
// subscribers lose their oldest pending events.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[string]map[chan Event]struct{})}
}

// Subscribe registers a listener for ideaID. The returned cancel func
// unregisters it and closes the channel; it is safe to call twice.
func (b *Broadcaster) Subscribe(ideaID string) (<-chan Event, func()) {
	ideaID = strings.TrimSpace(ideaID)
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	set, ok := b.subs[ideaID]
	if !ok {
		set = make(map[chan Event]struct{})
		b.subs[ideaID] = set
	}
	set[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if set, ok := b.subs[ideaID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(b.subs, ideaID)
				}
			}
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Broadcaster) Publish(ev Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[strings.TrimSpace(ev.IdeaID)] {
		pushEvent(ch, ev)
	}
}

// Subscribers reports the live subscriber count for ideaID.
func (b *Broadcaster) Subscribers(ideaID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[strings.TrimSpace(ideaID)])
}

func pushEvent(out chan Event, ev Event) {
	select {
	case out <- ev:
		return
	default:
	}
	select {
	case <-out:
	default:
	}
	select {
	case out <- ev:
	default:
	}
}
