package game

import (
	"sync"

	"suquid-trivia-server/internal/domain"
)

// EventType tags the engine events streamed to the operator surface.
type EventType string

const (
	EventPlayerJoined  EventType = "player_joined"
	EventPlayerLeft    EventType = "player_left"
	EventGameStarted   EventType = "game_started"
	EventQuestion      EventType = "question"
	EventRoundResolved EventType = "round_resolved"
	EventGameOver      EventType = "game_over"
)

// Event is one engine occurrence, shaped for JSON delivery to observers.
// Only the fields relevant to the event type are populated.
type Event struct {
	Type       EventType              `json:"type"`
	Username   string                 `json:"username,omitempty"`
	Round      int                    `json:"round,omitempty"`
	Rounds     int                    `json:"rounds,omitempty"`
	Players    []string               `json:"players,omitempty"`
	Question   *domain.Question       `json:"question,omitempty"`
	Scoreboard []domain.ScoreboardRow `json:"scoreboard,omitempty"`
	Reason     string                 `json:"reason,omitempty"`
}

// EventBus fans engine events out to subscribers. Publish never blocks: when
// a subscriber's buffer is full the oldest pending event is dropped so slow
// observers cannot stall the engine.
type EventBus struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Event]struct{})}
}

// Subscribe registers an observer. The caller must invoke the returned
// cancel function to avoid leaks; cancel closes the channel.
func (b *EventBus) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers ev to all current subscribers.
func (b *EventBus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}
