// Package event defines the engine's outbound events. The engine only emits
// them; delivery to players is somebody else's job.
package event

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Kind identifies an emitted engine event.
type Kind string

// Event kinds.
const (
	KindWinnerRecorded Kind = "winner_recorded"
	KindRoundAdvanced  Kind = "round_advanced"
)

// Event is one engine event.
type Event struct {
	Kind    Kind
	MatchID int64
	Round   int
	Payload any
	At      time.Time
}

// WinnerRecordedPayload describes a prize awarded to a card.
type WinnerRecordedPayload struct {
	WinnerID  int64
	PrizeID   int64
	PrizeName string
	CardID    int64
	AccountID int64
}

// RoundAdvancedPayload describes a match moving past a round.
type RoundAdvancedPayload struct {
	PreviousRound int
	// Finished is set when the last round ended and the match closed.
	Finished bool
}

// Publisher receives events after the state change that caused them has
// been committed.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Nop drops every event.
type Nop struct{}

// Publish discards ev.
func (Nop) Publish(context.Context, Event) {}

// LogPublisher writes events to the global zerolog logger.
type LogPublisher struct{}

// Publish logs ev at info level with its payload fields.
func (LogPublisher) Publish(_ context.Context, ev Event) {
	entry := log.Info().
		Str("event", string(ev.Kind)).
		Int64("match_id", ev.MatchID).
		Int("round", ev.Round)

	switch p := ev.Payload.(type) {
	case WinnerRecordedPayload:
		entry = entry.
			Int64("prize_id", p.PrizeID).
			Str("prize", p.PrizeName).
			Int64("card_id", p.CardID).
			Int64("account_id", p.AccountID)
	case RoundAdvancedPayload:
		entry = entry.
			Int("previous_round", p.PreviousRound).
			Bool("finished", p.Finished)
	}

	entry.Msg("Engine event")
}

// Buffer collects events in memory until drained.
type Buffer struct {
	mu     sync.Mutex
	events []Event
}

// NewBuffer creates an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Publish appends ev to the buffer.
func (b *Buffer) Publish(_ context.Context, ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
}

// Drain returns the buffered events in publish order and empties the buffer.
func (b *Buffer) Drain() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.events
	b.events = nil
	return out
}

// Len returns the number of buffered events.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Multi fans an event out to several publishers in order.
type Multi []Publisher

// Publish hands ev to every publisher in m.
func (m Multi) Publish(ctx context.Context, ev Event) {
	for _, p := range m {
		p.Publish(ctx, ev)
	}
}
