// Package queue defines the seat event payload exchanged over the message
// broker together with its publisher and consumer.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// DefaultSeatEventQueue is the queue name used when SEAT_EVENT_QUEUE is unset.
const DefaultSeatEventQueue = "seat.events"

// SeatEventType names a state change of a seat.
type SeatEventType string

const (
	SeatCreated  SeatEventType = "seat.created"
	SeatUpdated  SeatEventType = "seat.updated"
	SeatTaken    SeatEventType = "seat.taken"
	SeatDeleted  SeatEventType = "seat.deleted"
	SeatRestored SeatEventType = "seat.restored"
)

// SeatEvent is published after a seat write has been committed.  It holds
// enough for a consumer to log or notify without reading the database.
type SeatEvent struct {
	ID         string        `json:"id"`
	Type       SeatEventType `json:"type"`
	SeatID     uint64        `json:"seat_id"`
	ActorID    uint64        `json:"actor_id"`
	CafeName   string        `json:"cafe_name,omitempty"`
	OccurredAt string        `json:"occurred_at"`
}

// NewSeatEvent stamps an event with a fresh id and an RFC 3339 timestamp.
func NewSeatEvent(t SeatEventType, seatID, actorID uint64, at time.Time) SeatEvent {
	return SeatEvent{
		ID:         uuid.NewString(),
		Type:       t,
		SeatID:     seatID,
		ActorID:    actorID,
		OccurredAt: at.Format(time.RFC3339),
	}
}
