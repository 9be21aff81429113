package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/nfrund/tavern/internal/domain"
	"github.com/nfrund/tavern/internal/pubsub"
)

// EventMeta is embedded in every event the table publishes.
type EventMeta struct {
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

func newMeta() EventMeta {
	return EventMeta{
		EventID:   uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Version:   "1.0",
	}
}

// MessageAppendedEvent carries a message as it was stored.
type MessageAppendedEvent struct {
	EventMeta
	Message domain.Message `json:"message"`
}

// ChatsPurgedEvent is published when an action clears the chat.
type ChatsPurgedEvent struct {
	EventMeta
	TriggeredBy string `json:"triggered_by"`
}

// RequestResolvedEvent is published when a request's resolved flag flips.
type RequestResolvedEvent struct {
	EventMeta
	MessageID string `json:"message_id"`
	Target    string `json:"target"`
	Command   string `json:"command"`
}

// CharacterUpdatedEvent is published after hit points change.
type CharacterUpdatedEvent struct {
	EventMeta
	CharacterID string `json:"character_id"`
	UID         string `json:"uid"`
	HP          int    `json:"hp"`
	Dead        bool   `json:"dead"`
}

// LogChangedEvent tells views to re-observe. Source is "engine" for local
// writes or "live" for changes seen through the database.
type LogChangedEvent struct {
	EventMeta
	Source string `json:"source"`
	Action string `json:"action,omitempty"`
}

// NewLogChanged builds a LogChangedEvent with fresh metadata.
func NewLogChanged(source, action string) LogChangedEvent {
	return LogChangedEvent{EventMeta: newMeta(), Source: source, Action: action}
}

var (
	MessageAppended = pubsub.NewEvent[MessageAppendedEvent](
		"table.message.appended", "A message was appended to the table log")
	ChatsPurged = pubsub.NewEvent[ChatsPurgedEvent](
		"table.chats.purged", "All chat messages were removed by a new action")
	RequestResolved = pubsub.NewEvent[RequestResolvedEvent](
		"table.request.resolved", "A DM request was resolved by a roll or applied effect")
	CharacterUpdated = pubsub.NewEvent[CharacterUpdatedEvent](
		"table.character.updated", "A character's hit points changed")
	LogChanged = pubsub.NewEvent[LogChangedEvent](
		"table.log.changed", "The table log changed and views should refresh")
)
