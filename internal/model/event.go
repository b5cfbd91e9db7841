package model

import "time"

// EventName identifies a show change pushed to observers.
type EventName string

const (
	EventUpdateInterval EventName = "updateInterval"
	EventUpdateSold     EventName = "updateSold"
	EventUpdateReady    EventName = "updateReady"
	EventClearShows     EventName = "clearShows"
)

// EventForField maps a status flag to the event announcing its change.
func EventForField(f Field) EventName {
	switch f {
	case FieldIntervalDone:
		return EventUpdateInterval
	case FieldSold:
		return EventUpdateSold
	case FieldReady:
		return EventUpdateReady
	}
	return ""
}

// ShowEvent describes one successful state change of the show collection.
// ShowID, Field and Value are empty for EventClearShows.
type ShowEvent struct {
	Name       EventName
	ShowID     string
	Field      Field
	Value      bool
	OccurredAt time.Time
}

// NewFieldEvent builds the event emitted after field f of show id was set to v.
func NewFieldEvent(id string, f Field, v bool) ShowEvent {
	return ShowEvent{Name: EventForField(f), ShowID: id, Field: f, Value: v, OccurredAt: time.Now().UTC()}
}

// NewClearEvent builds the event emitted after the collection was emptied.
func NewClearEvent() ShowEvent {
	return ShowEvent{Name: EventClearShows, OccurredAt: time.Now().UTC()}
}

// Payload returns the data clients receive with the event, or nil when the
// event carries none.
func (e ShowEvent) Payload() map[string]any {
	if e.Name == EventClearShows {
		return nil
	}
	return map[string]any{
		"showId":        e.ShowID,
		string(e.Field): e.Value,
	}
}
