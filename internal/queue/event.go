// Package queue defines message payloads exchanged over the message broker.
package queue

import (
    "time"

    "github.com/iliyamo/showdesk/internal/model"
)

// ShowEventsQueue is the durable queue receiving every show change.
const ShowEventsQueue = "shows.events"

// ShowChangedEvent is published after a show flag changes or the
// collection is cleared. It is self-contained so consumers can log or
// forward it without reading the show store.
type ShowChangedEvent struct {
    Event      string `json:"event"`
    ShowID     string `json:"show_id,omitempty"`
    Field      string `json:"field,omitempty"`
    Value      *bool  `json:"value,omitempty"`
    OccurredAt string `json:"occurred_at"`
}

// FromShowEvent converts a domain event to its wire form.
func FromShowEvent(ev model.ShowEvent) ShowChangedEvent {
    out := ShowChangedEvent{
        Event:      string(ev.Name),
        OccurredAt: ev.OccurredAt.UTC().Format(time.RFC3339Nano),
    }
    if ev.Name != model.EventClearShows {
        v := ev.Value
        out.ShowID = ev.ShowID
        out.Field = string(ev.Field)
        out.Value = &v
    }
    return out
}
