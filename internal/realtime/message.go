package realtime

import (
	"encoding/json"
	"time"

	"onboarding/internal/model"
)

// Message is the wire form of a catalog event on the change feed
type Message struct {
	Seq       uint64          `json:"seq"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

func FromEvent(ev model.CatalogEvent) Message {
	payload := json.RawMessage(ev.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	return Message{Seq: ev.Seq, Type: ev.Type, Payload: payload, CreatedAt: ev.CreatedAt}
}

func FromEvents(events []model.CatalogEvent) []Message {
	out := make([]Message, 0, len(events))
	for _, ev := range events {
		out = append(out, FromEvent(ev))
	}
	return out
}
