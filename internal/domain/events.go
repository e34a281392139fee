package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event type constants for paper lifecycle events.
const (
	EventTypePaperCreated      = "paper.created"
	EventTypePaperUpdated      = "paper.updated"
	EventTypeDocumentGenerated = "document.generated"
)

// Event is a paper lifecycle notification published to the event bus.
type Event struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	PaperID    string          `json:"paper_id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// NewEvent creates a new event with the given parameters.
// The payload is JSON-serialized automatically.
func NewEvent(eventType string, paperID uuid.UUID, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		EventID:    uuid.New().String(),
		EventType:  eventType,
		PaperID:    paperID.String(),
		Payload:    payloadBytes,
		OccurredAt: time.Now().UTC(),
	}, nil
}

// PaperCreatedPayload is the payload for paper.created events.
type PaperCreatedPayload struct {
	Title      string `json:"title"`
	Authors    int    `json:"authors"`
	Sections   int    `json:"sections"`
	References int    `json:"references"`
	Images     int    `json:"images"`
	AutoFilled bool   `json:"auto_filled"`
}

// PaperUpdatedPayload is the payload for paper.updated events.
type PaperUpdatedPayload struct {
	Title       string `json:"title"`
	ImagesAdded int    `json:"images_added"`
	AutoFilled  bool   `json:"auto_filled"`
}

// DocumentGeneratedPayload is the payload for document.generated events.
type DocumentGeneratedPayload struct {
	Format       string        `json:"format"`
	Bytes        int           `json:"bytes"`
	Figures      int           `json:"figures"`
	Placeholders int           `json:"placeholders"`
	Duration     time.Duration `json:"duration_ns"`
}
