package events

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/helixir/paper-assistant-service/internal/domain"
)

// AggregateTypePaper is the aggregate type for paper events.
const AggregateTypePaper = "paper"

// EmitterConfig configures the Emitter with service context.
type EmitterConfig struct {
	// ServiceName identifies the source service.
	ServiceName string
}

// EmitParams contains the parameters for emitting an event.
type EmitParams struct {
	PaperID   uuid.UUID
	EventType string
	Payload   interface{}
	// CorrelationID for request tracing (optional).
	CorrelationID string
	// RequestID of the HTTP request that caused the event (optional).
	RequestID string
}

// Metadata carries tracing context alongside an event.
type Metadata struct {
	Source        string `json:"source"`
	AggregateType string `json:"aggregate_type"`
	CorrelationID string `json:"correlation_id,omitempty"`
	RequestID     string `json:"request_id,omitempty"`
}

// Envelope is the message written to the event bus.
type Envelope struct {
	domain.Event
	Metadata Metadata `json:"metadata"`
}

// Emitter creates event envelopes enriched with service context.
type Emitter struct {
	config EmitterConfig
}

// NewEmitter creates a new Emitter with the given service configuration.
func NewEmitter(config EmitterConfig) *Emitter {
	if config.ServiceName == "" {
		config.ServiceName = "paper-assistant-service"
	}
	return &Emitter{config: config}
}

// Emit builds an envelope from params.
func (e *Emitter) Emit(params EmitParams) (*Envelope, error) {
	if params.PaperID == uuid.Nil {
		return nil, fmt.Errorf("paper_id is required")
	}
	if params.EventType == "" {
		return nil, fmt.Errorf("event_type is required")
	}

	event, err := domain.NewEvent(params.EventType, params.PaperID, params.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	return &Envelope{
		Event: *event,
		Metadata: Metadata{
			Source:        e.config.ServiceName,
			AggregateType: AggregateTypePaper,
			CorrelationID: params.CorrelationID,
			RequestID:     params.RequestID,
		},
	}, nil
}
