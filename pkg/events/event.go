package events

import "time"

const (
	SessionStarted     = "SESSION_STARTED"
	SearchCompleted    = "SEARCH_COMPLETED"
	SynthesisGenerated = "SYNTHESIS_GENERATED"
)

// Event defines the contract for all research events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "SEARCH_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

func NewSessionStarted(sessionID, mode string) BaseEvent {
	return BaseEvent{
		Type:       SessionStarted,
		OccurredAt: time.Now().UTC(),
		Data: map[string]interface{}{
			"session_id": sessionID,
			"mode":       mode,
		},
	}
}

func NewSearchCompleted(sessionID, query string, refined []string, paperIDs []string, took time.Duration) BaseEvent {
	return BaseEvent{
		Type:       SearchCompleted,
		OccurredAt: time.Now().UTC(),
		Data: map[string]interface{}{
			"session_id":      sessionID,
			"query":           query,
			"refined_queries": refined,
			"paper_ids":       paperIDs,
			"paper_count":     len(paperIDs),
			"duration_ms":     took.Milliseconds(),
		},
	}
}

func NewSynthesisGenerated(sessionID, kind string, paperCount, referenceCount int) BaseEvent {
	return BaseEvent{
		Type:       SynthesisGenerated,
		OccurredAt: time.Now().UTC(),
		Data: map[string]interface{}{
			"session_id":      sessionID,
			"kind":            kind,
			"paper_count":     paperCount,
			"reference_count": referenceCount,
		},
	}
}
