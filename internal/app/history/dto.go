package history

import "time"

type Request struct {
	PlayerID     string
	Limit        int
	OccurredFrom int64
	OccurredTo   int64
}

type Event struct {
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// Summary totals the listed events.
type Summary struct {
	Counts   map[string]int `json:"counts"`
	Harvests int            `json:"harvests"`
	Earned   float64        `json:"earned"`
}

type Response struct {
	Events  []Event `json:"events"`
	Summary Summary `json:"summary"`
}
