package ports

import "time"

const (
	NoticeEffects  = "effects"
	NoticeHydrated = "hydrated"
	NoticeState    = "state"
)

// Notice is pushed to whoever renders the player's farm.
type Notice struct {
	PlayerID string    `json:"player_id"`
	Kind     string    `json:"kind"`
	At       time.Time `json:"at"`
	Payload  any       `json:"payload,omitempty"`
}

type Notifier interface {
	Publish(n Notice)
}
