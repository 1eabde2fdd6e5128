package models

import "time"

// Player is shared across tournaments and keyed by the TOM player id.
// Players added by hand may have no TOM id yet.
type Player struct {
	ID          int       `json:"id"`
	TomPlayerID *string   `json:"tom_player_id,omitempty"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
