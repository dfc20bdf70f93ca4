// internal/models/lobby.go
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a lobby.
type Status string

const (
	// StatusWaiting means the lobby accepts joins.
	StatusWaiting Status = "waiting"
	// StatusPlaying means the game has started; no further admission.
	StatusPlaying Status = "playing"
	// StatusClosed means the lobby was deleted or archived.
	StatusClosed Status = "closed"
)

// Lobby represents one game session document. The pin is the public
// identifier; ID is the surrogate key the repository updates against.
type Lobby struct {
	ID         uuid.UUID `json:"id"`
	Pin        string    `json:"pin"`
	With2FA    bool      `json:"with_2fa"`
	Passphrase string    `json:"passphrase,omitempty"`

	MaxPlayers      int  `json:"max_players"`
	SmallDeck       bool `json:"small_deck"`
	RoundTimeoutSec int  `json:"round_timeout_sec"`

	Status    Status    `json:"status"`
	OwnerID   uuid.UUID `json:"owner_id"`
	OwnerName string    `json:"owner_name"`

	// Players is the slot array. Its length never exceeds MaxPlayers;
	// unconfirmed slots are placeholders that may be overwritten.
	Players []Player `json:"players"`

	// GameState is the opaque blob owned by the rules engine once the
	// game starts. The lobby service never looks inside it.
	GameState json.RawMessage `json:"game_state,omitempty"`

	// Version increments on every players-array replace. Used by the
	// repository for optimistic concurrency.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

// Player is a single slot in a lobby.
type Player struct {
	Name       string    `json:"name"`
	UserID     uuid.UUID `json:"user_id,omitempty"` // uuid.Nil for anonymous players
	Registered bool      `json:"registered"`
	Confirmed  bool      `json:"confirmed"`

	// ConnToken binds the slot to a live connection once confirmed.
	// Empty while the slot is unconfirmed.
	ConnToken string `json:"conn_token,omitempty"`
}

// ConfirmedCount returns the number of confirmed slots.
func (l *Lobby) ConfirmedCount() int {
	n := 0
	for _, p := range l.Players {
		if p.Confirmed {
			n++
		}
	}
	return n
}

// Joinable reports whether the lobby still admits new players.
func (l *Lobby) Joinable() bool {
	return l.Status == StatusWaiting && l.ConfirmedCount() < l.MaxPlayers
}
