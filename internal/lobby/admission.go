// internal/lobby/admission.go
//
// Admission holds the pure decision logic for a single lobby snapshot.
// Every function here takes a Lobby value and returns a new value or a
// rejection; nothing performs I/O and nothing retains state across calls.
package lobby

import (
	"fmt"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/durak-online/server/internal/models"
)

const (
	// MinPlayers is the lower bound for any lobby.
	MinPlayers = 2
	// MaxPlayersFullDeck is the slot cap with the full 36-card deck.
	MaxPlayersFullDeck = 8
	// MaxPlayersSmallDeck is the slot cap with the shortened deck variant.
	MaxPlayersSmallDeck = 6

	// MinRoundTimeoutSec and MaxRoundTimeoutSec bound the per-round timer.
	MinRoundTimeoutSec = 60
	MaxRoundTimeoutSec = 600

	maxNameLen = 20
)

// CreateParams are the owner-supplied settings for a new lobby.
type CreateParams struct {
	MaxPlayers      int  `json:"max_players"`
	RoundTimeoutSec int  `json:"round_timeout_sec"`
	SmallDeck       bool `json:"small_deck"`
	With2FA         bool `json:"with_2fa"`
}

// Validate checks the documented ranges.
func (p CreateParams) Validate() error {
	limit := MaxPlayersFullDeck
	if p.SmallDeck {
		limit = MaxPlayersSmallDeck
	}
	if p.MaxPlayers < MinPlayers || p.MaxPlayers > limit {
		return fmt.Errorf("%w: max_players must be %d-%d", ErrBadRequest, MinPlayers, limit)
	}
	if p.RoundTimeoutSec < MinRoundTimeoutSec || p.RoundTimeoutSec > MaxRoundTimeoutSec {
		return fmt.Errorf("%w: round_timeout_sec must be %d-%d", ErrBadRequest, MinRoundTimeoutSec, MaxRoundTimeoutSec)
	}
	return nil
}

// Owner identifies the authenticated account creating or deleting a lobby.
type Owner struct {
	ID   uuid.UUID
	Name string
}

// JoinRequest is one attempt to claim a slot.
type JoinRequest struct {
	Name       string
	Passphrase string
	// UserID is the registered account identity, uuid.Nil for anonymous
	// joiners. Registered mirrors it for readability at the gates.
	UserID     uuid.UUID
	Registered bool
}

// AdmitJoin decides whether a join request may claim a slot in the given
// snapshot. On success it returns a new Lobby with exactly one slot
// overwritten or appended (all other slots shared) and the index of that
// slot. The gates run in a fixed order; the first failing gate determines
// the returned error.
func AdmitJoin(l models.Lobby, req JoinRequest) (models.Lobby, int, error) {
	if l.Status != models.StatusWaiting || l.ConfirmedCount() >= l.MaxPlayers {
		return models.Lobby{}, 0, ErrLobbyFull
	}
	if l.With2FA && req.Passphrase != l.Passphrase {
		return models.Lobby{}, 0, ErrInvalidPassphrase
	}
	if req.Registered {
		for _, p := range l.Players {
			if p.Confirmed && p.Registered && p.Name == req.Name {
				return models.Lobby{}, 0, ErrAlreadyJoined
			}
		}
		// The registered name arrives from the join body just like the
		// anonymous one, so it passes the same shape check; otherwise a
		// malformed name could reach a confirmed slot.
		if !ValidName(req.Name) {
			return models.Lobby{}, 0, ErrBadName
		}
	} else {
		if !ValidName(req.Name) {
			return models.Lobby{}, 0, ErrBadName
		}
		if !CheckNameFree(l, req.Name) {
			return models.Lobby{}, 0, ErrNameTaken
		}
	}

	slot := models.Player{
		Name:       req.Name,
		UserID:     req.UserID,
		Registered: req.Registered,
		Confirmed:  false,
	}

	next := l
	if len(l.Players) == l.MaxPlayers {
		// All slots physically allocated but at least one unconfirmed
		// (the capacity gate passed). Reclaim the first abandoned slot
		// instead of growing past MaxPlayers.
		idx := -1
		for i, p := range l.Players {
			if !p.Confirmed {
				idx = i
				break
			}
		}
		players := make([]models.Player, len(l.Players))
		copy(players, l.Players)
		players[idx] = slot
		next.Players = players
		return next, idx, nil
	}

	players := make([]models.Player, len(l.Players), len(l.Players)+1)
	copy(players, l.Players)
	next.Players = append(players, slot)
	return next, len(next.Players) - 1, nil
}

// AdmitCreate constructs a new waiting lobby with the owner's slot
// pre-confirmed. The pin is assumed to have been verified unique by the
// caller's generate-and-check loop.
func AdmitCreate(params CreateParams, pin, passphrase string, owner Owner) models.Lobby {
	return models.Lobby{
		ID:              uuid.New(),
		Pin:             pin,
		With2FA:         params.With2FA,
		Passphrase:      passphrase,
		MaxPlayers:      params.MaxPlayers,
		SmallDeck:       params.SmallDeck,
		RoundTimeoutSec: params.RoundTimeoutSec,
		Status:          models.StatusWaiting,
		OwnerID:         owner.ID,
		OwnerName:       owner.Name,
		Players: []models.Player{{
			Name:       owner.Name,
			UserID:     owner.ID,
			Registered: true,
			Confirmed:  true,
		}},
		CreatedAt: time.Now().UTC(),
	}
}

// CheckNameFree reports whether no confirmed slot holds the exact name.
// Comparison is case-sensitive; the advisory pre-join probe and the
// authoritative gate inside AdmitJoin both go through here so the two can
// never disagree.
func CheckNameFree(l models.Lobby, name string) bool {
	for _, p := range l.Players {
		if p.Confirmed && p.Name == name {
			return false
		}
	}
	return true
}

// ValidName reports whether a player name is 1-20 characters with no
// whitespace. Names must be well-formed UTF-8.
func ValidName(name string) bool {
	if !utf8.ValidString(name) {
		return false
	}
	n := utf8.RuneCountInString(name)
	if n < 1 || n > maxNameLen {
		return false
	}
	for _, r := range name {
		if unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// AuthorizeOwnerAction reports whether the requester is the lobby owner.
func AuthorizeOwnerAction(l models.Lobby, requesterID uuid.UUID) bool {
	return l.OwnerID == requesterID
}

// ConfirmSlot binds a live connection to the named slot. Because the
// admission gates only guard against confirmed names, two unconfirmed
// slots may hold the same name; confirmation is where uniqueness among
// confirmed players is finally enforced. Re-confirming with the same
// connection token is idempotent.
func ConfirmSlot(l models.Lobby, name, connToken string) (models.Lobby, error) {
	for _, p := range l.Players {
		if p.Confirmed && p.Name == name {
			if p.ConnToken == connToken {
				return l, nil
			}
			return models.Lobby{}, ErrNameTaken
		}
	}

	for i, p := range l.Players {
		if !p.Confirmed && p.Name == name {
			players := make([]models.Player, len(l.Players))
			copy(players, l.Players)
			players[i].Confirmed = true
			players[i].ConnToken = connToken
			next := l
			next.Players = players
			return next, nil
		}
	}
	return models.Lobby{}, ErrNotFound
}

// ReleaseSlot unbinds the named confirmed slot, leaving it as an
// overwritable placeholder. Returns false if no confirmed slot holds the
// name.
func ReleaseSlot(l models.Lobby, name string) (models.Lobby, bool) {
	for i, p := range l.Players {
		if p.Confirmed && p.Name == name {
			players := make([]models.Player, len(l.Players))
			copy(players, l.Players)
			players[i].Confirmed = false
			players[i].ConnToken = ""
			next := l
			next.Players = players
			return next, true
		}
	}
	return l, false
}
