// internal/lobby/errors.go
package lobby

import "errors"

// Error taxonomy for lobby operations. Handlers map these to HTTP codes;
// everything else wraps them with %w so errors.Is keeps working.
var (
	// ErrBadRequest indicates malformed or out-of-range input.
	ErrBadRequest = errors.New("bad request")

	// ErrNotFound indicates no live lobby exists for the pin.
	ErrNotFound = errors.New("lobby not found")

	// ErrLobbyFull indicates the lobby is not accepting joins, either
	// because it is at confirmed capacity or no longer waiting.
	ErrLobbyFull = errors.New("lobby full")

	// ErrInvalidPassphrase indicates a passphrase mismatch on a 2FA lobby.
	ErrInvalidPassphrase = errors.New("invalid passphrase")

	// ErrAlreadyJoined indicates the registered requester already holds a
	// confirmed slot in this lobby.
	ErrAlreadyJoined = errors.New("already joined")

	// ErrBadName indicates the supplied name fails the shape check.
	ErrBadName = errors.New("bad player name")

	// ErrNameTaken indicates a confirmed slot already holds the name.
	ErrNameTaken = errors.New("name taken")

	// ErrUnauthorized indicates a non-owner attempted an owner-only action.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict indicates a repository-level race on persist.
	ErrConflict = errors.New("conflict")

	// ErrInternal indicates an unexpected repository or broadcast failure.
	ErrInternal = errors.New("internal error")
)
