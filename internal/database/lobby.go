// internal/database/lobby.go
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/durak-online/server/internal/lobby"
	"github.com/durak-online/server/internal/models"
)

// pgUniqueViolation is the Postgres error code for a unique constraint hit,
// raised when two creations race to the same pin.
const pgUniqueViolation = "23505"

// LobbyRepo is the Postgres-backed lobby.Repository. The players array is
// one JSONB column so the versioned UPDATE replaces it as a unit.
type LobbyRepo struct {
	pool *pgxpool.Pool
}

// NewLobbyRepo wraps the given pool.
func NewLobbyRepo(pool *pgxpool.Pool) *LobbyRepo {
	return &LobbyRepo{pool: pool}
}

// FindByPin fetches the live lobby for a pin, or lobby.ErrNotFound.
func (r *LobbyRepo) FindByPin(ctx context.Context, pin string) (*models.Lobby, error) {
	q := `
	SELECT id, pin, with_2fa, passphrase,
	       max_players, small_deck, round_timeout_sec,
	       status, owner_id, owner_name,
	       players, game_state, version, created_at
	FROM lobbies
	WHERE pin = $1
	`
	var l models.Lobby
	var playersJSON, gameState []byte
	err := r.pool.QueryRow(ctx, q, pin).Scan(
		&l.ID,
		&l.Pin,
		&l.With2FA,
		&l.Passphrase,
		&l.MaxPlayers,
		&l.SmallDeck,
		&l.RoundTimeoutSec,
		&l.Status,
		&l.OwnerID,
		&l.OwnerName,
		&playersJSON,
		&gameState,
		&l.Version,
		&l.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, lobby.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query lobby by pin: %w", err)
	}
	if err := json.Unmarshal(playersJSON, &l.Players); err != nil {
		return nil, fmt.Errorf("decode players for pin %s: %w", pin, err)
	}
	l.GameState = gameState
	return &l, nil
}

// Insert creates a new lobby row. The unique index on pin is the arbiter
// for creations racing to the same pin; losing the race yields
// lobby.ErrConflict so the caller can retry with a fresh pin.
func (r *LobbyRepo) Insert(ctx context.Context, l *models.Lobby) error {
	playersJSON, err := json.Marshal(l.Players)
	if err != nil {
		return fmt.Errorf("encode players: %w", err)
	}

	q := `
	INSERT INTO lobbies (
		id, pin, with_2fa, passphrase,
		max_players, small_deck, round_timeout_sec,
		status, owner_id, owner_name,
		players, game_state, version, created_at
	)
	VALUES ($1, $2, $3, $4,
	        $5, $6, $7,
	        $8, $9, $10,
	        $11, $12, $13, $14)
	`
	// jsonb params travel as text; NULL for an absent game state.
	var gameState interface{}
	if l.GameState != nil {
		gameState = string(l.GameState)
	}

	err = pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q,
			l.ID,
			l.Pin,
			l.With2FA,
			l.Passphrase,
			l.MaxPlayers,
			l.SmallDeck,
			l.RoundTimeoutSec,
			l.Status,
			l.OwnerID,
			l.OwnerName,
			string(playersJSON),
			gameState,
			l.Version,
			l.CreatedAt,
		)
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: pin %s already live", lobby.ErrConflict, l.Pin)
		}
		return fmt.Errorf("insert lobby: %w", err)
	}
	return nil
}

// ReplacePlayers swaps the whole players array for the lobby, keyed on
// (id, version). A stale version matches no row and yields
// lobby.ErrConflict.
func (r *LobbyRepo) ReplacePlayers(ctx context.Context, id uuid.UUID, version int64, players []models.Player) error {
	playersJSON, err := json.Marshal(players)
	if err != nil {
		return fmt.Errorf("encode players: %w", err)
	}

	q := `
	UPDATE lobbies
	SET players = $1, version = version + 1
	WHERE id = $2 AND version = $3
	`
	tag, err := r.pool.Exec(ctx, q, string(playersJSON), id, version)
	if err != nil {
		return fmt.Errorf("replace players: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: lobby %s changed underneath version %d", lobby.ErrConflict, id, version)
	}
	return nil
}

// Delete removes the lobby row for a pin, or lobby.ErrNotFound.
func (r *LobbyRepo) Delete(ctx context.Context, pin string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM lobbies WHERE pin = $1`, pin)
	if err != nil {
		return fmt.Errorf("delete lobby: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return lobby.ErrNotFound
	}
	return nil
}
