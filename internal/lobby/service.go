// internal/lobby/service.go
package lobby

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/durak-online/server/internal/auth"
	"github.com/durak-online/server/internal/models"
)

// Repository is the durable storage contract the service depends on. The
// players replace is atomic per lobby document: implementations key the
// update on (id, version) so two concurrent joins can never both land on
// the same snapshot.
type Repository interface {
	FindByPin(ctx context.Context, pin string) (*models.Lobby, error)
	Insert(ctx context.Context, l *models.Lobby) error
	ReplacePlayers(ctx context.Context, id uuid.UUID, version int64, players []models.Player) error
	Delete(ctx context.Context, pin string) error
}

// Broadcaster pushes lobby lifecycle notifications to connected clients.
// Delivery is best-effort; at-least-once is acceptable.
type Broadcaster interface {
	NotifyLobbyClosed(ctx context.Context, pin, reason string) error
}

// maxPinAttempts bounds the create loop. Exhausting it surfaces
// ErrInternal rather than spinning on a saturated pin space.
const maxPinAttempts = 100

// broadcastTimeout bounds the fire-and-forget closure notification.
const broadcastTimeout = 5 * time.Second

// Service provides the externally visible lobby operations, orchestrating
// repository reads/writes around the pure admission functions.
type Service struct {
	repo Repository
	bc   Broadcaster
	log  *logrus.Logger

	// issueTokens is swappable in tests; defaults to the auth package.
	issueTokens func(name, pin string) (access, refresh string, err error)
}

// NewService wires a Service with its collaborators.
func NewService(repo Repository, bc Broadcaster, log *logrus.Logger) *Service {
	return &Service{
		repo:        repo,
		bc:          bc,
		log:         log,
		issueTokens: auth.IssueLobbyTokens,
	}
}

// CreateResult is returned to the owner after a successful create. The
// passphrase is present only for 2FA lobbies and only here.
type CreateResult struct {
	LobbyID    uuid.UUID `json:"lobby_id"`
	Pin        string    `json:"pin"`
	Passphrase string    `json:"passphrase,omitempty"`
}

// View is the reduced lobby representation exposed to prospective joiners.
type View struct {
	Pin         string `json:"pin"`
	With2FA     bool   `json:"with_2fa"`
	MaxPlayers  int    `json:"max_players"`
	PlayerCount int    `json:"player_count"`
}

// JoinResult reports a successful slot claim. Credentials are set only for
// anonymous joiners; registered joiners keep their account session.
type JoinResult struct {
	Name         string `json:"name"`
	Slot         int    `json:"slot"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Create validates params, finds a free pin and persists a new lobby. Pin
// collisions, whether seen on the read or raced on the insert, are retried
// transparently up to maxPinAttempts.
func (s *Service) Create(ctx context.Context, owner Owner, params CreateParams) (CreateResult, error) {
	if err := params.Validate(); err != nil {
		return CreateResult{}, err
	}
	if owner.ID == uuid.Nil || !ValidName(owner.Name) {
		return CreateResult{}, fmt.Errorf("%w: invalid owner identity", ErrBadRequest)
	}

	for attempt := 0; attempt < maxPinAttempts; attempt++ {
		pin := GeneratePin()

		_, err := s.repo.FindByPin(ctx, pin)
		if err == nil {
			continue // pin already live
		}
		if !errors.Is(err, ErrNotFound) {
			return CreateResult{}, fmt.Errorf("%w: pin lookup: %v", ErrInternal, err)
		}

		passphrase := ""
		if params.With2FA {
			passphrase = GeneratePassphrase()
		}
		l := AdmitCreate(params, pin, passphrase, owner)

		err = s.repo.Insert(ctx, &l)
		if errors.Is(err, ErrConflict) {
			// A competing creation claimed the pin between our check
			// and the insert. Try a fresh pin.
			s.log.WithField("pin", pin).Debug("pin raced on insert, retrying")
			continue
		}
		if err != nil {
			return CreateResult{}, fmt.Errorf("%w: insert lobby: %v", ErrInternal, err)
		}

		s.log.WithFields(logrus.Fields{
			"pin":         pin,
			"owner":       owner.ID,
			"max_players": params.MaxPlayers,
			"with_2fa":    params.With2FA,
		}).Info("lobby created")

		return CreateResult{LobbyID: l.ID, Pin: pin, Passphrase: passphrase}, nil
	}

	return CreateResult{}, fmt.Errorf("%w: pin space exhausted after %d attempts", ErrInternal, maxPinAttempts)
}

// Inspect returns the reduced view for a joinable lobby. Lobbies that are
// full or no longer waiting report ErrLobbyFull without leaking state.
func (s *Service) Inspect(ctx context.Context, pin string) (View, error) {
	l, err := s.fetch(ctx, pin)
	if err != nil {
		return View{}, err
	}
	if !l.Joinable() {
		return View{}, ErrLobbyFull
	}
	return View{
		Pin:         l.Pin,
		With2FA:     l.With2FA,
		MaxPlayers:  l.MaxPlayers,
		PlayerCount: l.ConfirmedCount(),
	}, nil
}

// Join runs the admission decision against the current snapshot and
// persists the new players array as a whole. A repository conflict is
// retried once against a fresh snapshot; if the retried admission then
// fails, that rejection is what the caller sees.
func (s *Service) Join(ctx context.Context, pin string, req JoinRequest) (JoinResult, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		l, err := s.fetch(ctx, pin)
		if err != nil {
			return JoinResult{}, err
		}

		next, slot, err := AdmitJoin(*l, req)
		if err != nil {
			return JoinResult{}, err
		}

		err = s.repo.ReplacePlayers(ctx, l.ID, l.Version, next.Players)
		if errors.Is(err, ErrConflict) {
			lastErr = err
			continue
		}
		if err != nil {
			return JoinResult{}, fmt.Errorf("%w: persist join: %v", ErrInternal, err)
		}

		res := JoinResult{Name: req.Name, Slot: slot}
		if !req.Registered {
			access, refresh, err := s.issueTokens(req.Name, pin)
			if err != nil {
				return JoinResult{}, fmt.Errorf("%w: issue credentials: %v", ErrInternal, err)
			}
			res.AccessToken = access
			res.RefreshToken = refresh
		}

		s.log.WithFields(logrus.Fields{
			"pin":        pin,
			"name":       req.Name,
			"slot":       slot,
			"registered": req.Registered,
		}).Info("player joined lobby")

		return res, nil
	}
	return JoinResult{}, lastErr
}

// CheckName is the advisory name-availability probe. It shares comparison
// semantics with the authoritative gate inside AdmitJoin.
func (s *Service) CheckName(ctx context.Context, pin, name string) (bool, error) {
	l, err := s.fetch(ctx, pin)
	if err != nil {
		return false, err
	}
	return CheckNameFree(*l, name), nil
}

// Confirm binds a live connection to the named slot, persisting the
// change with the same versioned replace as Join. A repository conflict
// is retried once against a fresh snapshot.
func (s *Service) Confirm(ctx context.Context, pin, name, connToken string) error {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		l, err := s.fetch(ctx, pin)
		if err != nil {
			return err
		}
		next, err := ConfirmSlot(*l, name, connToken)
		if err != nil {
			return err
		}
		err = s.repo.ReplacePlayers(ctx, l.ID, l.Version, next.Players)
		if errors.Is(err, ErrConflict) {
			lastErr = err
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: persist confirm: %v", ErrInternal, err)
		}
		s.log.WithFields(logrus.Fields{"pin": pin, "name": name}).Info("slot confirmed")
		return nil
	}
	return lastErr
}

// Leave releases the named confirmed slot back to an overwritable
// placeholder, letting a later join reclaim it. Unknown names are a no-op:
// the player may already have been overwritten.
func (s *Service) Leave(ctx context.Context, pin, name string) error {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		l, err := s.fetch(ctx, pin)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil // lobby already gone
			}
			return err
		}
		next, changed := ReleaseSlot(*l, name)
		if !changed {
			return nil
		}
		err = s.repo.ReplacePlayers(ctx, l.ID, l.Version, next.Players)
		if errors.Is(err, ErrConflict) {
			lastErr = err
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: persist leave: %v", ErrInternal, err)
		}
		s.log.WithFields(logrus.Fields{"pin": pin, "name": name}).Info("slot released")
		return nil
	}
	return lastErr
}

// Delete removes an owner's lobby and notifies its connected clients. The
// closure broadcast is fire-and-forget: its failure is logged, never
// surfaced.
func (s *Service) Delete(ctx context.Context, pin string, requesterID uuid.UUID) error {
	l, err := s.fetch(ctx, pin)
	if err != nil {
		return err
	}
	if !AuthorizeOwnerAction(*l, requesterID) {
		return ErrUnauthorized
	}

	if err := s.repo.Delete(ctx, pin); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: delete lobby: %v", ErrInternal, err)
	}

	s.log.WithFields(logrus.Fields{"pin": pin, "owner": requesterID}).Info("lobby deleted")

	go func() {
		bctx, cancel := context.WithTimeout(context.Background(), broadcastTimeout)
		defer cancel()
		if err := s.bc.NotifyLobbyClosed(bctx, pin, "lobby_closed"); err != nil {
			s.log.WithField("pin", pin).Warnf("closure broadcast failed: %v", err)
		}
	}()

	return nil
}

func (s *Service) fetch(ctx context.Context, pin string) (*models.Lobby, error) {
	l, err := s.repo.FindByPin(ctx, pin)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: find lobby: %v", ErrInternal, err)
	}
	return l, nil
}
