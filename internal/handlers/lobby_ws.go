// internal/handlers/lobby_ws.go
package handlers

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/durak-online/server/internal/auth"
	"github.com/durak-online/server/internal/middleware"
)

// broadcastReleaseTimeout bounds the slot release after a disconnect.
const broadcastReleaseTimeout = 5 * time.Second

// eventWriteTimeout bounds a single payload write so a stalled client
// cannot wedge its write pump.
const eventWriteTimeout = 5 * time.Second

// lobbyEvent is one unit of work for a subscriber's write pump. When
// closeAfter is set the pump closes the connection after delivering the
// payload, so closure notifications cannot race the close frame.
type lobbyEvent struct {
	payload    map[string]interface{}
	closeAfter bool
	reason     string
}

// subscriber is one client connected to a lobby's event stream.
type subscriber struct {
	name    string
	out     chan lobbyEvent
	closeWS func(code websocket.StatusCode, reason string)
}

// Hub tracks live lobby subscriptions per pin and delivers closure events
// to them. It implements the service's Broadcaster contract for clients
// connected to this process; cross-process delivery rides Redis.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*subscriber]struct{} // pin -> subscribers
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*subscriber]struct{})}
}

func (h *Hub) add(pin string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[pin] == nil {
		h.subs[pin] = make(map[*subscriber]struct{})
	}
	h.subs[pin][sub] = struct{}{}
}

func (h *Hub) remove(pin string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[pin], sub)
	if len(h.subs[pin]) == 0 {
		delete(h.subs, pin)
	}
}

// NotifyLobbyClosed pushes a closure event to every subscriber of the pin
// and disconnects them. Slow clients are skipped rather than blocked on.
func (h *Hub) NotifyLobbyClosed(ctx context.Context, pin, reason string) error {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subs[pin]))
	for sub := range h.subs[pin] {
		subs = append(subs, sub)
	}
	delete(h.subs, pin)
	h.mu.Unlock()

	msg := map[string]interface{}{
		"type":   "lobby_closed",
		"pin":    pin,
		"reason": reason,
	}
	for _, sub := range subs {
		ev := lobbyEvent{payload: msg, closeAfter: true, reason: reason}
		select {
		case sub.out <- ev:
			// The write pump delivers the payload, then closes.
		default:
			// Queue is backed up; skip the payload and cut the client off.
			sub.closeWS(websocket.StatusNormalClosure, reason)
		}
	}
	return nil
}

// LobbyWSHandler handles GET /lobby/ws/{pin}?token=. The access credential
// names the player and pin; a successful upgrade confirms the player's
// slot, and disconnecting releases it again.
func (s *LobbyServer) LobbyWSHandler(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/lobby/ws/"), "/")
	if len(pathParts) < 1 || pathParts[0] == "" {
		http.Error(w, "missing pin", http.StatusBadRequest)
		return
	}
	pin := pathParts[0]
	if !validPin(pin) {
		http.Error(w, "invalid pin", http.StatusBadRequest)
		return
	}

	name, tokenPin, err := auth.VerifyAccess(r.URL.Query().Get("token"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if tokenPin != pin {
		http.Error(w, "credential not valid for this lobby", http.StatusForbidden)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{"lobby"},
		OriginPatterns: []string{"*"}, // Adjust in production
	})
	if err != nil {
		s.Logger.Warnf("websocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")

	if c.Subprotocol() != "lobby" {
		c.Close(websocket.StatusPolicyViolation, "client must speak the lobby subprotocol")
		return
	}

	connToken := uuid.NewString()
	if err := s.Service.Confirm(r.Context(), pin, name, connToken); err != nil {
		s.Logger.Warnf("slot confirmation failed for %s@%s: %v", name, pin, err)
		c.Close(websocket.StatusPolicyViolation, "slot confirmation failed")
		return
	}

	middleware.LogWebSocketConnect(s.Logger, r.RemoteAddr, r.URL.Path)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub := &subscriber{
		name: name,
		out:  make(chan lobbyEvent, 10),
		closeWS: func(code websocket.StatusCode, reason string) {
			c.Close(code, reason)
		},
	}
	s.Hub.add(pin, sub)

	go writePump(ctx, c, sub)

	// Read until the client goes away. Inbound messages carry nothing the
	// lobby service acts on.
	var readErr error
	for {
		if _, _, readErr = c.Read(ctx); readErr != nil {
			break
		}
	}

	s.Hub.remove(pin, sub)
	cancel()

	// Release the slot so a later join can reclaim it. Background context:
	// the request context is already dead at this point.
	releaseCtx, releaseCancel := context.WithTimeout(context.Background(), broadcastReleaseTimeout)
	defer releaseCancel()
	if err := s.Service.Leave(releaseCtx, pin, name); err != nil {
		s.Logger.Warnf("slot release failed for %s@%s: %v", name, pin, err)
	}

	middleware.LogWebSocketDisconnect(s.Logger, r.RemoteAddr, r.URL.Path, readErr)
}

// writePump drains the subscriber's out channel onto the websocket.
func writePump(ctx context.Context, c *websocket.Conn, sub *subscriber) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.out:
			if !ok {
				return
			}
			if ev.payload != nil {
				writeCtx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
				err := wsjson.Write(writeCtx, c, ev.payload)
				cancel()
				if err != nil && !ev.closeAfter {
					return
				}
			}
			if ev.closeAfter {
				sub.closeWS(websocket.StatusNormalClosure, ev.reason)
				return
			}
		}
	}
}
