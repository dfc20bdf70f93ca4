// internal/handlers/api_server.go
package handlers

import (
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/durak-online/server/internal/lobby"
	"github.com/durak-online/server/internal/middleware"
)

// LobbyServer bundles the lobby service with the connection hub behind the
// HTTP surface.
type LobbyServer struct {
	Service *lobby.Service
	Hub     *Hub
	Logger  *logrus.Logger
}

// NewLobbyServer wires a LobbyServer.
func NewLobbyServer(svc *lobby.Service, hub *Hub, logger *logrus.Logger) *LobbyServer {
	return &LobbyServer{
		Service: svc,
		Hub:     hub,
		Logger:  logger,
	}
}

// Routes builds the full mux.
func (s *LobbyServer) Routes() http.Handler {
	mux := http.NewServeMux()
	logged := middleware.LogMiddleware(s.Logger)

	mux.HandleFunc("/", PingHandler)
	mux.Handle("/lobby/create", logged(http.HandlerFunc(s.CreateLobbyHandler)))
	// The WS route stays outside the logging wrapper so the hijack for the
	// upgrade reaches the real ResponseWriter; the handler logs its own
	// connect/disconnect events.
	mux.Handle("/lobby/ws/", http.HandlerFunc(s.LobbyWSHandler))
	mux.Handle("/lobby/", logged(http.HandlerFunc(s.lobbyRouter)))
	mux.Handle("/auth/refresh", logged(http.HandlerFunc(s.RefreshHandler)))

	return mux
}

// lobbyRouter dispatches /lobby/{pin}[/join|/name] by hand.
func (s *LobbyServer) lobbyRouter(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/lobby/"), "/")
	if len(parts) < 1 || parts[0] == "" {
		http.Error(w, "missing pin", http.StatusBadRequest)
		return
	}
	pin := parts[0]
	if !validPin(pin) {
		http.Error(w, "invalid pin", http.StatusBadRequest)
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		s.GetLobbyHandler(w, r, pin)
	case len(parts) == 1 && r.Method == http.MethodDelete:
		s.DeleteLobbyHandler(w, r, pin)
	case len(parts) == 2 && parts[1] == "join" && r.Method == http.MethodPost:
		s.JoinLobbyHandler(w, r, pin)
	case len(parts) == 2 && parts[1] == "name" && r.Method == http.MethodGet:
		s.CheckNameHandler(w, r, pin)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// PingHandler answers health probes.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Write([]byte("pong"))
}

func validPin(pin string) bool {
	if len(pin) != lobby.PinLength {
		return false
	}
	for _, c := range pin {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
