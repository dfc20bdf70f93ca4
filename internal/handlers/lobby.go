// internal/handlers/lobby.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/durak-online/server/internal/auth"
	"github.com/durak-online/server/internal/lobby"
)

// createLobbyRequest is the owner-supplied create payload.
type createLobbyRequest struct {
	OwnerName string `json:"owner_name"`
	lobby.CreateParams
}

// joinLobbyRequest is the join payload. Registered joiners present their
// account session token in the auth_token cookie instead of minting new
// lobby credentials.
type joinLobbyRequest struct {
	Name       string `json:"name"`
	Passphrase string `json:"passphrase,omitempty"`
}

// CreateLobbyHandler handles POST /lobby/create. Owner-authenticated.
func (s *LobbyServer) CreateLobbyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ownerID, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	var req createLobbyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad lobby request payload", http.StatusBadRequest)
		return
	}

	res, err := s.Service.Create(r.Context(), lobby.Owner{ID: ownerID, Name: req.OwnerName}, req.CreateParams)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetLobbyHandler handles GET /lobby/{pin}: the reduced joinable view.
func (s *LobbyServer) GetLobbyHandler(w http.ResponseWriter, r *http.Request, pin string) {
	view, err := s.Service.Inspect(r.Context(), pin)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// JoinLobbyHandler handles POST /lobby/{pin}/join. An auth_token cookie,
// if present and valid, makes this a registered join; otherwise the
// request is anonymous and earns lobby credentials on success.
func (s *LobbyServer) JoinLobbyHandler(w http.ResponseWriter, r *http.Request, pin string) {
	var body joinLobbyRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad join request payload", http.StatusBadRequest)
		return
	}

	req := lobby.JoinRequest{
		Name:       body.Name,
		Passphrase: body.Passphrase,
	}
	if cookie := r.Header.Get("Cookie"); strings.Contains(cookie, "auth_token=") {
		userIDStr, err := auth.AuthenticateSession(extractCookieToken(cookie, "auth_token"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			http.Error(w, "invalid user id format in token", http.StatusBadRequest)
			return
		}
		req.UserID = userID
		req.Registered = true
	}

	res, err := s.Service.Join(r.Context(), pin, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CheckNameHandler handles GET /lobby/{pin}/name?name=. Purely advisory.
func (s *LobbyServer) CheckNameHandler(w http.ResponseWriter, r *http.Request, pin string) {
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "missing name", http.StatusBadRequest)
		return
	}
	free, err := s.Service.CheckName(r.Context(), pin, name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name": name,
		"free": free,
	})
}

// DeleteLobbyHandler handles DELETE /lobby/{pin}. Owner-authenticated.
func (s *LobbyServer) DeleteLobbyHandler(w http.ResponseWriter, r *http.Request, pin string) {
	requesterID, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	if err := s.Service.Delete(r.Context(), pin, requesterID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RefreshHandler handles POST /auth/refresh: exchanges a refresh
// credential for a fresh access/refresh pair.
func (s *LobbyServer) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RefreshToken == "" {
		http.Error(w, "missing refresh_token", http.StatusBadRequest)
		return
	}
	access, refresh, err := auth.Refresh(body.RefreshToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token":  access,
		"refresh_token": refresh,
	})
}

// requireSession authenticates the auth_token cookie and returns the
// account UUID, writing the error response itself on failure.
func (s *LobbyServer) requireSession(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	cookie := r.Header.Get("Cookie")
	if !strings.Contains(cookie, "auth_token=") {
		http.Error(w, "missing auth_token", http.StatusUnauthorized)
		return uuid.Nil, false
	}
	userIDStr, err := auth.AuthenticateSession(extractCookieToken(cookie, "auth_token"))
	if err != nil {
		http.Error(w, "invalid token", http.StatusForbidden)
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		http.Error(w, "invalid user id format in token", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return userID, true
}
