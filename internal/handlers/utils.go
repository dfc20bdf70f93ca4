package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/durak-online/server/internal/auth"
	"github.com/durak-online/server/internal/lobby"
)

// extractCookieToken extracts a named cookie value from "Cookie" header, or returns empty if not found.
func extractCookieToken(cookieHeader, cookieName string) string {
	parts := strings.Split(cookieHeader, cookieName+"=")
	if len(parts) < 2 {
		return ""
	}
	token := parts[1]
	if idx := strings.Index(token, ";"); idx != -1 {
		token = token[:idx]
	}
	return token
}

// writeJSON encodes v with the right content type.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeServiceError maps the lobby/auth error taxonomy onto HTTP codes.
func writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, lobby.ErrBadRequest), errors.Is(err, lobby.ErrBadName):
		status = http.StatusBadRequest
	case errors.Is(err, lobby.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, lobby.ErrUnauthorized), errors.Is(err, lobby.ErrInvalidPassphrase):
		status = http.StatusForbidden
	case errors.Is(err, lobby.ErrLobbyFull),
		errors.Is(err, lobby.ErrAlreadyJoined),
		errors.Is(err, lobby.ErrNameTaken),
		errors.Is(err, lobby.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrMalformedToken),
		errors.Is(err, auth.ErrInvalidToken):
		status = http.StatusUnauthorized
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
