package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/resourceshare-ph/apiserver/types"
)

type contextKey string

const contextSessionKey contextKey = "session"

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

func sessionFromContext(ctx context.Context) (types.Session, error) {
	session, ok := ctx.Value(contextSessionKey).(types.Session)
	if !ok {
		return types.Session{}, errors.New("missing session")
	}
	return session, nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
