package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/resourceshare-ph/apiserver/internal/auth"
	"github.com/resourceshare-ph/apiserver/internal/directory"
	"github.com/resourceshare-ph/apiserver/internal/idx"
	"github.com/resourceshare-ph/apiserver/types"
)

const registeredDateLayout = "1/2/2006"

// UsersHandler serves the registered-users collection directly, the
// bulk-import companion to the interactive auth endpoints.
type UsersHandler struct {
	dir *directory.Directory
	log *slog.Logger
}

// UsersRouter registers the /api/users routes. Account creation shares
// the strict per-client limit of the other credential endpoints.
func UsersRouter(r chi.Router, dir *directory.Directory, log *slog.Logger) {
	handler := &UsersHandler{dir: dir, log: log}
	r.Get("/", handler.List)
	r.With(RateLimit(loginRateLimit, time.Minute)).Post("/", handler.Create)
}

// List returns every registered user. The password hash never leaves
// the server; an unreadable backing file degrades to an empty list.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users := h.dir.Registered()
	if users == nil {
		users = []types.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// Create appends a registered user. The password is digested
// server-side; plaintext is never stored.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.FullName = strings.TrimSpace(req.FullName)
	req.Role = strings.TrimSpace(req.Role)
	req.Barangay = strings.TrimSpace(req.Barangay)
	req.Phone = strings.TrimSpace(req.Phone)

	if req.Username == "" || req.Password == "" || req.FullName == "" {
		writeError(w, http.StatusBadRequest, "username, password and fullName are required")
		return
	}
	if !types.ValidRole(req.Role) {
		req.Role = types.RoleUser
	}

	user := types.User{
		ID:             idx.New(),
		Username:       req.Username,
		PasswordHash:   auth.HashPassword(req.Password),
		Role:           req.Role,
		FullName:       req.FullName,
		Barangay:       req.Barangay,
		Phone:          req.Phone,
		PhoneVerified:  true,
		DateRegistered: time.Now().Format(registeredDateLayout),
	}

	if err := h.dir.AddRegistered(r.Context(), user); err != nil {
		if errors.Is(err, directory.ErrDuplicate) {
			writeError(w, http.StatusConflict, "username already exists")
			return
		}
		h.log.Error("create user", "username", req.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}

	writeJSON(w, http.StatusCreated, CreateUserResponse{Success: true, User: user})
}

type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
	Barangay string `json:"barangay"`
	Phone    string `json:"phone"`
}

type CreateUserResponse struct {
	Success bool       `json:"success"`
	User    types.User `json:"user"`
}
