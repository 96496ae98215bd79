package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/resourceshare-ph/apiserver/internal/auth"
	"github.com/resourceshare-ph/apiserver/types"
)

const defaultTokenTTL = 24 * time.Hour

// Philippine mobile numbers: 09 followed by nine digits.
var phonePattern = regexp.MustCompile(`^09\d{9}$`)

const loginRateLimit = 5

// AuthHandler provides session endpoints over the auth manager.
type AuthHandler struct {
	auth     *auth.Manager
	secret   []byte
	tokenTTL time.Duration
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(manager *auth.Manager, jwtSecret string, tokenTTL time.Duration) *AuthHandler {
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	return &AuthHandler{
		auth:     manager,
		secret:   []byte(jwtSecret),
		tokenTTL: tokenTTL,
	}
}

// AuthRouter registers auth routes on the given router. Credential
// endpoints are rate limited per client IP.
func AuthRouter(r chi.Router, manager *auth.Manager, jwtSecret string, tokenTTL time.Duration) {
	handler := NewAuthHandler(manager, jwtSecret, tokenTTL)

	r.With(RateLimit(loginRateLimit, time.Minute)).Post("/login", handler.Login)
	r.With(RateLimit(loginRateLimit, time.Minute)).Post("/register", handler.Register)
	r.With(handler.RequireAuth).Post("/logout", handler.Logout)
	r.With(handler.RequireAuth).Get("/me", handler.Me)
	r.With(handler.RequireAuth).Put("/profile", handler.UpdateProfile)
}

// RequireAuth enforces bearer authentication and injects the session
// into context. The token subject is the session ID; a token whose
// session no longer exists is as unauthorized as no token at all.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := bearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		sessionID, err := parseTokenSubject(tokenString, h.secret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		session, ok := h.auth.SessionByID(r.Context(), sessionID)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), contextSessionKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Login verifies credentials and returns a bearer token plus the
// session projection.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	session, ok := h.auth.Login(r.Context(), req.Username, req.Password)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	token, err := issueToken(session.ID, h.secret, h.tokenTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Token: token, Session: session})
}

// Register creates a new account. The admin role cannot be
// self-assigned here.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.FullName = strings.TrimSpace(req.FullName)
	req.Barangay = strings.TrimSpace(req.Barangay)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Role = strings.TrimSpace(req.Role)

	if req.Username == "" || req.Password == "" || req.FullName == "" {
		writeJSON(w, http.StatusBadRequest, auth.Result{Success: false, Message: "Username, password and full name are required"})
		return
	}
	if req.Phone != "" && !phonePattern.MatchString(req.Phone) {
		writeJSON(w, http.StatusBadRequest, auth.Result{Success: false, Message: "Phone must be a valid mobile number (09XXXXXXXXX)"})
		return
	}
	if req.Role != "" && (req.Role == types.RoleAdmin || !types.ValidRole(req.Role)) {
		writeJSON(w, http.StatusBadRequest, auth.Result{Success: false, Message: "Invalid role"})
		return
	}

	result := h.auth.Register(r.Context(), req.Username, req.Password, req.FullName, req.Barangay, req.Phone, req.Role)
	switch result.Code {
	case auth.CodeOK:
		writeJSON(w, http.StatusCreated, result)
	case auth.CodeDuplicate:
		writeJSON(w, http.StatusConflict, result)
	default:
		writeJSON(w, http.StatusInternalServerError, result)
	}
}

// Logout removes the current session. Always succeeds.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	h.auth.Logout(r.Context(), session.ID)
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the current session projection.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	session, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// UpdateProfile changes profile fields and optionally the password
// after re-verifying the current one.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	session, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.FullName = strings.TrimSpace(req.FullName)
	req.Barangay = strings.TrimSpace(req.Barangay)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.FullName == "" {
		writeJSON(w, http.StatusBadRequest, auth.Result{Success: false, Message: "Full name is required"})
		return
	}
	if req.Phone != "" && !phonePattern.MatchString(req.Phone) {
		writeJSON(w, http.StatusBadRequest, auth.Result{Success: false, Message: "Phone must be a valid mobile number (09XXXXXXXXX)"})
		return
	}

	result := h.auth.UpdateProfile(r.Context(), session.ID, req.FullName, req.Barangay, req.Phone, req.CurrentPassword, req.NewPassword)
	switch result.Code {
	case auth.CodeOK:
		writeJSON(w, http.StatusOK, result)
	case auth.CodeNotLoggedIn:
		writeJSON(w, http.StatusUnauthorized, result)
	case auth.CodeWrongPassword:
		writeJSON(w, http.StatusBadRequest, result)
	default:
		writeJSON(w, http.StatusInternalServerError, result)
	}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Barangay string `json:"barangay"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

type ProfileRequest struct {
	FullName        string `json:"fullName"`
	Barangay        string `json:"barangay"`
	Phone           string `json:"phone"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type AuthResponse struct {
	Token   string        `json:"token"`
	Session types.Session `json:"session"`
}

func issueToken(sessionID string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parseTokenSubject(tokenString string, secret []byte) (string, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("missing subject")
	}
	return claims.Subject, nil
}

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
