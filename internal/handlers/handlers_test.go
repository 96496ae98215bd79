package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resourceshare-ph/apiserver/config"
	"github.com/resourceshare-ph/apiserver/internal/server"
	"github.com/resourceshare-ph/apiserver/types"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.Config{
		JWTSecret: "test-secret",
		DataDir:   t.TempDir(),
		Bulk:      config.BulkConfig{Backend: "none"},
		Events:    config.EventsConfig{Backend: "none"},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := server.New(context.Background(), cfg, log)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
}

func registerAndLogin(t *testing.T, ts *httptest.Server, username string) string {
	t.Helper()
	resp := doJSON(t, http.MethodPost, ts.URL+"/auth/register", "", map[string]string{
		"username": username,
		"password": "secret123",
		"fullName": "Test User",
		"barangay": "Poblacion",
		"phone":    "09171234567",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, ts.URL+"/auth/login", "", map[string]string{
		"username": username,
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var auth struct {
		Token   string        `json:"token"`
		Session types.Session `json:"session"`
	}
	decodeBody(t, resp, &auth)
	require.NotEmpty(t, auth.Token)
	return auth.Token
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegisterLoginMe(t *testing.T) {
	ts := newTestServer(t)
	token := registerAndLogin(t, ts, "alice")

	resp := doJSON(t, http.MethodGet, ts.URL+"/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var session types.Session
	decodeBody(t, resp, &session)
	assert.Equal(t, "alice", session.Username)
	assert.Equal(t, types.RoleUser, session.Role)
	assert.True(t, session.PhoneVerified)
}

func TestLoginWrongPassword(t *testing.T) {
	ts := newTestServer(t)
	registerAndLogin(t, ts, "alice")

	resp := doJSON(t, http.MethodPost, ts.URL+"/auth/login", "", map[string]string{
		"username": "alice",
		"password": "wrong",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterRejectsAdminRole(t *testing.T) {
	ts := newTestServer(t)
	resp := doJSON(t, http.MethodPost, ts.URL+"/auth/register", "", map[string]string{
		"username": "mallory",
		"password": "secret123",
		"fullName": "Mallory",
		"role":     "admin",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegisterRejectsBadPhone(t *testing.T) {
	ts := newTestServer(t)
	resp := doJSON(t, http.MethodPost, ts.URL+"/auth/register", "", map[string]string{
		"username": "bob",
		"password": "secret123",
		"fullName": "Bob",
		"phone":    "12345",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogoutInvalidatesToken(t *testing.T) {
	ts := newTestServer(t)
	token := registerAndLogin(t, ts, "alice")

	resp := doJSON(t, http.MethodPost, ts.URL+"/auth/logout", token, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, ts.URL+"/auth/me", token, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginRateLimited(t *testing.T) {
	ts := newTestServer(t)

	var last int
	for i := 0; i < 6; i++ {
		resp := doJSON(t, http.MethodPost, ts.URL+"/auth/login", "", map[string]string{
			"username": "nobody",
			"password": "nope",
		})
		resp.Body.Close()
		last = resp.StatusCode
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestUpdateProfile(t *testing.T) {
	ts := newTestServer(t)
	token := registerAndLogin(t, ts, "alice")

	resp := doJSON(t, http.MethodPut, ts.URL+"/auth/profile", token, map[string]string{
		"fullName":        "Alice Reyes",
		"barangay":        "San Roque",
		"phone":           "09179876543",
		"currentPassword": "wrong",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodPut, ts.URL+"/auth/profile", token, map[string]string{
		"fullName":        "Alice Reyes",
		"barangay":        "San Roque",
		"phone":           "09179876543",
		"currentPassword": "secret123",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, ts.URL+"/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var session types.Session
	decodeBody(t, resp, &session)
	assert.Equal(t, "Alice Reyes", session.FullName)
	assert.Equal(t, "San Roque", session.Barangay)
}

func TestUsersEndpoint(t *testing.T) {
	ts := newTestServer(t)

	// Blank required fields.
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/users", "", map[string]string{
		"username": "maria",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := map[string]string{
		"username": "maria",
		"password": "secret123",
		"fullName": "Maria Santos",
		"barangay": "Poblacion",
	}
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/users", "", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		Success bool       `json:"success"`
		User    types.User `json:"user"`
	}
	decodeBody(t, resp, &created)
	assert.True(t, created.Success)
	assert.Equal(t, "maria", created.User.Username)
	assert.Equal(t, types.RoleUser, created.User.Role)

	// Same username again conflicts.
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/users", "", body)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, err := http.Get(ts.URL + "/api/users")
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, string(raw), "passwordHash", "digests never leave the server")

	var users []types.User
	require.NoError(t, json.Unmarshal(raw, &users))
	require.Len(t, users, 1)
	assert.Equal(t, "maria", users[0].Username)
}

func TestUsersEndpointEmptyList(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/users")
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "[]", strings.TrimSpace(string(raw)))
}

func TestResourceCRUDOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	token := registerAndLogin(t, ts, "alice")

	// Unauthenticated requests are refused.
	resp := doJSON(t, http.MethodGet, ts.URL+"/resources", "", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, ts.URL+"/resources", token, map[string]string{
		"name":     "Generator",
		"category": "equipment",
		"location": "Brgy1",
		"contact":  "09171234567",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created types.Resource
	decodeBody(t, resp, &created)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "alice", created.Username)

	resp = doJSON(t, http.MethodPut, ts.URL+"/resources/"+created.ID, token, map[string]string{
		"location": "Brgy7",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated types.Resource
	decodeBody(t, resp, &updated)
	assert.Equal(t, "Brgy7", updated.Location)
	assert.Equal(t, "Generator", updated.Name)

	resp = doJSON(t, http.MethodPut, ts.URL+"/resources/no-such-id", token, map[string]string{
		"location": "Brgy7",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, ts.URL+"/resources/"+created.ID, token, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, ts.URL+"/resources", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []types.Resource
	decodeBody(t, resp, &list)
	assert.Empty(t, list)
}

func TestResourceCreateValidation(t *testing.T) {
	ts := newTestServer(t)
	token := registerAndLogin(t, ts, "alice")

	resp := doJSON(t, http.MethodPost, ts.URL+"/resources", token, map[string]string{
		"name": "Generator",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body struct {
		Error string `json:"error"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "category is required", body.Error)
}

func TestMutatingForeignRecordForbidden(t *testing.T) {
	ts := newTestServer(t)
	aliceToken := registerAndLogin(t, ts, "alice")
	bobToken := registerAndLogin(t, ts, "bob")

	resp := doJSON(t, http.MethodPost, ts.URL+"/requests", aliceToken, map[string]string{
		"need":     "Water",
		"urgency":  "critical",
		"location": "Brgy1",
		"contact":  "09171234567",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created types.Request
	decodeBody(t, resp, &created)

	resp = doJSON(t, http.MethodPut, ts.URL+"/requests/"+created.ID, bobToken, map[string]string{
		"need": "Hijacked",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, ts.URL+"/requests/"+created.ID, bobToken, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRequestsListedByUrgency(t *testing.T) {
	ts := newTestServer(t)
	token := registerAndLogin(t, ts, "alice")

	for _, urgency := range []string{"low", "critical", "moderate"} {
		resp := doJSON(t, http.MethodPost, ts.URL+"/requests", token, map[string]string{
			"need":     "Need " + urgency,
			"urgency":  urgency,
			"location": "Brgy1",
			"contact":  "09171234567",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	resp := doJSON(t, http.MethodGet, ts.URL+"/requests", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []types.Request
	decodeBody(t, resp, &list)
	require.Len(t, list, 3)
	assert.Equal(t, "critical", list[0].Urgency)
	assert.Equal(t, "moderate", list[1].Urgency)
	assert.Equal(t, "low", list[2].Urgency)
}

func TestExportResourcesCSV(t *testing.T) {
	ts := newTestServer(t)
	token := registerAndLogin(t, ts, "alice")

	resp := doJSON(t, http.MethodPost, ts.URL+"/resources", token, map[string]string{
		"name":     "Rice, milled",
		"category": "food",
		"location": "Brgy1",
		"contact":  "09171234567",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, ts.URL+"/export/resources", token, nil)
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))

	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ID,Resource Name,Category,Location,Contact,Notes,Date Shared,Username", strings.TrimSpace(lines[0]))
	assert.Contains(t, lines[1], `"Rice, milled"`)
}

func TestExportUsersRequiresAdmin(t *testing.T) {
	ts := newTestServer(t)
	token := registerAndLogin(t, ts, "alice")

	resp := doJSON(t, http.MethodGet, ts.URL+"/export/users", token, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestExportUnknownTable(t *testing.T) {
	ts := newTestServer(t)
	token := registerAndLogin(t, ts, "alice")

	resp := doJSON(t, http.MethodGet, ts.URL+"/export/nonsense", token, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestKitchenAndTransportCreate(t *testing.T) {
	ts := newTestServer(t)
	token := registerAndLogin(t, ts, "alice")

	resp := doJSON(t, http.MethodPost, ts.URL+"/kitchens", token, map[string]any{
		"location": "Brgy1",
		"date":     "1/5/2026",
		"time":     "11:00",
		"capacity": 50,
		"menu":     "Arroz caldo",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var kitchen types.Kitchen
	decodeBody(t, resp, &kitchen)
	assert.Equal(t, 50, kitchen.Capacity)

	resp = doJSON(t, http.MethodPost, ts.URL+"/transport", token, map[string]any{
		"type":    "jeepney",
		"from":    "Brgy1",
		"to":      "Evac Center",
		"when":    "1/5/2026 08:00",
		"seats":   12,
		"contact": "09171234567",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var offer types.Transport
	decodeBody(t, resp, &offer)
	assert.Equal(t, 12, offer.Seats)

	// Zero seats is rejected.
	resp = doJSON(t, http.MethodPost, ts.URL+"/transport", token, map[string]any{
		"type":    "jeepney",
		"from":    "Brgy1",
		"to":      "Evac Center",
		"when":    "1/5/2026 08:00",
		"contact": "09171234567",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDataSurvivesRestart(t *testing.T) {
	dataDir := t.TempDir()
	cfg := config.Config{
		JWTSecret: "test-secret",
		DataDir:   dataDir,
		Bulk:      config.BulkConfig{Backend: "none"},
		Events:    config.EventsConfig{Backend: "none"},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv, err := server.New(context.Background(), cfg, log)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Router())
	token := registerAndLogin(t, ts, "alice")

	resp := doJSON(t, http.MethodPost, ts.URL+"/resources", token, map[string]string{
		"name":     "Generator",
		"category": "equipment",
		"location": "Brgy1",
		"contact":  "09171234567",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
	ts.Close()

	// A new process over the same data directory sees the same state,
	// including the still-valid session.
	srv2, err := server.New(context.Background(), cfg, log)
	require.NoError(t, err)
	ts2 := httptest.NewServer(srv2.Router())
	defer ts2.Close()

	resp = doJSON(t, http.MethodGet, ts2.URL+"/resources", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []types.Resource
	decodeBody(t, resp, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Generator", list[0].Name)
}

func TestBulkSeedVisibleAfterStartup(t *testing.T) {
	assetDir := t.TempDir()
	writeAsset(t, assetDir, "ShareResources.csv",
		"ID,Resource Name,Category,Location,Contact,Notes,Date Shared,Username\n"+
			"r1,Rice,food,Brgy1,09170000001,,1/1/2025,maria\n")
	writeAsset(t, assetDir, "Users.csv",
		"Username,PasswordHash,Role,FullName,Barangay,Phone,PhoneVerified,DateRegistered\n"+
			"maria,5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8,user,Maria,Brgy1,09170000001,true,1/1/2025\n")

	cfg := config.Config{
		JWTSecret: "test-secret",
		DataDir:   t.TempDir(),
		Bulk:      config.BulkConfig{Backend: "local", Dir: assetDir},
		Events:    config.EventsConfig{Backend: "none"},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := server.New(context.Background(), cfg, log)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	// Bulk users can log in; the hash above is sha256("password").
	resp := doJSON(t, http.MethodPost, ts.URL+"/auth/login", "", map[string]string{
		"username": "maria",
		"password": "password",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var auth struct {
		Token string `json:"token"`
	}
	decodeBody(t, resp, &auth)

	resp = doJSON(t, http.MethodGet, ts.URL+"/resources", auth.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []types.Resource
	decodeBody(t, resp, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "r1", list[0].ID)
	assert.Equal(t, "Rice", list[0].Name)
}

func writeAsset(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
