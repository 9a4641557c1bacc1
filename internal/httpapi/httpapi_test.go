package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jmhannon/rigel-master/internal/config"
	"github.com/jmhannon/rigel-master/internal/opauth"
	"github.com/jmhannon/rigel-master/internal/telshm"
	"github.com/jmhannon/rigel-master/internal/teltypes"
)

func newTestServer(t *testing.T, submit CommandSubmitter) (*Server, *telshm.Publisher) {
	t.Helper()
	pub := telshm.New()
	svc := opauth.NewService(opauth.Config{JWTSecret: "test-secret", BCryptCost: 4})
	hash, err := svc.HashPassword("letmein")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	cfg := config.APIConfig{
		Enabled:       true,
		Port:          0,
		JWTSecret:     "test-secret",
		TokenHours:    1,
		AdminUser:     "admin",
		AdminPassHash: hash,
	}
	return New(cfg, pub, submit), pub
}

func TestGetStatus(t *testing.T) {
	srv, pub := newTestServer(t, nil)

	var status teltypes.TelStatShm
	status.TelState = teltypes.TelTracking
	pub.Publish(status)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var snap telshm.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("Failed to decode status: %v", err)
	}
	if snap.Status.TelState != teltypes.TelTracking {
		t.Errorf("Expected TRACKING in snapshot, got %v", snap.Status.TelState)
	}
	if snap.Header.Seq != 1 {
		t.Errorf("Expected seq 1, got %d", snap.Header.Seq)
	}
}

func login(t *testing.T, srv *Server) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "letmein"})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Login failed: %d %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode login response: %v", err)
	}
	return resp.Token
}

func TestAdminStopRequiresAuth(t *testing.T) {
	srv, _ := newTestServer(t, func(device, line string) error { return nil })

	req := httptest.NewRequest(http.MethodPost, "/admin/stop", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", rec.Code)
	}
}

func TestAdminStopSubmitsToEveryDevice(t *testing.T) {
	submitted := map[string]string{}
	srv, _ := newTestServer(t, func(device, line string) error {
		submitted[device] = line
		return nil
	})
	token := login(t, srv)

	req := httptest.NewRequest(http.MethodPost, "/admin/stop", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	for _, device := range []string{"tel", "dome", "focus"} {
		if submitted[device] != "stop" {
			t.Errorf("Expected stop submitted to %s, got %q", device, submitted[device])
		}
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for bad password, got %d", rec.Code)
	}
}

func TestStatusStreamEndpointExists(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	// A plain GET (no upgrade headers) must not panic; the upgrader
	// rejects it with a 4xx.
	req := httptest.NewRequest(http.MethodGet, "/status/stream", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code < 400 || rec.Code >= 500 {
		t.Errorf("Expected a 4xx for a non-websocket request, got %d", rec.Code)
	}
}
