package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/example/fleet-dispatch/internal/config"
	"github.com/example/fleet-dispatch/internal/models"
	"github.com/example/fleet-dispatch/internal/storage"
)

func testConfig() config.ServerConfig {
	return config.ServerConfig{
		DispatchRadiusMeters:  8047,
		MaxDistanceMeters:     10000,
		BookingRequestTimeout: 60 * time.Second,
		Currency:              "usd",
	}
}

func newTestServer(t *testing.T, cfg config.ServerConfig) *Server {
	t.Helper()
	s := NewServer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.Store.(*storage.MemoryStore).PutUser(&models.User{
		ID: "d1", FirstName: "Dana", Role: models.RoleDriver, IsActive: true,
	})
	return s
}

func doJSON(t *testing.T, s *Server, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	var resp apiResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func TestCreateBookingOverHTTP(t *testing.T) {
	s := newTestServer(t, testConfig())
	hdr := map[string]string{"X-User-ID": "d1"}
	body := map[string]any{"vehiclePlateNumber": "ABC-123", "issueDescription": "flat tire"}

	rec, resp := doJSON(t, s, "POST", "/api/v1/bookings", body, hdr)
	if rec.Code != http.StatusOK || resp.Status != 1 {
		t.Fatalf("expected 200/1, got %d/%d: %s", rec.Code, resp.Status, resp.Message)
	}

	// a second pending booking for the same driver is refused
	rec, resp = doJSON(t, s, "POST", "/api/v1/bookings", body, hdr)
	if rec.Code != http.StatusBadRequest || resp.Status != 0 {
		t.Fatalf("expected 400/0, got %d/%d: %s", rec.Code, resp.Status, resp.Message)
	}
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t, testConfig())
	hdr := map[string]string{"X-User-ID": "d1"}
	body := map[string]any{"vehiclePlateNumber": "ABC-123"}

	_, created := doJSON(t, s, "POST", "/api/v1/bookings", body, hdr)
	b, _ := created.Data.(map[string]any)
	id, _ := b["id"].(string)
	if id == "" {
		t.Fatalf("booking id missing from %+v", created.Data)
	}

	rec, resp := doJSON(t, s, "GET", "/api/v1/bookings/"+id, nil, hdr)
	if rec.Code != http.StatusOK || resp.Status != 1 {
		t.Fatalf("get: expected 200/1, got %d/%d", rec.Code, resp.Status)
	}

	rec, resp = doJSON(t, s, "PATCH", "/api/v1/bookings/"+id+"/cancel", nil, hdr)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d: %s", rec.Code, resp.Message)
	}
	got, _ := resp.Data.(map[string]any)
	if got["status"] != models.StatusCancelled {
		t.Fatalf("expected cancelled, got %v", got["status"])
	}

	rec, resp = doJSON(t, s, "GET", "/api/v1/bookings?status=cancelled", nil, hdr)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	list, _ := resp.Data.([]any)
	if len(list) != 1 {
		t.Fatalf("expected one cancelled booking, got %d", len(list))
	}
}

func TestGetUnknownBookingIs404(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec, resp := doJSON(t, s, "GET", "/api/v1/bookings/nope", nil, map[string]string{"X-User-ID": "d1"})
	if rec.Code != http.StatusNotFound || resp.Status != 0 {
		t.Fatalf("expected 404/0, got %d/%d", rec.Code, resp.Status)
	}
}

func TestAuthRejectsAnonymousCaller(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec, resp := doJSON(t, s, "GET", "/api/v1/bookings", nil, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	// unauthorized keeps wire status 1; clients key off the HTTP code
	if resp.Status != 1 {
		t.Fatalf("expected status 1, got %d", resp.Status)
	}
}

func TestJWTAuth(t *testing.T) {
	cfg := testConfig()
	cfg.JWTSecret = "test-secret"
	s := newTestServer(t, cfg)

	sign := func(secret string) string {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "d1"})
		raw, err := tok.SignedString([]byte(secret))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return raw
	}

	rec, _ := doJSON(t, s, "GET", "/api/v1/bookings", nil,
		map[string]string{"Authorization": "Bearer " + sign("test-secret")})
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token: expected 200, got %d", rec.Code)
	}

	rec, _ = doJSON(t, s, "GET", "/api/v1/bookings", nil,
		map[string]string{"Authorization": "Bearer " + sign("wrong-secret")})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("forged token: expected 403, got %d", rec.Code)
	}

	// header fallback is off once a secret is configured
	rec, _ = doJSON(t, s, "GET", "/api/v1/bookings", nil, map[string]string{"X-User-ID": "d1"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("header fallback: expected 403, got %d", rec.Code)
	}
}

func TestNotificationsEndpoint(t *testing.T) {
	s := newTestServer(t, testConfig())
	n := &models.Notification{ID: "n1", SenderID: "m1", ReceiverID: "d1", Message: "hi", Type: models.NotifyQuote}
	if err := s.Store.CreateNotification(context.Background(), n); err != nil {
		t.Fatalf("seed notification: %v", err)
	}
	hdr := map[string]string{"X-User-ID": "d1"}

	rec, resp := doJSON(t, s, "GET", "/api/v1/notifications?status=unread", nil, hdr)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	list, _ := resp.Data.([]any)
	if len(list) != 1 {
		t.Fatalf("expected one unread notification, got %d", len(list))
	}

	rec, _ = doJSON(t, s, "PATCH", "/api/v1/notifications/n1/read", nil, hdr)
	if rec.Code != http.StatusOK {
		t.Fatalf("mark read: expected 200, got %d", rec.Code)
	}
	_, resp = doJSON(t, s, "GET", "/api/v1/notifications?status=unread", nil, hdr)
	list, _ = resp.Data.([]any)
	if len(list) != 0 {
		t.Fatalf("expected no unread notifications, got %d", len(list))
	}
}

func TestMechanicLocationIngest(t *testing.T) {
	s := newTestServer(t, testConfig())
	body := map[string]any{"user_id": "m1", "loc": map[string]float64{"lat": 1, "lon": 2}}

	rec, _ := doJSON(t, s, "POST", "/internal/mechanic/locations", body, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec, _ = doJSON(t, s, "POST", "/internal/mechanic/locations", map[string]any{}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing user_id: expected 400, got %d", rec.Code)
	}
}
