package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/harborstay/loyalty/internal/database"
	"github.com/harborstay/loyalty/internal/loyalty"
	"github.com/harborstay/loyalty/internal/model"
)

func setupServer(t *testing.T) *Server {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(db, loyalty.DefaultSchedule(), logger)
}

func TestHealthEndpoint(t *testing.T) {
	srv := setupServer(t)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["status"] != "ok" {
		t.Errorf("status = %q, want ok", resp["status"])
	}
}

func TestAPIOpenWithoutKeys(t *testing.T) {
	srv := setupServer(t)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/api/tiers", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (fresh install runs open)", w.Code)
	}
	var levels []model.TierLevel
	if err := json.Unmarshal(w.Body.Bytes(), &levels); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(levels) != 4 {
		t.Errorf("len = %d, want 4", len(levels))
	}
}

func TestAPIKeyEnforcement(t *testing.T) {
	srv := setupServer(t)
	router := srv.Router()

	// Mint a key while the API is still open
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/api/keys", jsonBody(`{"name":"ops"}`)))
	if w.Code != http.StatusCreated {
		t.Fatalf("mint key status = %d, want 201: %s", w.Code, w.Body.String())
	}
	var minted map[string]any
	json.Unmarshal(w.Body.Bytes(), &minted)
	key, _ := minted["key"].(string)
	if key == "" {
		t.Fatal("expected plaintext key in mint response")
	}

	// Without the key: rejected
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/tiers", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 once a key exists", w.Code)
	}

	// With the key: allowed
	req := httptest.NewRequest("GET", "/api/tiers", nil)
	req.Header.Set("Authorization", "Bearer "+key)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with valid key", w.Code)
	}
}

func TestEarnThroughRouter(t *testing.T) {
	srv := setupServer(t)
	member := uuid.NewString()

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("POST", "/api/members/"+member+"/earn", jsonBody(`{"amount":100}`)))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}

	var tx model.Transaction
	if err := json.Unmarshal(w.Body.Bytes(), &tx); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tx.Points != 1000 {
		t.Errorf("points = %d, want 1000", tx.Points)
	}
}

func jsonBody(s string) io.Reader {
	return strings.NewReader(s)
}
