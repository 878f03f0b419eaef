package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/promptveil/veil/internal/config"
	"github.com/promptveil/veil/internal/llm"
	"github.com/promptveil/veil/internal/logger"
	"github.com/promptveil/veil/internal/session"
)

func testConfig() *config.Config {
	cfg := config.GetDefaults()
	cfg.RateLimit.Enabled = false
	cfg.Audit.Enabled = false
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) (*Server, session.Store) {
	t.Helper()
	log := &logger.Logger{Logger: zap.NewNop()}
	store := session.NewMemoryStore(0)
	t.Cleanup(func() { store.Close() })

	client := llm.NewSimulatedClientWithSeed(log, 1)
	srv, err := New(cfg, log, store, client, nil)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	return srv, store
}

func postJSON(t *testing.T, srv *Server, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

// TestChatEndpoint tests the full mask -> generate -> unmask flow
func TestChatEndpoint(t *testing.T) {
	t.Run("MaskedRoundTrip", func(t *testing.T) {
		srv, _ := newTestServer(t, testConfig())

		rec := postJSON(t, srv, "/api/chat", map[string]string{
			"message": "My email is john@example.com",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var resp chatResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if !resp.Success {
			t.Fatal("Expected success=true")
		}
		if resp.SessionID == "" {
			t.Error("Expected a generated session_id")
		}
		if strings.Contains(resp.MaskedPrompt, "@") {
			t.Errorf("Masked prompt leaked the email: %q", resp.MaskedPrompt)
		}
		if !strings.Contains(resp.MaskedPrompt, "[EMAIL_0]") {
			t.Errorf("Expected placeholder in masked prompt, got %q", resp.MaskedPrompt)
		}
		// The simulated model echoes [EMAIL_0]; the final response must have
		// it resolved back to the original address
		if !strings.Contains(resp.FinalResponse, "john@example.com") {
			t.Errorf("Final response did not restore the email: %q", resp.FinalResponse)
		}
		if strings.Contains(resp.FinalResponse, "[EMAIL_0]") {
			t.Errorf("Placeholder left in final response: %q", resp.FinalResponse)
		}
	})

	t.Run("SessionAccumulatesMappings", func(t *testing.T) {
		srv, store := newTestServer(t, testConfig())

		first := postJSON(t, srv, "/api/chat", map[string]string{
			"message":    "My email is a@b.com",
			"session_id": "sess-1",
		})
		if first.Code != http.StatusOK {
			t.Fatalf("First request failed: %d", first.Code)
		}
		second := postJSON(t, srv, "/api/chat", map[string]string{
			"message":    "My phone is 555-123-4567",
			"session_id": "sess-1",
		})
		if second.Code != http.StatusOK {
			t.Fatalf("Second request failed: %d", second.Code)
		}

		mappings, err := store.Get(context.Background(), "sess-1")
		if err != nil {
			t.Fatalf("Store get failed: %v", err)
		}
		if mappings["[EMAIL_0]"] != "a@b.com" || mappings["[PHONE_0]"] != "555-123-4567" {
			t.Errorf("Expected union of both turns in the store, got %v", mappings)
		}
	})

	t.Run("MissingMessage", func(t *testing.T) {
		srv, _ := newTestServer(t, testConfig())

		rec := postJSON(t, srv, "/api/chat", map[string]string{})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("Expected 400, got %d", rec.Code)
		}

		var resp errorResponse
		json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp.Success {
			t.Error("Expected success=false in error envelope")
		}
		if resp.Error == "" {
			t.Error("Expected an error message")
		}
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		srv, _ := newTestServer(t, testConfig())

		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("Expected 400, got %d", rec.Code)
		}
	})
}

// TestMaskEndpoint tests standalone masking
func TestMaskEndpoint(t *testing.T) {
	t.Run("ReturnsMappings", func(t *testing.T) {
		srv, _ := newTestServer(t, testConfig())

		rec := postJSON(t, srv, "/api/mask", map[string]string{
			"text": "I'm a 30-year-old female with diabetes living in San Francisco.",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var resp maskResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if !resp.Success {
			t.Fatal("Expected success=true")
		}
		if len(resp.DetectedEntities) != 4 {
			t.Errorf("Expected 4 detections, got %v", resp.DetectedEntities)
		}
		if resp.Mappings["[DISEASE_0]"] != "diabetes" {
			t.Errorf("Unexpected mappings: %v", resp.Mappings)
		}
		if resp.OriginalText == resp.MaskedText {
			t.Error("Masked text should differ from original")
		}
	})

	t.Run("MissingText", func(t *testing.T) {
		srv, _ := newTestServer(t, testConfig())

		rec := postJSON(t, srv, "/api/mask", map[string]string{})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("Expected 400, got %d", rec.Code)
		}
	})
}

// TestUnmaskEndpoint tests caller-supplied mapping restoration
func TestUnmaskEndpoint(t *testing.T) {
	t.Run("RestoresOriginals", func(t *testing.T) {
		srv, _ := newTestServer(t, testConfig())

		rec := postJSON(t, srv, "/api/unmask", unmaskRequest{
			MaskedText: "At [AGE_0], [MENTAL_HEALTH_0] is common. Contact [EMAIL_0] in [LOCATION_0].",
			Mappings: map[string]string{
				"[AGE_0]":           "25 years old",
				"[MENTAL_HEALTH_0]": "anxiety",
				"[EMAIL_0]":         "support@example.com",
				"[LOCATION_0]":      "New York",
			},
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}

		var resp unmaskResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		want := "At 25 years old, anxiety is common. Contact support@example.com in New York."
		if resp.UnmaskedText != want {
			t.Errorf("Unmask mismatch:\n got  %q\n want %q", resp.UnmaskedText, want)
		}
	})

	t.Run("MissingMaskedText", func(t *testing.T) {
		srv, _ := newTestServer(t, testConfig())

		rec := postJSON(t, srv, "/api/unmask", map[string]string{})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("Expected 400, got %d", rec.Code)
		}
	})
}

// TestHealthAndInfo tests the operational endpoints
func TestHealthAndInfo(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	t.Run("Health", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "healthy") {
			t.Errorf("Unexpected health body: %s", rec.Body.String())
		}
	})

	t.Run("Info", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/info", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}

		var info map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
			t.Fatalf("Failed to decode info: %v", err)
		}
		if info["name"] != "veil" {
			t.Errorf("Unexpected service name: %v", info["name"])
		}
		if info["llm_mode"] != "simulate" {
			t.Errorf("Unexpected llm_mode: %v", info["llm_mode"])
		}
	})

	t.Run("MethodNotAllowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/mask", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("Expected 405, got %d", rec.Code)
		}
	})
}

// TestRateLimit tests per-IP throttling on the API routes
func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.RPS = 0.001
	cfg.RateLimit.Burst = 1
	srv, _ := newTestServer(t, cfg)

	first := postJSON(t, srv, "/api/mask", map[string]string{"text": "hello"})
	if first.Code != http.StatusOK {
		t.Fatalf("First request should pass, got %d", first.Code)
	}

	second := postJSON(t, srv, "/api/mask", map[string]string{"text": "hello"})
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("Second request should be throttled, got %d", second.Code)
	}

	var resp errorResponse
	json.Unmarshal(second.Body.Bytes(), &resp)
	if resp.Success {
		t.Error("Throttled response should carry the error envelope")
	}
}

// TestReload tests applying a changed configuration to a running server
func TestReload(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	// Narrow the categories and verify the swap took effect
	newCfg := testConfig()
	newCfg.Masking.Categories = []string{"email"}
	if err := srv.Reload(newCfg); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	rec := postJSON(t, srv, "/api/mask", map[string]string{
		"text": "I have anxiety, reach me at a@b.com",
	})
	var resp maskResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Mappings["[EMAIL_0]"] != "a@b.com" {
		t.Errorf("Email should still be masked: %v", resp.Mappings)
	}
	if !strings.Contains(resp.MaskedText, "anxiety") {
		t.Errorf("MENTAL_HEALTH should be disabled after reload: %q", resp.MaskedText)
	}

	t.Run("InvalidCategoriesRejected", func(t *testing.T) {
		bad := testConfig()
		bad.Masking.Categories = []string{"ssn"}
		if err := srv.Reload(bad); err == nil {
			t.Fatal("Expected error for unknown category")
		}
	})
}

// TestNoRateLimitOnHealth verifies probes bypass the limiter
func TestNoRateLimitOnHealth(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.RPS = 0.001
	cfg.RateLimit.Burst = 1
	srv, _ := newTestServer(t, cfg)

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("Health check %d throttled: %d", i, rec.Code)
		}
	}
}
