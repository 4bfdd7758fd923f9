package v1

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestHealthDegradedWhenDependenciesDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", healthHandler(nil))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp struct {
		Code int `json:"code"`
		Data struct {
			Status  string `json:"status"`
			Version string `json:"version"`
			MySQL   string `json:"mysql"`
			Redis   string `json:"redis"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Data.MySQL != "unavailable" {
		t.Errorf("expected mysql unavailable, got %q", resp.Data.MySQL)
	}
	if resp.Data.Redis != "unavailable" {
		t.Errorf("expected redis unavailable, got %q", resp.Data.Redis)
	}
	// An unavailable dependency must never report healthy
	if resp.Data.Status != "degraded" {
		t.Errorf("expected degraded status, got %q", resp.Data.Status)
	}
	if resp.Data.Version == "" {
		t.Error("expected a version string")
	}
}
