package versions

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"promptlab/internal/config"
	"promptlab/internal/httpx"
	"promptlab/internal/version"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// stubPrompts is a minimal prompt collaborator for handler tests
type stubPrompts struct {
	content map[string]string
}

func (s *stubPrompts) Exists(ctx context.Context, promptID string) (bool, error) {
	_, ok := s.content[promptID]
	return ok, nil
}

func (s *stubPrompts) GetContent(ctx context.Context, promptID string) (string, error) {
	return s.content[promptID], nil
}

func (s *stubPrompts) SetContent(ctx context.Context, promptID, content string) error {
	s.content[promptID] = content
	return nil
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	manager := version.NewManager(
		version.NewMemStore(),
		&stubPrompts{content: map[string]string{"p1": "summarize the following text"}},
		config.VersioningConfig{MaxActiveVersions: 50, GuardTimeoutMS: 1000},
		logrus.NewEntry(logger),
	)

	r := gin.New()
	handler := NewHandler(manager)
	r.POST("/api/v1/prompts/:id/versions", handler.Create)
	return r
}

type createResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		VersionName string `json:"version_name"`
		IsActive    bool   `json:"is_active"`
	} `json:"data"`
}

func postVersion(t *testing.T, r *gin.Engine, body string) (int, createResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/prompts/p1/versions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	var resp createResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return w.Code, resp
}

func TestCreateVersionBlankNameRejected(t *testing.T) {
	r := newTestRouter()

	tests := []struct {
		name string
		body string
	}{
		{"empty string", `{"name": ""}`},
		{"whitespace only", `{"name": "   "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := postVersion(t, r, tt.body)
			if status != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", status)
			}
			if resp.Code != httpx.CodeParamInvalid {
				t.Errorf("expected code %d, got %d (%s)", httpx.CodeParamInvalid, resp.Code, resp.Message)
			}
		})
	}
}

func TestCreateVersionOmittedNameDefaults(t *testing.T) {
	r := newTestRouter()

	status, resp := postVersion(t, r, `{"description": "no name supplied"}`)
	if status != http.StatusOK {
		t.Fatalf("expected status 200, got %d (%s)", status, resp.Message)
	}
	if !strings.HasPrefix(resp.Data.VersionName, "v") {
		t.Errorf("omitted name should get a timestamp-derived default, got %q", resp.Data.VersionName)
	}
	if !resp.Data.IsActive {
		t.Error("new version should be active")
	}
}

func TestCreateVersionExplicitName(t *testing.T) {
	r := newTestRouter()

	status, resp := postVersion(t, r, `{"name": "baseline"}`)
	if status != http.StatusOK {
		t.Fatalf("expected status 200, got %d (%s)", status, resp.Message)
	}
	if resp.Data.VersionName != "baseline" {
		t.Errorf("expected version name %q, got %q", "baseline", resp.Data.VersionName)
	}

	// Same explicit name again is a conflict
	status, resp = postVersion(t, r, `{"name": "baseline"}`)
	if status != http.StatusConflict {
		t.Errorf("expected status 409, got %d", status)
	}
	if resp.Code != httpx.CodeAlreadyExists {
		t.Errorf("expected code %d, got %d", httpx.CodeAlreadyExists, resp.Code)
	}
}
