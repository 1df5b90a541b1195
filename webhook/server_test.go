package webhook

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/chatforge/chatforge/core/config"
)

func newTestServer() *Server {
	cfg := coreconfig.ServerConfig{Listen: "127.0.0.1", Port: 0, PublicBaseURL: "https://hooks.example.com"}
	return NewServer(cfg, nil, nil)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.httpSrv.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestWebhookAcknowledgesUndecodableBody(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/webhook/shopbot", strings.NewReader("{broken"))
	rec := httptest.NewRecorder()
	s.httpSrv.Handler.ServeHTTP(rec, req)

	// Garbage bodies are acknowledged so the platform does not redeliver.
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookRejectsWrongMethod(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/webhook/shopbot", nil)
	rec := httptest.NewRecorder()
	s.httpSrv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestWebhookURL(t *testing.T) {
	s := newTestServer()
	assert.Equal(t, "https://hooks.example.com/webhook/shopbot", s.WebhookURL("shopbot"))
}
