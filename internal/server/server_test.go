package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aegisshield/case-dashboard/internal/auth"
	"github.com/aegisshield/case-dashboard/internal/config"
	"github.com/aegisshield/case-dashboard/internal/workingset"
)

const upstreamPayload = `{"data": [
	{"id": 1, "created_at": "2024-03-01T10:00:00Z", "category": "corruption", "status": "en_cours", "name": "Awa"},
	{"id": 2, "created_at": "2024-03-02", "category": "divers", "status": "classifier", "is_anonymous": true}
]}`

func newTestServer(t *testing.T, mutate func(cfg *config.Config)) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(upstreamPayload))
	}))
	t.Cleanup(upstream.Close)

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Source.URL = upstream.URL
	cfg.Source.Retries = 0
	if mutate != nil {
		mutate(cfg)
	}

	srv := New(cfg, zap.NewNop(), "test")
	require.NoError(t, srv.Initialize())
	return srv
}

func get(t *testing.T, srv *Server, path string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestServerRoutes(t *testing.T) {
	srv := newTestServer(t, nil)

	t.Run("Liveness does not need data", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, get(t, srv, "/health", nil).Code)
		assert.Equal(t, http.StatusOK, get(t, srv, "/health/live", nil).Code)
		assert.Equal(t, http.StatusServiceUnavailable, get(t, srv, "/health/ready", nil).Code)
	})

	_, err := srv.store.Refresh(context.Background(), workingset.OriginStartup, false)
	require.NoError(t, err)

	t.Run("Ready once the working set is loaded", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, get(t, srv, "/health/ready", nil).Code)
	})

	t.Run("Reports are served from the working set", func(t *testing.T) {
		w := get(t, srv, "/api/v1/reports?sort=id&direction=asc", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Total int `json:"total"`
			Items []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"items"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 2, body.Total)
		require.Len(t, body.Items, 2)
		assert.Equal(t, "Awa", body.Items[0].Name)
		assert.Equal(t, "Anonyme", body.Items[1].Name)
	})

	t.Run("Metrics are exposed", func(t *testing.T) {
		w := get(t, srv, "/metrics", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "aegisshield_case_dashboard_working_set_records 2")
		assert.Contains(t, w.Body.String(), `route="/api/v1/reports"`)
	})

	t.Run("Saved views fall back to memory", func(t *testing.T) {
		w := get(t, srv, "/api/v1/views", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestServerAuth(t *testing.T) {
	srv := newTestServer(t, func(cfg *config.Config) {
		cfg.Security.AuthEnabled = true
		cfg.Security.JWTSecret = "secret"
		cfg.Security.TokenDuration = time.Hour
	})

	assert.Equal(t, http.StatusUnauthorized, get(t, srv, "/api/v1/reports", nil).Code)
	assert.Equal(t, http.StatusOK, get(t, srv, "/health", nil).Code)

	token, err := srv.authSvc.GenerateToken(&auth.User{ID: "u1", Roles: []string{auth.RoleViewOnly}})
	require.NoError(t, err)
	header := http.Header{"Authorization": []string{"Bearer " + token}}
	assert.Equal(t, http.StatusOK, get(t, srv, "/api/v1/categories", header).Code)
}
