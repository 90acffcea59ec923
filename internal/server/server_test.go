package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestServer_Health(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name       string
		checkers   map[string]HealthChecker
		wantStatus int
		wantBody   map[string]interface{}
	}{
		{
			name:       "all components reachable",
			checkers:   map[string]HealthChecker{"orders": ok, "reference": ok},
			wantStatus: http.StatusOK,
			wantBody: map[string]interface{}{
				"status":     "healthy",
				"components": map[string]interface{}{"orders": "connected", "reference": "connected"},
			},
		},
		{
			name:       "reference store down",
			checkers:   map[string]HealthChecker{"orders": ok, "reference": down},
			wantStatus: http.StatusServiceUnavailable,
			wantBody: map[string]interface{}{
				"status":     "unhealthy",
				"components": map[string]interface{}{"orders": "connected", "reference": "unreachable"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(":0", "test", tt.checkers)

			w := httptest.NewRecorder()
			s.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			require.Equal(t, tt.wantStatus, w.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			require.Equal(t, tt.wantBody, body)
		})
	}
}
