package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	g := gin.New()
	RegisterHealth(g)

	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "healthy", w.Body.String())
}

func TestReady(t *testing.T) {
	ok := func(ctx context.Context) error { return nil }
	down := func(ctx context.Context) error { return errors.New("down") }

	cases := map[string]struct {
		checks []ReadinessCheck
		code   int
		deps   map[string]bool
	}{
		"all up": {
			[]ReadinessCheck{{Name: "mongo", Check: ok}, {Name: "sessions", Check: ok}},
			http.StatusOK,
			map[string]bool{"mongo": true, "sessions": true},
		},
		"unconfigured counts as ready": {
			[]ReadinessCheck{{Name: "redis"}},
			http.StatusOK,
			map[string]bool{"redis": true},
		},
		"one down": {
			[]ReadinessCheck{{Name: "mongo", Check: down}, {Name: "sessions", Check: ok}},
			http.StatusServiceUnavailable,
			map[string]bool{"mongo": false, "sessions": true},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			g := gin.New()
			RegisterHealth(g, tc.checks...)
			w := httptest.NewRecorder()
			g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
			require.Equal(t, tc.code, w.Code)

			var body struct {
				Status string          `json:"status"`
				Deps   map[string]bool `json:"deps"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			require.Equal(t, tc.deps, body.Deps)
		})
	}
}
