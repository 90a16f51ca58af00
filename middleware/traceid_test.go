package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kasuganosora/hearthquest/game/quest"
	"github.com/kasuganosora/hearthquest/model"
)

func TestTraceID(t *testing.T) {
	cases := []struct {
		name   string
		header string
		keep   bool
	}{
		{"generated when absent", "", false},
		{"caller id kept", "chore-run-42", true},
		{"oversized id replaced", strings.Repeat("x", maxTraceIDLen+1), false},
		{"id at the column limit kept", strings.Repeat("y", maxTraceIDLen), true},
	}
	r := gin.New()
	r.Use(TraceID())
	r.GET("/trace", func(c *gin.Context) { c.String(http.StatusOK, GetTraceID(c)) })

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/trace", nil)
			if tc.header != "" {
				req.Header.Set(TraceIDHeader, tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			require.Equal(t, http.StatusOK, w.Code)

			id := w.Body.String()
			assert.Equal(t, id, w.Header().Get(TraceIDHeader))
			if tc.keep {
				assert.Equal(t, tc.header, id)
			} else {
				assert.Len(t, id, 36)
				assert.NotEqual(t, tc.header, id)
			}
		})
	}
}

func TestGetTraceID_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, "", GetTraceID(c))
}

func TestLogger_CarriesTraceAndActor(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(TraceID(), Logger(zap.New(core)))
	r.POST("/api/quests/:id/approve", func(c *gin.Context) {
		c.Set(ActorKey, quest.Actor{UserID: 1, FamilyID: 9, Role: model.RoleGuardian})
		c.Status(http.StatusConflict)
	})
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/api/quests/q-1/approve", nil)
	req.Header.Set(TraceIDHeader, "trace-approve")
	r.ServeHTTP(httptest.NewRecorder(), req)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	entries := logs.All()
	require.Len(t, entries, 2)

	approve := entries[0].ContextMap()
	assert.Equal(t, "trace-approve", approve["trace_id"])
	assert.Equal(t, int64(http.StatusConflict), approve["status"])
	assert.Equal(t, int64(1), approve["user_id"])
	assert.Equal(t, int64(9), approve["family_id"])

	health := entries[1].ContextMap()
	assert.NotContains(t, health, "user_id")
	assert.Len(t, health["trace_id"], 36)
}
