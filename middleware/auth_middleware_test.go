package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kasuganosora/hearthquest/audit"
	"github.com/kasuganosora/hearthquest/config"
	"github.com/kasuganosora/hearthquest/metrics"
	"github.com/kasuganosora/hearthquest/model"
	"github.com/kasuganosora/hearthquest/testutil"
)

var testSec = config.SecurityConfig{JWTSecret: testSecret, JWTTTLH: time.Hour}

func newProtectedRouter() *gin.Engine {
	r := gin.New()
	r.Use(Auth(testSec))
	r.GET("/protected", func(ctx *gin.Context) {
		a, ok := GetActor(ctx)
		if !ok {
			ctx.Status(http.StatusInternalServerError)
			return
		}
		ctx.JSON(http.StatusOK, a)
	})
	return r
}

func doAuth(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth_MissingAuthHeader(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, doAuth(newProtectedRouter(), "").Code)
}

func TestAuth_NoBearer(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, doAuth(newProtectedRouter(), "Token abc123").Code)
}

func TestAuth_InvalidToken(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, doAuth(newProtectedRouter(), "Bearer notavalidtoken").Code)
}

func TestAuth_ExpiredToken(t *testing.T) {
	tok, err := GenerateToken(guardian, testSecret, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, doAuth(newProtectedRouter(), "Bearer "+tok).Code)
}

func TestAuth_ValidTokenSetsActor(t *testing.T) {
	tok, err := GenerateToken(guardian, testSecret, time.Hour)
	require.NoError(t, err)

	w := doAuth(newProtectedRouter(), "Bearer "+tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":1,"family_id":7,"role":"GUARDIAN"}`, w.Body.String())
}

func TestGetActor_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := GetActor(c)
	assert.False(t, ok)
}

func TestMetrics_CountsByRoute(t *testing.T) {
	r := gin.New()
	r.Use(Metrics())
	r.GET("/quests/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	counter := metrics.HTTPRequests.WithLabelValues("/quests/:id", "204")
	before := promtest.ToFloat64(counter)
	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/quests/"+id, nil))
	}
	assert.Equal(t, before+2, promtest.ToFloat64(counter))

	unmatched := metrics.HTTPRequests.WithLabelValues("unmatched", "404")
	before = promtest.ToFloat64(unmatched)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, before+1, promtest.ToFloat64(unmatched))
}

func TestAudit_RecordsMutations(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := audit.New(db, config.AuditConfig{}, zap.NewNop())

	tok, err := GenerateToken(guardian, testSecret, time.Hour)
	require.NoError(t, err)

	r := gin.New()
	r.Use(TraceID(), Auth(testSec), Audit(svc))
	r.GET("/quests/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/quests/:id/approve", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/quests/q-1", nil),
		httptest.NewRequest(http.MethodPost, "/quests/q-1/approve", nil),
	} {
		req.Header.Set("Authorization", "Bearer "+tok)
		req.Header.Set(TraceIDHeader, "trace-approve")
		r.ServeHTTP(httptest.NewRecorder(), req)
	}
	svc.Stop(context.Background())

	var logs []model.AuditLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "POST /quests/:id/approve", logs[0].Action)
	assert.Equal(t, "q-1", logs[0].Target)
	assert.Equal(t, "trace-approve", logs[0].TraceID)
	require.NotNil(t, logs[0].UserID)
	assert.Equal(t, int64(1), *logs[0].UserID)
	require.NotNil(t, logs[0].FamilyID)
	assert.Equal(t, int64(7), *logs[0].FamilyID)
}
