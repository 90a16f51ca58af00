package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kasuganosora/hearthquest/audit"
)

// Audit records every state-changing request in the audit log. The action
// is the matched route, the target its first path parameter.
func Audit(svc *audit.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		entry := audit.AuditEntry{
			TraceID:    GetTraceID(c),
			Action:     c.Request.Method + " " + c.FullPath(),
			Response:   gin.H{"status": c.Writer.Status()},
			IP:         c.ClientIP(),
			DurationMs: int(time.Since(start).Milliseconds()),
		}
		if len(c.Params) > 0 {
			entry.Target = c.Params[0].Value
		}
		if a, ok := GetActor(c); ok {
			entry.UserID = &a.UserID
			entry.FamilyID = &a.FamilyID
		}
		if len(c.Errors) > 0 {
			entry.Error = c.Errors.String()
		}
		svc.Log(entry)
	}
}
