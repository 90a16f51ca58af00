package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestIPWhitelist(t *testing.T) {
	cases := []struct {
		name    string
		entries []string
		client  string
		want    int
	}{
		{"empty list allows all", nil, "1.2.3.4", http.StatusOK},
		{"exact address", []string{"192.168.1.1"}, "192.168.1.1", http.StatusOK},
		{"address not listed", []string{"10.0.0.1", "10.0.0.2"}, "10.0.0.3", http.StatusForbidden},
		{"second of several", []string{"10.0.0.1", "10.0.0.2"}, "10.0.0.2", http.StatusOK},
		{"inside cidr", []string{"192.168.0.0/16"}, "192.168.44.2", http.StatusOK},
		{"outside cidr", []string{"192.168.0.0/16"}, "192.169.0.1", http.StatusForbidden},
		{"entry whitespace trimmed", []string{" 10.0.0.9 "}, "10.0.0.9", http.StatusOK},
		{"ipv6 prefix", []string{"fd00::/8"}, "fd12::1", http.StatusOK},
		{"only garbage denies all", []string{"not-an-ip"}, "10.0.0.1", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(IPWhitelist(tc.entries))
			r.POST("/api/admin/quests/expire", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodPost, "/api/admin/quests/expire", nil)
			req.Header.Set("X-Real-IP", tc.client)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}
