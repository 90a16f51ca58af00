package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kasuganosora/hearthquest/errs"
)

// statusOf maps an engine error kind to an HTTP status.
func statusOf(err error) int {
	switch errs.KindOf(err) {
	case errs.KindAlreadyApproved, errs.KindInvalidStateTransition:
		return http.StatusConflict
	case errs.KindUnauthorized:
		return http.StatusForbidden
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindInvalidTimezone, errs.KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail answers err as {"error", "kind"}. Internal failures are not echoed
// to the caller; the request logger records them.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	body := gin.H{"error": msg}
	if k := errs.KindOf(err); k != "" && status != http.StatusInternalServerError {
		body["kind"] = k
	}
	c.AbortWithStatusJSON(status, body)
}
