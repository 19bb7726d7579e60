package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wuxler/otaserve/pkg/errdefs"
	"github.com/wuxler/otaserve/pkg/xlog"
)

// statusOf maps the error taxonomy to HTTP status codes. Anything not in
// the taxonomy is an internal error.
func statusOf(err error) int {
	switch {
	case errors.Is(err, errdefs.ErrInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, errdefs.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errdefs.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, errdefs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errdefs.ErrConflict), errors.Is(err, errdefs.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, errdefs.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as a JSON error body and aborts the handler chain.
// Server-side failures are logged and surfaced without detail; auth
// failures carry no detail either.
func writeError(c *gin.Context, err error) {
	status := statusOf(err)
	message := err.Error()
	switch {
	case status >= http.StatusInternalServerError:
		xlog.C(c.Request.Context()).Errorf("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		message = "internal error"
	case status == http.StatusUnauthorized:
		message = "unauthorized"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
