package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wuxler/otaserve/pkg/errdefs"
	"github.com/wuxler/otaserve/pkg/update"
)

// Manifest response headers devices evaluate.
const (
	HeaderProtocolVersionOut = "expo-protocol-version"
	HeaderSFVVersion         = "expo-sfv-version"
)

// handleManifest serves a device poll: parse the request context, compose
// the manifest and emit it as multipart/mixed. A coordinate without a
// released upload is a plain JSON 404, never an empty multipart body.
func (s *Server) handleManifest(c *gin.Context) {
	req, err := parseDeviceRequest(c)
	if err != nil {
		writeError(c, err)
		return
	}

	composed, err := s.composer.Compose(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	contentType, body, err := update.EncodeMultipart(composed.Manifest, composed.Signature)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header(HeaderProtocolVersionOut, strconv.Itoa(req.ProtocolVersion))
	c.Header(HeaderSFVVersion, "0")
	c.Header("Cache-Control", "private, max-age=0")
	if composed.Signature != "" {
		c.Header(update.SignatureHeaderName, composed.Signature)
	}
	c.Data(http.StatusOK, contentType, body)
}

// handleAsset streams one stored object. Only keys under the updates/
// prefix are served, and the two configuration files are never served even
// though they are stored under it.
func (s *Server) handleAsset(c *gin.Context) {
	key := c.Query("asset")
	if key == "" {
		writeError(c, errdefs.Newf(errdefs.ErrInvalidParameter, "missing required field %q", "asset"))
		return
	}
	if !strings.HasPrefix(key, "updates/") ||
		strings.HasSuffix(key, "app.json") || strings.HasSuffix(key, "package.json") {
		writeError(c, errdefs.Newf(errdefs.ErrForbidden, "asset key %q is not servable", key))
		return
	}

	rc, size, err := s.blobs.Get(c.Request.Context(), key)
	if err != nil {
		writeError(c, err)
		return
	}
	defer rc.Close()

	contentType := c.Query("contentType")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.DataFromReader(http.StatusOK, size, contentType, rc, nil)
}
