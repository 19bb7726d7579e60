package server

import (
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/spf13/cast"

	"github.com/wuxler/otaserve/pkg/errdefs"
	"github.com/wuxler/otaserve/pkg/store"
	"github.com/wuxler/otaserve/pkg/update"
)

// Device request headers. The expo-* names are the ones stock clients send;
// the x-app-* names take precedence when both appear.
const (
	HeaderProject         = "x-app-project"
	HeaderPlatform        = "x-app-platform"
	HeaderRuntimeVersion  = "x-app-runtime-version"
	HeaderChannelName     = "x-app-channel-name"
	HeaderProtocolVersion = "x-app-protocol-version"
	HeaderExpectSignature = "x-app-expect-signature"
	HeaderClientID        = "x-eas-client-id"
	HeaderEmbeddedUpdate  = "expo-embedded-update-id"
	HeaderCurrentUpdate   = "expo-current-update-id"
)

// parseDeviceRequest reads the device context with precedence header >
// query > path segment per field. A missing required field or an unknown
// platform is an input error naming the field.
func parseDeviceRequest(c *gin.Context) (update.DeviceRequest, error) {
	pick := func(header, query, pathParam string) string {
		if v := c.GetHeader(header); v != "" {
			return v
		}
		if query != "" {
			if v := c.Query(query); v != "" {
				return v
			}
		}
		if pathParam != "" {
			return c.Param(pathParam)
		}
		return ""
	}

	req := update.DeviceRequest{
		Project:          pick(HeaderProject, "project", "project"),
		Platform:         pick(HeaderPlatform, "platform", ""),
		RuntimeVersion:   pick(HeaderRuntimeVersion, "version", ""),
		ReleaseChannel:   pick(HeaderChannelName, "channel", "channel"),
		ProtocolVersion:  cast.ToInt(c.GetHeader(HeaderProtocolVersion)),
		ExpectSignature:  cast.ToBool(c.GetHeader(HeaderExpectSignature)),
		ClientID:         c.GetHeader(HeaderClientID),
		EmbeddedUpdateID: c.GetHeader(HeaderEmbeddedUpdate),
		CurrentUpdateID:  c.GetHeader(HeaderCurrentUpdate),
	}

	required := []struct{ name, value string }{
		{"project", req.Project},
		{"platform", req.Platform},
		{"version", req.RuntimeVersion},
		{"channel", req.ReleaseChannel},
	}
	for _, field := range required {
		if field.value == "" {
			return req, errdefs.Newf(errdefs.ErrInvalidParameter, "missing required field %q", field.name)
		}
	}
	if !lo.Contains(store.ValidPlatforms, req.Platform) {
		return req, errdefs.Newf(errdefs.ErrInvalidParameter,
			"field %q must be one of ios, android", "platform")
	}
	return req, nil
}
