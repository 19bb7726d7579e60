package server

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wuxler/otaserve/pkg/errdefs"
	"github.com/wuxler/otaserve/pkg/update"
	"github.com/wuxler/otaserve/pkg/xlog"
)

// Publisher upload headers.
const (
	HeaderUploadKey         = "x-upload-key"
	HeaderUploadProject     = "project"
	HeaderUploadVersion     = "version"
	HeaderUploadChannel     = "release-channel"
	HeaderUploadPlatform    = "platform"
	HeaderUploadGitBranch   = "git-branch"
	HeaderUploadGitCommit   = "git-commit"
	HeaderSignedManifest    = "x-upload-signed-manifest"
	HeaderManifestSignature = "x-upload-manifest-signature"
)

// handleUpload ingests one published bundle. The multipart body is streamed
// part by part into memory buffers keyed by the field name, which the
// publisher sets to the intended relative path.
func (s *Server) handleUpload(c *gin.Context) {
	secret := c.GetHeader(HeaderUploadKey)
	if subtle.ConstantTimeCompare([]byte(secret), []byte(s.config.UploadSecret)) != 1 {
		writeError(c, errdefs.Newf(errdefs.ErrUnauthorized, "bad upload key"))
		return
	}

	in := update.IngestInput{
		Project:        c.GetHeader(HeaderUploadProject),
		RuntimeVersion: c.GetHeader(HeaderUploadVersion),
		ReleaseChannel: c.GetHeader(HeaderUploadChannel),
		Platform:       c.GetHeader(HeaderUploadPlatform),
		GitBranch:      c.GetHeader(HeaderUploadGitBranch),
		GitCommit:      c.GetHeader(HeaderUploadGitCommit),
	}

	var err error
	if in.SignedManifest, err = decodeBase64Header(c, HeaderSignedManifest); err != nil {
		writeError(c, err)
		return
	}
	if in.ManifestSignature, err = decodeBase64Header(c, HeaderManifestSignature); err != nil {
		writeError(c, err)
		return
	}

	if in.Files, err = s.readBundleFiles(c); err != nil {
		writeError(c, err)
		return
	}

	upload, err := s.ingestor.Ingest(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	xlog.C(c.Request.Context()).Infof("ingested upload %s for %s/%s/%s",
		upload.ID, upload.ApplicationID, upload.RuntimeVersion, upload.ReleaseChannel)
	c.JSON(http.StatusCreated, gin.H{
		"id":       upload.ID,
		"platform": upload.Platform,
		"status":   upload.Status,
	})
}

// readBundleFiles drains the multipart body under the configured caps. The
// whole body is bounded by MaxBytesReader, each file part by its own limit.
func (s *Server) readBundleFiles(c *gin.Context) ([]update.BundleFile, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.config.MaxUploadBytes)

	reader, err := c.Request.MultipartReader()
	if err != nil {
		return nil, errdefs.Newf(errdefs.ErrInvalidParameter, "parse multipart body: %v", err)
	}

	var files []update.BundleFile
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return files, nil
		}
		if err != nil {
			return nil, wrapBodyErr(err)
		}
		name := part.FormName()
		if name == "" {
			name = part.FileName()
		}
		data, err := io.ReadAll(io.LimitReader(part, s.config.MaxPartBytes+1))
		_ = part.Close()
		if err != nil {
			return nil, wrapBodyErr(err)
		}
		if int64(len(data)) > s.config.MaxPartBytes {
			return nil, errdefs.Newf(errdefs.ErrTooLarge,
				"file %q exceeds the per-file limit of %d bytes", name, s.config.MaxPartBytes)
		}
		files = append(files, update.BundleFile{Name: name, Data: data})
	}
}

func wrapBodyErr(err error) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return errdefs.Newf(errdefs.ErrTooLarge,
			"request body exceeds the limit of %d bytes", maxBytesErr.Limit)
	}
	return errdefs.Newf(errdefs.ErrInvalidParameter, "read multipart body: %v", err)
}

func decodeBase64Header(c *gin.Context, header string) ([]byte, error) {
	value := c.GetHeader(header)
	if value == "" {
		return nil, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, errdefs.Newf(errdefs.ErrInvalidParameter, "header %s is not valid base64", header)
	}
	return decoded, nil
}
