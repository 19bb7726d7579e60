package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"github.com/wuxler/otaserve/pkg/blob"
	"github.com/wuxler/otaserve/pkg/errdefs"
	"github.com/wuxler/otaserve/pkg/store"
	"github.com/wuxler/otaserve/pkg/update"
	"github.com/wuxler/otaserve/pkg/xlog"
)

type appRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *Server) handleListApps(c *gin.Context) {
	apps, err := s.store.ListApplications(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"apps": apps})
}

func (s *Server) handleCreateApp(c *gin.Context) {
	var req appRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errdefs.Newf(errdefs.ErrInvalidParameter, "parse body: %v", err))
		return
	}
	if req.ID == "" {
		writeError(c, errdefs.Newf(errdefs.ErrInvalidParameter, "missing required field %q", "id"))
		return
	}
	app, err := s.store.InsertApplication(c.Request.Context(), req.ID, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

func (s *Server) handleGetApp(c *gin.Context) {
	app, err := s.store.GetApplication(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (s *Server) handleUpdateApp(c *gin.Context) {
	var req appRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errdefs.Newf(errdefs.ErrInvalidParameter, "parse body: %v", err))
		return
	}
	ctx := c.Request.Context()
	if err := s.store.UpdateApplicationName(ctx, c.Param("id"), req.Name); err != nil {
		writeError(c, err)
		return
	}
	app, err := s.store.GetApplication(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// handleDeleteApp removes the row (uploads and devices cascade) and then
// clears the app's object-store prefix. Blob cleanup is best effort: the
// rows are already gone, leftovers are orphans for garbage collection.
func (s *Server) handleDeleteApp(c *gin.Context) {
	ctx := c.Request.Context()
	app, err := s.store.GetApplication(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if err := s.store.DeleteApplication(ctx, app.ID); err != nil {
		writeError(c, err)
		return
	}
	if err := blob.DeletePrefix(ctx, s.blobs, "updates/"+app.ID); err != nil {
		xlog.C(ctx).Warnf("blob cleanup for %s left orphans: %v", app.ID, err)
	}
	c.JSON(http.StatusOK, gin.H{"deleted": app.ID})
}

func (s *Server) handleGenerateKeyPair(c *gin.Context) {
	ctx := c.Request.Context()
	app, err := s.store.GetApplication(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	privatePEM, publicPEM, err := update.GenerateKeyPair()
	if err != nil {
		writeError(c, err)
		return
	}
	if err := s.store.SetApplicationKeyPair(ctx, app.ID, privatePEM, publicPEM); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"publicKey": publicPEM})
}

func (s *Server) handleCertificate(c *gin.Context) {
	app, err := s.store.GetApplication(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if app.PublicKeyPEM == nil {
		writeError(c, errdefs.Newf(errdefs.ErrNotFound, "application %q has no key pair", app.ID))
		return
	}
	c.Data(http.StatusOK, "application/x-pem-file", []byte(*app.PublicKeyPEM))
}

func (s *Server) handleListDevices(c *gin.Context) {
	app, err := s.store.GetApplication(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	limit := cast.ToInt(c.DefaultQuery("limit", "100"))
	offset := cast.ToInt(c.Query("offset"))
	devices, err := s.store.ListDevices(c.Request.Context(), app.ID, limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"devices": devices})
}

func (s *Server) handleListUploads(c *gin.Context) {
	filter := store.UploadFilter{
		ApplicationID:  c.Query("app"),
		RuntimeVersion: c.Query("version"),
		ReleaseChannel: c.Query("channel"),
		Status:         c.Query("status"),
		Limit:          cast.ToInt(c.DefaultQuery("limit", "100")),
		Offset:         cast.ToInt(c.Query("offset")),
	}
	uploads, err := s.store.ListUploads(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"uploads": uploads})
}

func (s *Server) handleGetUpload(c *gin.Context) {
	upload, err := s.store.GetUpload(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, upload)
}

type uploadPatchRequest struct {
	GitBranch string `json:"gitBranch"`
	GitCommit string `json:"gitCommit"`
}

func (s *Server) handleUpdateUpload(c *gin.Context) {
	var req uploadPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errdefs.Newf(errdefs.ErrInvalidParameter, "parse body: %v", err))
		return
	}
	ctx := c.Request.Context()
	if err := s.store.UpdateUploadMeta(ctx, c.Param("id"), req.GitBranch, req.GitCommit); err != nil {
		writeError(c, err)
		return
	}
	upload, err := s.store.GetUpload(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, upload)
}

func (s *Server) handleDeleteUpload(c *gin.Context) {
	ctx := c.Request.Context()
	upload, err := s.store.GetUpload(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if err := s.store.DeleteUpload(ctx, upload.ID); err != nil {
		writeError(c, err)
		return
	}
	if err := blob.DeletePrefix(ctx, s.blobs, upload.BlobPrefix); err != nil {
		xlog.C(ctx).Warnf("blob cleanup for %s left orphans: %v", upload.ID, err)
	}
	c.JSON(http.StatusOK, gin.H{"deleted": upload.ID})
}

type releaseRequest struct {
	UploadID string `json:"uploadId"`
}

func (s *Server) handleRelease(c *gin.Context) {
	s.promote(c, s.releaser.Release)
}

func (s *Server) handleRollback(c *gin.Context) {
	s.promote(c, s.releaser.Rollback)
}

func (s *Server) promote(c *gin.Context, op func(ctx context.Context, uploadID string) (*store.Upload, error)) {
	var req releaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errdefs.Newf(errdefs.ErrInvalidParameter, "parse body: %v", err))
		return
	}
	if req.UploadID == "" {
		writeError(c, errdefs.Newf(errdefs.ErrInvalidParameter, "missing required field %q", "uploadId"))
		return
	}
	upload, err := op(c.Request.Context(), req.UploadID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, upload)
}
