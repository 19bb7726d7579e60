// Package server exposes the HTTP surface: the device-facing manifest and
// asset endpoints, the publisher upload endpoint, and the dashboard API.
package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wuxler/otaserve/pkg/blob"
	"github.com/wuxler/otaserve/pkg/store"
	"github.com/wuxler/otaserve/pkg/update"
)

const (
	// DefaultMaxUploadBytes bounds the whole multipart upload body.
	DefaultMaxUploadBytes int64 = 512 << 20
	// DefaultMaxPartBytes bounds a single uploaded file.
	DefaultMaxPartBytes int64 = 256 << 20
)

// Config carries the process-wide inputs of the HTTP layer. All fields are
// fixed at startup.
type Config struct {
	// BaseURL is the externally visible address composed asset URLs point at.
	BaseURL string
	// UploadSecret authenticates publishers on POST /upload.
	UploadSecret string
	// JWTSecret signs dashboard bearer tokens.
	JWTSecret string
	// MaxUploadBytes and MaxPartBytes bound the upload body; zero selects
	// the defaults.
	MaxUploadBytes int64
	MaxPartBytes   int64
}

// Server wires the domain core to gin handlers.
type Server struct {
	config   Config
	store    *store.Store
	blobs    blob.Storage
	ingestor *update.Ingestor
	releaser *update.Releaser
	composer *update.Composer
	recorder *update.Recorder
}

// New assembles a Server over the metadata and object stores. Call Start
// before serving and Close on shutdown.
func New(config Config, metadata *store.Store, blobs blob.Storage) *Server {
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if config.MaxPartBytes <= 0 {
		config.MaxPartBytes = DefaultMaxPartBytes
	}
	recorder := update.NewRecorder(metadata)
	return &Server{
		config:   config,
		store:    metadata,
		blobs:    blobs,
		ingestor: update.NewIngestor(metadata, blobs),
		releaser: update.NewReleaser(metadata),
		composer: update.NewComposer(metadata, config.BaseURL, recorder),
		recorder: recorder,
	}
}

// Start launches the background device recorder.
func (s *Server) Start(ctx context.Context) {
	s.recorder.Start(ctx)
}

// Close stops the background device recorder.
func (s *Server) Close() error {
	return s.recorder.Close()
}

// Router builds the gin engine with every route mounted.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := router.Group("/api")
	api.GET("/manifest", s.handleManifest)
	api.GET("/manifest/:project/:channel", s.handleManifest)
	api.GET("/assets", s.handleAsset)

	router.POST("/upload", s.handleUpload)
	router.POST("/auth/login", s.handleLogin)

	dashboard := router.Group("/", s.requireBearer())
	dashboard.GET("/apps", s.handleListApps)
	dashboard.POST("/apps", s.handleCreateApp)
	dashboard.GET("/apps/:id", s.handleGetApp)
	dashboard.PATCH("/apps/:id", s.handleUpdateApp)
	dashboard.DELETE("/apps/:id", s.handleDeleteApp)
	dashboard.POST("/apps/:id/keypair", s.handleGenerateKeyPair)
	dashboard.GET("/apps/:id/certificate", s.handleCertificate)
	dashboard.GET("/apps/:id/devices", s.handleListDevices)
	dashboard.GET("/uploads", s.handleListUploads)
	dashboard.GET("/uploads/:id", s.handleGetUpload)
	dashboard.PATCH("/uploads/:id", s.handleUpdateUpload)
	dashboard.DELETE("/uploads/:id", s.handleDeleteUpload)
	dashboard.POST("/utils/release", s.handleRelease)
	dashboard.POST("/utils/rollback", s.handleRollback)

	return router
}
