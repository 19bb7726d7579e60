package options

import (
	"github.com/urfave/cli/v3"

	"github.com/wuxler/otaserve/pkg/server"
)

// UploadFlagCategory is the category of the upload limit flags.
const UploadFlagCategory = "[Upload]"

// NewUploadOptions returns a new *UploadOptions with default values.
func NewUploadOptions() *UploadOptions {
	return &UploadOptions{
		MaxUploadSize: server.DefaultMaxUploadBytes,
		MaxPartSize:   server.DefaultMaxPartBytes,
	}
}

// UploadOptions bounds the publisher upload body.
type UploadOptions struct {
	// MaxUploadSize caps the whole multipart body in bytes.
	MaxUploadSize int64
	// MaxPartSize caps one uploaded file in bytes.
	MaxPartSize int64
}

// Flags returns the []cli.Flag related to current options.
func (o *UploadOptions) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "max-upload-size",
			Usage:       "maximum total upload body size in bytes",
			Sources:     cli.EnvVars("OTA_MAX_UPLOAD_SIZE"),
			Value:       o.MaxUploadSize,
			Destination: &o.MaxUploadSize,
			Category:    UploadFlagCategory,
		},
		&cli.IntFlag{
			Name:        "max-part-size",
			Usage:       "maximum size of a single uploaded file in bytes",
			Sources:     cli.EnvVars("OTA_MAX_PART_SIZE"),
			Value:       o.MaxPartSize,
			Destination: &o.MaxPartSize,
			Category:    UploadFlagCategory,
		},
	}
}
