// Package options defines the flag-bearing option groups shared by the
// commands.
package options

import (
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/wuxler/otaserve/pkg/xlog"
)

// NewCommonOptions returns a *CommonOptions with default values.
func NewCommonOptions() *CommonOptions {
	return &CommonOptions{}
}

// CommonOptions are options that are common to all commands.
type CommonOptions struct {
	Debug bool `json:"debug,omitempty" yaml:"debug,omitempty"`
}

// Flags returns the []cli.Flag related to current options.
func (o *CommonOptions) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:        "debug",
			Aliases:     []string{"d"},
			Sources:     cli.EnvVars("OTA_DEBUG"),
			Usage:       "enable debug mode",
			Destination: &o.Debug,
		},
	}
}

// ApplyLogger raises the global log level when debug mode is on.
func (o *CommonOptions) ApplyLogger() {
	if o.Debug {
		xlog.SetLevel(slog.LevelDebug)
	}
}
