// Package server defines the command starting the update server in service
// mode.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wuxler/otaserve/pkg/cmdhelper"
	"github.com/wuxler/otaserve/pkg/commands/internal/options"
	"github.com/wuxler/otaserve/pkg/server"
	"github.com/wuxler/otaserve/pkg/store"
	"github.com/wuxler/otaserve/pkg/xlog"
)

const shutdownTimeout = 5 * time.Second

// New creates a new ServerCommand.
func New() *Command {
	return NewCommand()
}

// NewCommand returns a command with default values.
func NewCommand() *Command {
	return &Command{
		CommonOptions:   options.NewCommonOptions(),
		ServerOptions:   options.NewServerOptions(),
		DatabaseOptions: options.NewDatabaseOptions(),
		StorageOptions:  options.NewStorageOptions(),
		AuthOptions:     options.NewAuthOptions(),
		UploadOptions:   options.NewUploadOptions(),
	}
}

// Command is a command to start the server.
type Command struct {
	CommonOptions   *options.CommonOptions
	ServerOptions   *options.ServerOptions
	DatabaseOptions *options.DatabaseOptions
	StorageOptions  *options.StorageOptions
	AuthOptions     *options.AuthOptions
	UploadOptions   *options.UploadOptions
}

// ToCLI transforms to a *cli.Command.
func (c *Command) ToCLI() *cli.Command {
	return &cli.Command{
		Name:    "server",
		Aliases: []string{"srv"},
		Usage:   "Start the update server in service mode",
		UsageText: `otaserve server [OPTIONS]

# Start the server with default port 8080
$ otaserve server --jwt-secret ... --upload-secret ... --admin-password ...

# Start the server with custom port and S3 storage
$ otaserve server --port 9000 --storage-backend s3 --storage-s3-bucket updates
`,
		Flags:  c.Flags(),
		Action: c.Run,
	}
}

// Flags defines the flags related to the current command.
func (c *Command) Flags() []cli.Flag {
	flags := []cli.Flag{}
	flags = append(flags, c.CommonOptions.Flags()...)
	flags = append(flags, c.ServerOptions.Flags()...)
	flags = append(flags, c.DatabaseOptions.Flags()...)
	flags = append(flags, c.StorageOptions.Flags()...)
	flags = append(flags, c.AuthOptions.Flags()...)
	flags = append(flags, c.UploadOptions.Flags()...)
	return flags
}

// Run is the main function for the current command
func (c *Command) Run(ctx context.Context, cmd *cli.Command) error {
	c.CommonOptions.ApplyLogger()

	metadata, err := store.Open(c.DatabaseOptions.DSN)
	if err != nil {
		return err
	}
	defer metadata.Close()
	if err := metadata.Migrate(ctx); err != nil {
		return err
	}
	if err := metadata.EnsureAdminUser(ctx, c.AuthOptions.AdminPassword); err != nil {
		return err
	}

	blobs, err := c.StorageOptions.Build(ctx)
	if err != nil {
		return err
	}

	svc := server.New(server.Config{
		BaseURL:        c.ServerOptions.ExternalURL(),
		UploadSecret:   c.AuthOptions.UploadSecret,
		JWTSecret:      c.AuthOptions.JWTSecret,
		MaxUploadBytes: c.UploadOptions.MaxUploadSize,
		MaxPartBytes:   c.UploadOptions.MaxPartSize,
	}, metadata, blobs)
	svc.Start(ctx)
	defer svc.Close()

	address := c.ServerOptions.Address()
	xlog.C(ctx).Infof("Starting server %s", address)

	srv := &http.Server{
		Addr:              address,
		Handler:           svc.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			xlog.C(ctx).Error("Server error", "error", err)
		}
	}()

	cmdhelper.Fprintf(cmd.Writer, "Server started at http://%s\n", address)
	cmdhelper.Fprintf(cmd.Writer, "Press Ctrl+C to stop the server\n")

	// Wait for interrupt signal
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		xlog.C(ctx).Error("Server shutdown failed", "error", err)
		return err
	}

	xlog.C(ctx).Info("Server stopped")
	return nil
}
