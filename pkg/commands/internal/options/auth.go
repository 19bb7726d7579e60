package options

import (
	"github.com/urfave/cli/v3"
)

// AuthFlagCategory is the category of the auth flags.
const AuthFlagCategory = "[Auth]"

// NewAuthOptions returns a new *AuthOptions with default values.
func NewAuthOptions() *AuthOptions {
	return &AuthOptions{}
}

// AuthOptions defines the secrets the server authenticates with. All three
// are required in service mode.
type AuthOptions struct {
	// JWTSecret signs dashboard bearer tokens.
	JWTSecret string
	// UploadSecret is the shared secret publishers present on POST /upload.
	UploadSecret string
	// AdminPassword bootstraps the dashboard admin user at startup.
	AdminPassword string
}

// Flags returns the []cli.Flag related to current options.
func (o *AuthOptions) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "jwt-secret",
			Usage:       "secret used to sign dashboard bearer tokens",
			Sources:     cli.EnvVars("OTA_JWT_SECRET"),
			Required:    true,
			Destination: &o.JWTSecret,
			Category:    AuthFlagCategory,
		},
		&cli.StringFlag{
			Name:        "upload-secret",
			Usage:       "shared secret publishers present when uploading",
			Sources:     cli.EnvVars("OTA_UPLOAD_SECRET"),
			Required:    true,
			Destination: &o.UploadSecret,
			Category:    AuthFlagCategory,
		},
		&cli.StringFlag{
			Name:        "admin-password",
			Usage:       "password of the bootstrapped dashboard admin user",
			Sources:     cli.EnvVars("OTA_ADMIN_PASSWORD"),
			Required:    true,
			Destination: &o.AdminPassword,
			Category:    AuthFlagCategory,
		},
	}
}
