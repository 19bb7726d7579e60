package options

import (
	"github.com/urfave/cli/v3"
)

const (
	// DatabaseFlagCategory is the category of the database flags.
	DatabaseFlagCategory = "[Database]"

	// DefaultDatabaseDSN is the default SQLite database location.
	DefaultDatabaseDSN = "otaserve.db"
)

// NewDatabaseOptions returns a new *DatabaseOptions with default values.
func NewDatabaseOptions() *DatabaseOptions {
	return &DatabaseOptions{
		DSN: DefaultDatabaseDSN,
	}
}

// DatabaseOptions defines the options for the metadata database.
type DatabaseOptions struct {
	// DSN is the SQLite connection string.
	DSN string
}

// Flags returns the []cli.Flag related to current options.
func (o *DatabaseOptions) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "database-dsn",
			Usage:       "SQLite database file or connection string",
			Sources:     cli.EnvVars("OTA_DATABASE_DSN"),
			Value:       o.DSN,
			Destination: &o.DSN,
			Category:    DatabaseFlagCategory,
		},
	}
}
