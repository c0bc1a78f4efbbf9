package database

import "errors"

var (
	// ErrEmptyPath is returned by Open when no database path is configured.
	ErrEmptyPath = errors.New("database: path is empty")

	// ErrNoDownMigration is returned when rolling back a migration that has no down file.
	ErrNoDownMigration = errors.New("database: migration has no down SQL")

	// ErrMigrationMissing is returned when an applied version is absent from the migration set.
	ErrMigrationMissing = errors.New("database: applied migration not found in migration set")
)
