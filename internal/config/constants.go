package config

// Default paths
const (
	// DefaultDatabasePath is the default path for the point-of-sale database
	DefaultDatabasePath = "./tillworks.db"

	// DefaultBackupDir is where pre-import backups are written
	DefaultBackupDir = "./backups"
)
