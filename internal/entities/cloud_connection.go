package entities

import (
	"time"
)

// SyncProvider identifies the remote database flavour a connection points at.
type SyncProvider string

const (
	SyncProviderPostgres SyncProvider = "postgres"
)

// CloudConnection stores an encrypted remote-database connection string.
// The plaintext connection string is never persisted; only the
// AES-256-GCM ciphertext (base64, nonce+tag+ciphertext) is stored.
type CloudConnection struct {
	// ID is caller-assigned and stable across upserts.
	ID       string       `gorm:"primaryKey;size:64" json:"id"`
	Provider SyncProvider `gorm:"type:varchar(50);not null" json:"provider"`

	// Label is an optional display name shown in connection lists.
	Label string `gorm:"size:255" json:"label,omitempty"`

	// ConnectionString is the encrypted connection string.
	ConnectionString string `gorm:"type:text;not null" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CloudConnection) TableName() string {
	return "cloud_connections"
}

// ConnectionInfo is the listing view of a connection. It carries no
// secret material.
type ConnectionInfo struct {
	ID        string       `json:"id"`
	Provider  SyncProvider `json:"provider"`
	Label     string       `json:"label,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// DecryptedConnection holds a decrypted connection string for use in
// memory. It is never stored.
type DecryptedConnection struct {
	ID               string
	Provider         SyncProvider
	Label            string
	ConnectionString string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
