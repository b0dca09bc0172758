// Package secrets persists named remote-connection records with their
// connection strings encrypted at rest.
package secrets

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/tillworks/cloudsync/internal/crypto"
	"github.com/tillworks/cloudsync/internal/entities"
)

var ErrConnectionIDRequired = errors.New("connection id is required")

// Store provides encrypted storage for cloud connections.
type Store struct {
	db        *gorm.DB
	encryptor *crypto.Encryptor
}

// New creates a connection store over an already migrated database.
func New(db *gorm.DB, encryptor *crypto.Encryptor) *Store {
	return &Store{db: db, encryptor: encryptor}
}

// Save encrypts the connection string and upserts the connection by id.
func (s *Store) Save(id string, provider entities.SyncProvider, label, connectionString string) error {
	if id == "" {
		return ErrConnectionIDRequired
	}

	encrypted, err := s.encryptor.Encrypt(connectionString)
	if err != nil {
		return fmt.Errorf("failed to encrypt connection string: %w", err)
	}

	record := &entities.CloudConnection{
		ID:               id,
		Provider:         provider,
		Label:            label,
		ConnectionString: encrypted,
	}

	result := s.db.Where("id = ?", id).
		Assign(map[string]interface{}{
			"provider":          provider,
			"label":             label,
			"connection_string": encrypted,
			"updated_at":        time.Now(),
		}).
		FirstOrCreate(record)
	if result.Error != nil {
		return fmt.Errorf("failed to save connection: %w", result.Error)
	}

	return nil
}

// List returns all connections without any secret material.
func (s *Store) List() ([]entities.ConnectionInfo, error) {
	var records []entities.CloudConnection
	if err := s.db.Order("created_at").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}

	infos := make([]entities.ConnectionInfo, 0, len(records))
	for _, r := range records {
		infos = append(infos, entities.ConnectionInfo{
			ID:        r.ID,
			Provider:  r.Provider,
			Label:     r.Label,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		})
	}
	return infos, nil
}

// Get retrieves and decrypts a connection. Returns nil when the
// connection does not exist, and also nil when decryption fails: a
// connection encrypted under a lost key is unusable, not fatal to the
// whole store. The failure is logged, never the secret.
func (s *Store) Get(id string) (*entities.DecryptedConnection, error) {
	var record entities.CloudConnection
	result := s.db.Where("id = ?", id).First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get connection: %w", result.Error)
	}

	plaintext, err := s.encryptor.Decrypt(record.ConnectionString)
	if err != nil {
		log.Printf("Secret store: failed to decrypt connection %s: %v", id, err)
		return nil, nil
	}

	return &entities.DecryptedConnection{
		ID:               record.ID,
		Provider:         record.Provider,
		Label:            record.Label,
		ConnectionString: plaintext,
		CreatedAt:        record.CreatedAt,
		UpdatedAt:        record.UpdatedAt,
	}, nil
}

// Delete removes a connection record.
func (s *Store) Delete(id string) error {
	result := s.db.Where("id = ?", id).Delete(&entities.CloudConnection{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete connection: %w", result.Error)
	}
	return nil
}
