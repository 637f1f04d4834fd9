// ABOUTME: Integration cursor store backed by an embedded BadgerDB
// ABOUTME: Stores each integration as JSON under integration/<id> with transactional partial updates

package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"

	"github.com/harperreed/peoplesync/models"
)

const integrationPrefix = "integration/"

var ErrInvalidIntegration = errors.New("invalid integration")

// Store is a cursor store over BadgerDB.
type Store struct {
	db  *badger.DB
	now func() time.Time
}

// Open opens (or creates) a store in dir.
func Open(dir string) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// OpenInMemory opens a store that is discarded on Close.
func OpenInMemory() (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory badger: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func integrationKey(id string) []byte {
	return []byte(integrationPrefix + id)
}

// CreateIntegration stores a new integration with empty cursor state.
func (s *Store) CreateIntegration(_ context.Context, integ *models.Integration) error {
	if integ == nil || integ.UserID == "" {
		return ErrInvalidIntegration
	}
	if integ.ID == "" {
		integ.ID = uuid.New().String()
	}
	if integ.Provider == "" {
		integ.Provider = models.ProviderGooglePeople
	}
	if integ.ClientType == "" {
		integ.ClientType = models.ClientTypeDesktop
	}
	if integ.Status == "" {
		integ.Status = models.SyncStatusIdle
	}
	now := s.now().UTC()
	integ.CreatedAt = now
	integ.UpdatedAt = now

	return s.db.Update(func(txn *badger.Txn) error {
		key := integrationKey(integ.ID)
		if _, err := txn.Get(key); err == nil {
			return fmt.Errorf("integration %s already exists", integ.ID)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to check integration: %w", err)
		}
		return putIntegration(txn, integ)
	})
}

// GetIntegration returns models.ErrIntegrationNotFound for unknown ids.
func (s *Store) GetIntegration(_ context.Context, id string) (*models.Integration, error) {
	var integ *models.Integration
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		integ, err = getIntegration(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return integ, nil
}

// UpdateIntegration applies a partial update in one read-modify-write
// transaction. An empty update is a no-op.
func (s *Store) UpdateIntegration(_ context.Context, id string, update models.IntegrationUpdate) error {
	if update.IsEmpty() {
		return nil
	}

	return s.db.Update(func(txn *badger.Txn) error {
		integ, err := getIntegration(txn, id)
		if err != nil {
			return err
		}
		update.Apply(integ)
		integ.UpdatedAt = s.now().UTC()
		return putIntegration(txn, integ)
	})
}

// ListIntegrations returns every integration ordered by user then id.
func (s *Store) ListIntegrations(_ context.Context) ([]models.Integration, error) {
	var integrations []models.Integration
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(integrationPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			data, err := it.Item().ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("failed to read integration: %w", err)
			}
			var integ models.Integration
			if err := json.Unmarshal(data, &integ); err != nil {
				return fmt.Errorf("failed to decode integration: %w", err)
			}
			integrations = append(integrations, integ)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(integrations, func(i, j int) bool {
		if integrations[i].UserID != integrations[j].UserID {
			return integrations[i].UserID < integrations[j].UserID
		}
		return integrations[i].ID < integrations[j].ID
	})
	return integrations, nil
}

// Reset drops every stored integration.
func (s *Store) Reset() error {
	return s.db.DropAll()
}

// Backup writes a full snapshot of the store to w.
func (s *Store) Backup(w io.Writer) error {
	if _, err := s.db.Backup(w, 0); err != nil {
		return fmt.Errorf("failed to back up badger: %w", err)
	}
	return nil
}

// Restore loads a snapshot written by Backup.
func (s *Store) Restore(r io.Reader) error {
	if err := s.db.Load(r, 256); err != nil {
		return fmt.Errorf("failed to restore badger: %w", err)
	}
	return nil
}

func getIntegration(txn *badger.Txn, id string) (*models.Integration, error) {
	item, err := txn.Get(integrationKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, models.ErrIntegrationNotFound
		}
		return nil, fmt.Errorf("failed to get integration: %w", err)
	}

	data, err := item.ValueCopy(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read integration: %w", err)
	}

	var integ models.Integration
	if err := json.Unmarshal(data, &integ); err != nil {
		return nil, fmt.Errorf("failed to decode integration: %w", err)
	}
	return &integ, nil
}

func putIntegration(txn *badger.Txn, integ *models.Integration) error {
	data, err := json.Marshal(integ)
	if err != nil {
		return fmt.Errorf("failed to encode integration: %w", err)
	}
	if err := txn.Set(integrationKey(integ.ID), data); err != nil {
		return fmt.Errorf("failed to store integration: %w", err)
	}
	return nil
}
