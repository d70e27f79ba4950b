package credstore

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// FileStore persists records as JSON files under a directory. It provides
// reload-across-restarts durability for the local demo without a server-side
// database.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed and returns a file-backed store.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "failed to create credential store directory")
	}

	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	// Keys contain characters that are not filename-safe on all platforms.
	return filepath.Join(s.dir, hex.EncodeToString([]byte(key))+".json")
}

// Get retrieves a record by key.
func (s *FileStore) Get(_ context.Context, key string) (*Record, error) {
	raw, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to read credential record file")
	}

	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, errors.Wrap(ErrCorruptRecord, err.Error())
	}

	return &record, nil
}

// Set stores a record, overwriting any existing record for the key.
func (s *FileStore) Set(_ context.Context, key string, record *Record) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "failed to marshal credential record")
	}

	if err := os.WriteFile(s.path(key), raw, 0o600); err != nil {
		return errors.Wrap(err, "failed to write credential record file")
	}

	return nil
}

// Delete removes a record. Deleting an absent key is not an error.
func (s *FileStore) Delete(_ context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to delete credential record file")
	}

	return nil
}
