// Package internaldb implements KeyValueStore using BadgerHold.
// It manages system-level and per-user key-value configuration.
package internaldb

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/rjmcleod/finch/internal/common"
	"github.com/rjmcleod/finch/internal/models"
)

// Store implements interfaces.KeyValueStore using BadgerHold.
type Store struct {
	db     *badgerhold.Store
	logger *common.Logger
}

// systemUserID is the sentinel UserID for system-level key-value pairs.
// Uses a prefix that cannot be a valid user ID to prevent namespace collision.
const systemUserID = "__system__"

// kvSep is the composite key separator. Using a null byte prevents
// collisions when userID or key contain ":" characters.
const kvSep = "\x00"

// NewStore creates a new KeyValueStore backed by BadgerHold.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create internal db path %s: %w", path, err)
	}
	opts := badgerhold.DefaultOptions
	opts.Dir = path
	opts.ValueDir = path
	opts.Logger = nil
	db, err := badgerhold.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open internal db at %s: %w", path, err)
	}
	logger.Info().Str("path", path).Msg("InternalDB opened")
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) get(userID, key string) (string, error) {
	ck := userID + kvSep + key
	var kv models.KeyValue
	if err := s.db.Get(ck, &kv); err != nil {
		if err == badgerhold.ErrNotFound {
			return "", fmt.Errorf("key '%s' not found", key)
		}
		return "", fmt.Errorf("failed to get key '%s': %w", key, err)
	}
	return kv.Value, nil
}

func (s *Store) set(userID, key, value string) error {
	ck := userID + kvSep + key
	kv := models.KeyValue{
		UserID:   userID,
		Key:      key,
		Value:    value,
		Version:  1,
		DateTime: time.Now(),
	}
	var existing models.KeyValue
	if err := s.db.Get(ck, &existing); err == nil {
		kv.Version = existing.Version + 1
	}
	if err := s.db.Upsert(ck, kv); err != nil {
		return fmt.Errorf("failed to set key '%s': %w", key, err)
	}
	return nil
}

func (s *Store) GetSystemKV(_ context.Context, key string) (string, error) {
	return s.get(systemUserID, key)
}

func (s *Store) SetSystemKV(_ context.Context, key, value string) error {
	return s.set(systemUserID, key, value)
}

func (s *Store) GetUserKV(_ context.Context, userID, key string) (string, error) {
	return s.get(userID, key)
}

func (s *Store) SetUserKV(_ context.Context, userID, key, value string) error {
	if userID == systemUserID {
		return fmt.Errorf("user ID '%s' is reserved for system use", systemUserID)
	}
	return s.set(userID, key, value)
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
