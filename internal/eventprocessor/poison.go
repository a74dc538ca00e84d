// Auditlog - Audit Event Ingestion and Query Service
// Copyright 2026 Thomas Grant (tgrant)
// SPDX-License-Identifier: MIT
// https://github.com/tgrant/auditlog

package eventprocessor

import (
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tgrant/auditlog/internal/logging"
)

// poisonKeyPrefix namespaces poison entries in the Badger keyspace.
const poisonKeyPrefix = "poison:"

// poisonRetention bounds how long poison entries are kept before Badger
// expires them. Operators inspecting failures have a month of history.
const poisonRetention = 30 * 24 * time.Hour

// PoisonEntry is a message that could not be decoded into an event,
// kept for operator inspection instead of being redelivered forever.
type PoisonEntry struct {
	MessageUUID string    `json:"message_uuid"`
	Payload     []byte    `json:"payload"`
	Reason      string    `json:"reason"`
	ReceivedAt  time.Time `json:"received_at"`
}

// PoisonStore persists undecodable messages.
type PoisonStore interface {
	Save(entry *PoisonEntry) error
	Close() error
}

// BadgerPoisonStore implements PoisonStore on BadgerDB. Entries survive
// restarts, and the embedded key-value store keeps the failure path free
// of any dependency on the primary database being healthy.
type BadgerPoisonStore struct {
	db *badger.DB
}

// NewBadgerPoisonStore opens (or creates) the poison database at dir.
func NewBadgerPoisonStore(dir string) (*BadgerPoisonStore, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(nil).
		WithCompactL0OnClose(true)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open poison store at %s: %w", dir, err)
	}

	return &BadgerPoisonStore{db: db}, nil
}

// Save persists a poison entry keyed by message UUID and receive time.
func (s *BadgerPoisonStore) Save(entry *PoisonEntry) error {
	if entry == nil {
		return fmt.Errorf("entry is nil")
	}
	if entry.ReceivedAt.IsZero() {
		entry.ReceivedAt = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal poison entry: %w", err)
	}

	key := []byte(poisonKeyPrefix + entry.ReceivedAt.Format(time.RFC3339Nano) + ":" + entry.MessageUUID)

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key, data).WithTTL(poisonRetention))
	})
	if err != nil {
		return fmt.Errorf("save poison entry %s: %w", entry.MessageUUID, err)
	}

	logging.Warn().
		Str("message_uuid", entry.MessageUUID).
		Str("reason", entry.Reason).
		Msg("Message moved to poison store")

	return nil
}

// List returns all stored poison entries, oldest first.
func (s *BadgerPoisonStore) List() ([]*PoisonEntry, error) {
	var entries []*PoisonEntry

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(poisonKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var entry PoisonEntry
				if err := json.Unmarshal(val, &entry); err != nil {
					return fmt.Errorf("unmarshal poison entry: %w", err)
				}
				entries = append(entries, &entry)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// Close closes the underlying database.
func (s *BadgerPoisonStore) Close() error {
	return s.db.Close()
}
