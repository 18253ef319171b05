// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	badgerdb "github.com/dgraph-io/badger/v4"
	"golang.org/x/mod/semver"

	"github.com/AleutianAI/noetic/services/mind/model"
	"github.com/AleutianAI/noetic/services/mind/storage/badger"
)

// FormatVersion is the repository format stamped into every store this
// build creates. Opening a repository with a newer major version fails.
const FormatVersion = "v1.0.0"

// Store key layout.
const (
	prefixOutline = "outline/"
	prefixLimbo   = "limbo/"
	keyFormat     = "meta/format"
)

// ErrFormatNewer reports a repository written by an incompatible newer
// build.
var ErrFormatNewer = errors.New("repository format is newer than this build supports")

// Store persists outlines as JSON values in BadgerDB.
//
// # Description
//
// Active outlines live under the `outline/` prefix, soft-deleted ones
// under `limbo/`, and repository metadata under `meta/`. Every write is
// whole-value: an outline is always stored and replaced as one record.
//
// # Thread Safety
//
// Safe for concurrent use; BadgerDB transactions provide isolation.
type Store struct {
	db *badger.DB
}

// OpenStore opens (or creates) the repository store and verifies the
// format version.
func OpenStore(cfg badger.Config) (*Store, error) {
	db, err := badger.Open(cfg)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.checkFormat(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenEphemeralStore opens an in-memory store for tests.
func OpenEphemeralStore() (*Store, error) {
	return OpenStore(badger.InMemoryConfig())
}

// Close closes the underlying store.
func (s *Store) Close() error {
	return s.db.Close()
}

// checkFormat reads the stamped format version, stamping FormatVersion
// into a fresh repository. A stored major version above ours is refused.
func (s *Store) checkFormat(ctx context.Context) error {
	var stored string
	err := s.db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(keyFormat))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			stored = string(val)
			return nil
		})
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return s.db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
			return txn.Set([]byte(keyFormat), []byte(FormatVersion))
		})
	}
	if err != nil {
		return fmt.Errorf("read repository format: %w", err)
	}
	if !semver.IsValid(stored) {
		return fmt.Errorf("repository carries invalid format version %q", stored)
	}
	if semver.Compare(semver.Major(stored), semver.Major(FormatVersion)) > 0 {
		return fmt.Errorf("%w: repository is %s, build supports %s",
			ErrFormatNewer, stored, FormatVersion)
	}
	return nil
}

// PutOutline writes the outline under the active prefix.
func (s *Store) PutOutline(ctx context.Context, o *model.Outline) error {
	return s.put(ctx, prefixOutline+o.Key, o)
}

// GetOutline reads an active outline. The second return is false when the
// key is absent.
func (s *Store) GetOutline(ctx context.Context, key string) (*model.Outline, bool, error) {
	return s.get(ctx, prefixOutline+key)
}

// GetLimbo reads a soft-deleted outline by its limbo key.
func (s *Store) GetLimbo(ctx context.Context, limboKey string) (*model.Outline, bool, error) {
	return s.get(ctx, prefixLimbo+limboKey)
}

// MoveToLimbo relocates an outline record from the active prefix to the
// limbo prefix in one transaction, rewriting its key field on the way.
func (s *Store) MoveToLimbo(ctx context.Context, key, limboKey string) error {
	return s.db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		o, err := readOutline(txn, prefixOutline+key)
		if err != nil {
			return err
		}
		o.Key = limboKey
		data, err := json.Marshal(o)
		if err != nil {
			return fmt.Errorf("encode outline %s: %w", limboKey, err)
		}
		if err := txn.Set([]byte(prefixLimbo+limboKey), data); err != nil {
			return err
		}
		return txn.Delete([]byte(prefixOutline + key))
	})
}

// Rekey relocates an active outline record from oldKey to newKey in one
// transaction.
func (s *Store) Rekey(ctx context.Context, oldKey, newKey string) error {
	return s.db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		o, err := readOutline(txn, prefixOutline+oldKey)
		if err != nil {
			return err
		}
		o.Key = newKey
		data, err := json.Marshal(o)
		if err != nil {
			return fmt.Errorf("encode outline %s: %w", newKey, err)
		}
		if err := txn.Set([]byte(prefixOutline+newKey), data); err != nil {
			return err
		}
		return txn.Delete([]byte(prefixOutline + oldKey))
	})
}

// ListOutlines reads every active outline.
func (s *Store) ListOutlines(ctx context.Context) ([]*model.Outline, error) {
	return s.list(ctx, prefixOutline)
}

// ListLimbo reads every soft-deleted outline.
func (s *Store) ListLimbo(ctx context.Context) ([]*model.Outline, error) {
	return s.list(ctx, prefixLimbo)
}

// Wipe deletes every outline and limbo record, keeping repository
// metadata. Backs the amnesia operation.
func (s *Store) Wipe(ctx context.Context) error {
	for _, prefix := range []string{prefixOutline, prefixLimbo} {
		keys, err := s.keysWithPrefix(ctx, prefix)
		if err != nil {
			return err
		}
		err = s.db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
			for _, k := range keys {
				if err := txn.Delete([]byte(k)); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("wipe %s records: %w", strings.TrimSuffix(prefix, "/"), err)
		}
	}
	return s.db.Sync()
}

func (s *Store) put(ctx context.Context, key string, o *model.Outline) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("encode outline %s: %w", key, err)
	}
	return s.db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (s *Store) get(ctx context.Context, key string) (*model.Outline, bool, error) {
	var o *model.Outline
	err := s.db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		found, err := readOutline(txn, key)
		if err != nil {
			return err
		}
		o = found
		return nil
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return o, true, nil
}

func (s *Store) list(ctx context.Context, prefix string) ([]*model.Outline, error) {
	out := make([]*model.Outline, 0)
	err := s.db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var o model.Outline
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &o)
			})
			if err != nil {
				return fmt.Errorf("decode outline %s: %w", it.Item().Key(), err)
			}
			out = append(out, &o)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) keysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	return keys, err
}

// readOutline decodes one outline inside a transaction. Propagates
// badger.ErrKeyNotFound untouched so callers can map it to absence.
func readOutline(txn *badgerdb.Txn, key string) (*model.Outline, error) {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return nil, err
	}
	var o model.Outline
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &o)
	})
	if err != nil {
		return nil, fmt.Errorf("decode outline %s: %w", key, err)
	}
	return &o, nil
}
