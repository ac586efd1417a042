// Package cache persists per-file extraction results between runs so that
// unchanged files are not re-parsed.
package cache

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"
	"github.com/panbanda/deadwood/pkg/extract"
	"github.com/zeebo/blake3"
)

// SchemaVersion changes whenever the shape of extraction results changes.
// A store written with a different version is dropped on open.
const SchemaVersion = "deadwood.extract.v1"

const (
	keyPrefixExtract = "extract/"
	keyMetaSchema    = "meta/schema"
)

// ErrMiss is returned by Get when no usable entry exists.
var ErrMiss = errors.New("cache miss")

// Options configures a Store.
type Options struct {
	Dir      string
	InMemory bool
	Logger   *slog.Logger
}

// Store is a badger-backed map from file path to extraction result. Reads
// are safe for concurrent use; writes are serialized.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
	mu     sync.Mutex
}

// Entry is one extraction result to persist.
type Entry struct {
	Path        string
	Fingerprint string
	Result      *extract.FileResult
}

type envelope struct {
	Schema      string
	Path        string
	Fingerprint string
	Result      extract.FileResult
}

// Open opens or creates the store.
func Open(opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	bopts := badger.DefaultOptions(opts.Dir).WithLogger(nil)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	} else {
		if opts.Dir == "" {
			return nil, fmt.Errorf("cache directory must not be empty")
		}
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.checkSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// checkSchema drops every entry when the stored schema version differs.
func (s *Store) checkSchema() error {
	var stored string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyMetaSchema))
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		stored = string(val)
		return err
	})
	switch {
	case err == nil && stored == SchemaVersion:
		return nil
	case err != nil && !errors.Is(err, badger.ErrKeyNotFound):
		return fmt.Errorf("reading cache schema: %w", err)
	}

	if stored != "" {
		s.logger.Info("cache schema changed, dropping entries", "stored", stored, "current", SchemaVersion)
		if err := s.db.DropAll(); err != nil {
			return fmt.Errorf("dropping stale cache: %w", err)
		}
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyMetaSchema), []byte(SchemaVersion))
	})
}

// Close releases the store.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func entryKey(path string) []byte {
	var sum [8]byte
	binary.BigEndian.PutUint64(sum[:], xxhash.Sum64String(path))
	return []byte(keyPrefixExtract + hex.EncodeToString(sum[:]))
}

// Get returns the stored result for path when its fingerprint matches.
// Every failure mode, including undecodable entries, is reported as ErrMiss.
func (s *Store) Get(path, fingerprint string) (*extract.FileResult, error) {
	var env envelope
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey(path))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return gob.NewDecoder(bytes.NewReader(val)).Decode(&env)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			s.logger.Debug("cache entry unreadable", "path", path, "error", err)
		}
		return nil, ErrMiss
	}
	if env.Schema != SchemaVersion || env.Path != path || env.Fingerprint != fingerprint {
		return nil, ErrMiss
	}
	return &env.Result, nil
}

// PutBatch stores entries one transaction per file, so a cancelled batch
// leaves only complete entries behind. Nothing is written once ctx is done.
func (s *Store) PutBatch(ctx context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.Result == nil {
			continue
		}

		var buf bytes.Buffer
		env := envelope{
			Schema:      SchemaVersion,
			Path:        e.Path,
			Fingerprint: e.Fingerprint,
			Result:      *e.Result,
		}
		if err := gob.NewEncoder(&buf).Encode(&env); err != nil {
			return fmt.Errorf("encoding cache entry %s: %w", e.Path, err)
		}

		err := s.db.Update(func(txn *badger.Txn) error {
			return txn.Set(entryKey(e.Path), buf.Bytes())
		})
		if err != nil {
			return fmt.Errorf("writing cache entry %s: %w", e.Path, err)
		}
	}
	return nil
}

// Clear removes every cached extraction result.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.DropPrefix([]byte(keyPrefixExtract))
}

// Stats describes the store contents.
type Stats struct {
	Entries   int    `json:"entries"`
	TotalSize int64  `json:"total_size"`
	Schema    string `json:"schema"`
}

// GetStats returns statistics about the cache.
func (s *Store) GetStats() (*Stats, error) {
	stats := &Stats{Schema: SchemaVersion}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(keyPrefixExtract)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			stats.Entries++
			stats.TotalSize += it.Item().EstimatedSize()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// HashBytes computes a BLAKE3 hash of bytes and returns it as a hex string.
func HashBytes(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Fingerprint identifies a file version. The modification time is mixed in
// only when withMTime is set, so content-identical rewrites stay hits by
// default.
func Fingerprint(content []byte, modTime time.Time, withMTime bool) string {
	if !withMTime {
		return HashBytes(content)
	}
	h := blake3.New()
	_, _ = h.Write(content)
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(modTime.UnixNano()))
	_, _ = h.Write(ts[:])
	return hex.EncodeToString(h.Sum(nil))
}
