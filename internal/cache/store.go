// Package cache persists build state across invocations: per-file
// fingerprints and discovered header dependencies, per-project produced
// outputs, and a link sub-cache.
//
// Metadata lives in a BoltDB file under the workspace's hidden state
// directory. Bolt transactions keep every save atomic, and a schema version
// tag in the meta bucket lets the loader discard an incompatible cache
// instead of crashing or silently misbehaving. A corrupt or unreadable
// database is treated as an empty cache, never as a fatal error.
package cache

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	// SchemaVersion is bumped whenever the persisted layout changes.
	SchemaVersion = 1

	dbFile = "cache.db"

	metaBucket     = "meta"
	filesBucket    = "files"
	projectsBucket = "projects"
	linkBucket     = "link"

	versionKey = "version"
)

var buckets = []string{metaBucket, filesBucket, projectsBucket, linkBucket}

// Store is the on-disk build state. One process owns it for the duration of
// a build; concurrent builds of the same workspace are not supported.
type Store struct {
	db   *bbolt.DB
	root string
}

// Open opens (or creates) the store under the given state directory. An
// unreadable database or a version mismatch drops the old state with a
// warning and starts empty.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		slog.Warn("build cache unreadable, starting empty", slog.Any("error", err))

		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to reset cache database: %w", err)
		}

		db, err = bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
		if err != nil {
			return nil, fmt.Errorf("failed to open cache database: %w", err)
		}
	}

	s := &Store{db: db, root: dir}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) ensureSchema() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists([]byte(metaBucket))
		if err != nil {
			return err
		}

		stored := meta.Get([]byte(versionKey))
		if stored != nil && decodeVersion(stored) != SchemaVersion {
			slog.Warn("build cache schema changed, discarding old state",
				slog.Uint64("found", decodeVersion(stored)),
				slog.Uint64("want", SchemaVersion))

			for _, name := range buckets {
				if name == metaBucket {
					continue
				}

				if tx.Bucket([]byte(name)) != nil {
					if err := tx.DeleteBucket([]byte(name)); err != nil {
						return err
					}
				}
			}
		}

		if err := meta.Put([]byte(versionKey), encodeVersion(SchemaVersion)); err != nil {
			return err
		}

		for _, name := range buckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}

		return nil
	})
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}

	return nil
}

// Dir returns the state directory the store lives in.
func (s *Store) Dir() string {
	return s.root
}

// Clear drops every entry while keeping the schema intact.
func (s *Store) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range buckets {
			if name == metaBucket {
				continue
			}

			if err := tx.DeleteBucket([]byte(name)); err != nil {
				return err
			}

			if _, err := tx.CreateBucket([]byte(name)); err != nil {
				return err
			}
		}

		return nil
	})
}

// Stats returns the number of tracked files, projects and link entries.
func (s *Store) Stats() (files, projects, links int, err error) {
	err = s.db.View(func(tx *bbolt.Tx) error {
		files = tx.Bucket([]byte(filesBucket)).Stats().KeyN
		projects = tx.Bucket([]byte(projectsBucket)).Stats().KeyN
		links = tx.Bucket([]byte(linkBucket)).Stats().KeyN
		return nil
	})

	return files, projects, links, err
}

func (s *Store) get(bucket, key string, v any) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucket)).Get([]byte(key))
		if data == nil {
			return nil
		}

		if err := json.Unmarshal(data, v); err != nil {
			// A garbled entry is a cache miss, not a failure.
			slog.Warn("discarding corrupt cache entry",
				slog.String("bucket", bucket), slog.String("key", key))
			return nil
		}

		found = true
		return nil
	})

	return found, err
}

func (s *Store) put(bucket, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Put([]byte(key), data)
	})
}

func (s *Store) delete(bucket, key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Delete([]byte(key))
	})
}

func encodeVersion(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

func decodeVersion(data []byte) uint64 {
	if len(data) != 8 {
		return 0
	}

	return binary.BigEndian.Uint64(data)
}
