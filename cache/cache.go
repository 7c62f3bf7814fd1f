// Package cache stores compiled chunks in SQLite, keyed by the hash of the
// sources they were compiled from.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tliron/commonlog"

	"github.com/chazu/fuzzyvm/pkg/bytecode"

	_ "modernc.org/sqlite"
)

var log = commonlog.GetLogger("fuzzyvm.cache")

// Key is the content hash of a chunk's sources.
type Key [32]byte

// String returns the hash in hex.
func (k Key) String() string {
	return fmt.Sprintf("%x", k[:])
}

// NewKey hashes parts in order. Each part is length-prefixed, so moving
// bytes between parts changes the key.
func NewKey(parts ...[]byte) Key {
	h := sha256.New()
	var n [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(n[:], uint64(len(p)))
		h.Write(n[:])
		h.Write(p)
	}
	var k Key
	copy(k[:], h.Sum(nil))
	return k
}

// Cache is a SQLite-backed chunk store. It is safe for concurrent use.
type Cache struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens or creates the cache database at path, creating parent
// directories as needed.
func Open(path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Create table if needed
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS chunks (
		hash BLOB PRIMARY KEY,
		body BLOB NOT NULL,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Get returns the chunk stored under key. The chunk is decoded but not
// validated; vm.Load validates before binding.
func (c *Cache) Get(key Key) (*bytecode.Chunk, bool, error) {
	var body []byte
	err := c.db.QueryRow("SELECT body FROM chunks WHERE hash = ?", key[:]).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		log.Infof("cache miss %s", key)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying chunk: %w", err)
	}
	chunk, err := bytecode.UnmarshalChunk(body)
	if err != nil {
		return nil, false, err
	}
	log.Infof("cache hit %s", key)
	return chunk, true, nil
}

// Put stores chunk under key, replacing any previous entry.
func (c *Cache) Put(key Key, chunk *bytecode.Chunk) error {
	body, err := bytecode.MarshalChunk(chunk)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.db.Exec(
		"INSERT OR REPLACE INTO chunks (hash, body, created_at) VALUES (?, ?, ?)",
		key[:], body, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("saving chunk: %w", err)
	}
	return nil
}

// Len returns the number of stored chunks.
func (c *Cache) Len() (int, error) {
	var n int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// Prune deletes chunks created before t and returns how many were removed.
func (c *Cache) Prune(before time.Time) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, err := c.db.Exec("DELETE FROM chunks WHERE created_at < ?", before.Unix())
	if err != nil {
		return 0, fmt.Errorf("pruning chunks: %w", err)
	}
	return res.RowsAffected()
}
