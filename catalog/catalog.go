// Package catalog records loaded images in a SQLite database and keeps
// the image bytes themselves in a shared content-addressed store.
package catalog

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/rite/loader"
	"github.com/chazu/rite/wire"
)

var log = commonlog.GetLogger("rite.catalog")

// ErrNotFound indicates no entry matches the requested hash.
var ErrNotFound = errors.New("image not found in catalog")

// Entry describes one successful load of an image.
type Entry struct {
	ID           uuid.UUID
	Hash         [32]byte
	Path         string
	Size         int
	DeclaredSize uint32
	Records      int
	MaxDepth     int
	Literals     int
	Snapshot     []byte // canonical CBOR, see package wire
	LoadedAt     time.Time
}

// HashString returns the hex form of the image hash.
func (e *Entry) HashString() string {
	return hex.EncodeToString(e.Hash[:])
}

// Summarize computes the entry for an image that parsed into root. ID
// and LoadedAt are left for Record to fill in.
func Summarize(path string, image []byte, root *loader.Irep) (*Entry, error) {
	if root == nil {
		return nil, loader.ErrNilIrep
	}
	h, err := loader.ReadHeader(image)
	if err != nil {
		return nil, err
	}
	snap, err := wire.Encode(root)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}

	e := &Entry{
		Hash:         sha256.Sum256(image),
		Path:         path,
		Size:         len(image),
		DeclaredSize: h.Size,
		Records:      root.Count(),
		MaxDepth:     root.Depth(),
		Snapshot:     snap,
	}
	root.Walk(func(r *loader.Irep, _ int) {
		e.Literals += len(r.Pool)
	})
	return e, nil
}

// Catalog is a SQLite-backed log of loaded images. It is safe for
// concurrent use.
type Catalog struct {
	db   *sql.DB
	path string
}

// Open opens or creates the catalog database at path.
func Open(path string) (*Catalog, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS images (
		id TEXT PRIMARY KEY,
		hash TEXT NOT NULL,
		path TEXT NOT NULL,
		size INTEGER NOT NULL,
		declared_size INTEGER NOT NULL,
		records INTEGER NOT NULL,
		max_depth INTEGER NOT NULL,
		literals INTEGER NOT NULL,
		snapshot BLOB NOT NULL,
		loaded_at INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS images_hash ON images (hash)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating index: %w", err)
	}

	log.Debugf("opened catalog %s", path)
	return &Catalog{db: db, path: path}, nil
}

// Path returns the database file path.
func (c *Catalog) Path() string {
	return c.path
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Record inserts e, assigning a fresh ID and the current time when they
// are unset.
func (c *Catalog) Record(ctx context.Context, e *Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.LoadedAt.IsZero() {
		e.LoadedAt = time.Now().UTC()
	}

	_, err := c.db.ExecContext(ctx, `INSERT INTO images
		(id, hash, path, size, declared_size, records, max_depth, literals, snapshot, loaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.HashString(), e.Path, e.Size, int64(e.DeclaredSize),
		e.Records, e.MaxDepth, e.Literals, e.Snapshot, e.LoadedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("recording %s: %w", e.Path, err)
	}
	log.Infof("recorded %s as %s", e.Path, e.ID)
	return nil
}

// Lookup returns the most recent entry for an image hash.
func (c *Catalog) Lookup(ctx context.Context, hash [32]byte) (*Entry, error) {
	row := c.db.QueryRowContext(ctx, `SELECT `+columns+` FROM images
		WHERE hash = ? ORDER BY loaded_at DESC, id LIMIT 1`, hex.EncodeToString(hash[:]))
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %x", ErrNotFound, hash)
	}
	return e, err
}

// List returns every entry, oldest first.
func (c *Catalog) List(ctx context.Context) ([]*Entry, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT `+columns+` FROM images ORDER BY loaded_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing images: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

const columns = `id, hash, path, size, declared_size, records, max_depth, literals, snapshot, loaded_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*Entry, error) {
	var (
		e        Entry
		id, hash string
		declared int64
		loadedAt int64
	)
	err := s.Scan(&id, &hash, &e.Path, &e.Size, &declared, &e.Records, &e.MaxDepth, &e.Literals, &e.Snapshot, &loadedAt)
	if err != nil {
		return nil, err
	}
	if e.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("bad id %q: %w", id, err)
	}
	raw, err := hex.DecodeString(hash)
	if err != nil || len(raw) != len(e.Hash) {
		return nil, fmt.Errorf("bad hash %q", hash)
	}
	copy(e.Hash[:], raw)
	e.DeclaredSize = uint32(declared)
	e.LoadedAt = time.Unix(0, loadedAt).UTC()
	return &e, nil
}
