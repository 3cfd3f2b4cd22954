// Package modcache is a persistent, cross-run cache for compiled SPWN
// source files, keyed by (file path, mtime, size). internal/cli uses it to
// reuse an unchanged file's finished object string across CLI invocations;
// Globals.PrevImports stays an in-process map. Grounded on the teacher's internal/ext cache package but backed by a real
// database instead of an in-memory map, since a SPWN project's standard
// library and local modules rarely change between compiles (see
// DESIGN.md). Uses modernc.org/sqlite, a teacher dependency the retrieved
// pack declared but never wired to anything.
package modcache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one cached file's serialized result: an opaque JSON blob the
// caller encodes/decodes (internal/cli stores the file's finished object
// string), plus the path, mtime and size it was compiled from.
type Entry struct {
	Path    string
	ModTime time.Time
	Size    int64
	Blob    []byte
}

// Cache wraps a sqlite-backed store of import entries.
type Cache struct {
	db *sql.DB
}

// Open opens (creating if necessary) a modcache database at path. An empty
// path opens an in-memory cache, useful for one-shot compiles that still
// want the same code path exercised without leaving a file behind.
func Open(path string) (*Cache, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("modcache: open %s: %w", path, err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS imports (
	path     TEXT PRIMARY KEY,
	mod_time INTEGER NOT NULL,
	size     INTEGER NOT NULL,
	blob     BLOB NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("modcache: schema: %w", err)
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error { return c.db.Close() }

// Lookup returns the cached entry for path if one exists and its
// mtime/size still match what the caller observed on disk just now — a
// change in either means the file was edited since the cache was written
// and the caller must recompile.
func (c *Cache) Lookup(path string, modTime time.Time, size int64) (Entry, bool, error) {
	row := c.db.QueryRow(`SELECT mod_time, size, blob FROM imports WHERE path = ?`, path)
	var storedMod int64
	var storedSize int64
	var blob []byte
	if err := row.Scan(&storedMod, &storedSize, &blob); err != nil {
		if err == sql.ErrNoRows {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("modcache: lookup %s: %w", path, err)
	}
	if storedMod != modTime.Unix() || storedSize != size {
		return Entry{}, false, nil
	}
	return Entry{Path: path, ModTime: modTime, Size: size, Blob: blob}, true, nil
}

// Store upserts the compiled result for path, keyed by the mtime/size the
// caller observed while compiling it.
func (c *Cache) Store(e Entry) error {
	_, err := c.db.Exec(
		`INSERT INTO imports (path, mod_time, size, blob) VALUES (?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET mod_time = excluded.mod_time, size = excluded.size, blob = excluded.blob`,
		e.Path, e.ModTime.Unix(), e.Size, e.Blob,
	)
	if err != nil {
		return fmt.Errorf("modcache: store %s: %w", e.Path, err)
	}
	return nil
}

// Invalidate drops path's cached entry, used when a caller knows a file
// changed out from under mtime/size (e.g. a generated stdlib file rewritten
// with a preserved timestamp).
func (c *Cache) Invalidate(path string) error {
	_, err := c.db.Exec(`DELETE FROM imports WHERE path = ?`, path)
	return err
}

// EncodeSnapshot is a small helper so callers don't need to import
// encoding/json themselves just to build a Blob.
func EncodeSnapshot(v any) ([]byte, error) { return json.Marshal(v) }

// DecodeSnapshot is EncodeSnapshot's inverse.
func DecodeSnapshot(blob []byte, v any) error { return json.Unmarshal(blob, v) }
