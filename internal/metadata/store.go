// Package metadata is recollex's durable, transactional side-table: the
// docs table (doc_id -> segment placement, seq, text, tags), the bitmap
// table (term postings, tag sets, tombstones), stats (term DF), and a small
// kv table used for the next_doc_id/next_seq monotonic counters. It's
// backed by modernc.org/sqlite, the same embedded-SQL driver the blueprint
// examples in the pack use for their own local stores.
package metadata

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite"

	"github.com/chrsbats/recollex/internal/bitmap"
	"github.com/chrsbats/recollex/internal/cache"
	recerrors "github.com/chrsbats/recollex/pkg/errors"
)

// DocRow is one row of the docs table.
type DocRow struct {
	DocID     uint64
	SegmentID string
	RowOffset uint32
	Seq       int64
	Text      *string
	Tags      string // canonical JSON array/object text; empty if untagged
}

// Store is the SQL-backed metadata side-table. One Store per open index;
// recollex assumes a single writer, so the underlying *sql.DB is capped to
// one open connection to keep SQLite's own locking out of the picture.
type Store struct {
	db    *sql.DB
	bmLRU *cache.LRU[string, *bitmap.Bitmap]
}

// Open creates (if missing) or loads the SQLite database at dbPath and
// ensures the schema exists. bitmapCacheEntries bounds the deserialized
// bitmap LRU (0 leaves it without a count cap).
func Open(dbPath string, bitmapCacheEntries int) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, recerrors.ClassifyDirectoryCreationError(err, dir)
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, recerrors.NewMetadataError(err, recerrors.ErrorCodeMetadataQueryFailed, "failed to open metadata database")
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, recerrors.NewMetadataError(err, recerrors.ErrorCodeMetadataQueryFailed, "failed to ping metadata database")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, recerrors.NewMetadataError(err, recerrors.ErrorCodeMetadataQueryFailed, "failed to ensure metadata schema")
	}

	s := &Store{db: db}
	s.bmLRU = cache.New[string, *bitmap.Bitmap](bitmapCacheEntries, 0, nil, nil)
	return s, nil
}

// Close closes the underlying database handle and drops the bitmap cache.
func (s *Store) Close() error {
	s.bmLRU.Close()
	return s.db.Close()
}

// Begin starts a write transaction. recollex assumes a single writer, so
// callers serialize Begin/Commit/Rollback externally (the engine's write
// mutex).
func (s *Store) Begin(ctx context.Context) (*sql.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, recerrors.NewTxFailedError(err, "begin")
	}
	return tx, nil
}

// --- bitmaps ---

// GetBitmap returns the named bitmap, or an empty one if absent. Reads go
// through the LRU; on miss, the blob is loaded, deserialized, and cached.
func (s *Store) GetBitmap(ctx context.Context, name string) (*bitmap.Bitmap, error) {
	if b, ok := s.bmLRU.Get(name); ok {
		return b, nil
	}

	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM bitmaps WHERE name = ?`, name).Scan(&data)
	if err == sql.ErrNoRows {
		return bitmap.Empty(), nil
	}
	if err != nil {
		return nil, recerrors.NewMetadataError(err, recerrors.ErrorCodeMetadataQueryFailed, "failed to load bitmap").WithKey(name).WithOperation("get_bitmap")
	}

	b, err := bitmap.Deserialize(data)
	if err != nil {
		return nil, recerrors.NewBitmapCorruptionError(err, name)
	}
	s.bmLRU.Put(name, b)
	return b, nil
}

// PutBitmap writes the full bitmap blob within tx and refreshes the cache.
func (s *Store) PutBitmap(ctx context.Context, tx *sql.Tx, name string, b *bitmap.Bitmap, now int64) error {
	data, err := b.Serialize()
	if err != nil {
		return recerrors.NewMetadataError(err, recerrors.ErrorCodeMetadataTxFailed, "failed to serialize bitmap").WithKey(name)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO bitmaps(name, data, last_used) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data, last_used = excluded.last_used
	`, name, data, now)
	if err != nil {
		return recerrors.NewTxFailedError(err, "put_bitmap").WithKey(name)
	}
	s.bmLRU.Put(name, b.Clone())
	return nil
}

// UnionInto reads name, unions delta into it, and persists the result
// within tx — the path the flush transaction uses to update term/tag
// postings.
func (s *Store) UnionInto(ctx context.Context, tx *sql.Tx, name string, delta *bitmap.Bitmap, now int64) error {
	current, err := s.getBitmapTx(ctx, tx, name)
	if err != nil {
		return err
	}
	current.UnionInto(delta)
	return s.PutBitmap(ctx, tx, name, current, now)
}

// RemoveFrom reads name, subtracts delta from it, and persists the result
// within tx — used to drop rows from term/tag bitmaps during compaction.
func (s *Store) RemoveFrom(ctx context.Context, tx *sql.Tx, name string, delta *bitmap.Bitmap, now int64) error {
	current, err := s.getBitmapTx(ctx, tx, name)
	if err != nil {
		return err
	}
	current.AndNotInto(delta)
	return s.PutBitmap(ctx, tx, name, current, now)
}

func (s *Store) getBitmapTx(ctx context.Context, tx *sql.Tx, name string) (*bitmap.Bitmap, error) {
	var data []byte
	err := tx.QueryRowContext(ctx, `SELECT data FROM bitmaps WHERE name = ?`, name).Scan(&data)
	if err == sql.ErrNoRows {
		return bitmap.Empty(), nil
	}
	if err != nil {
		return nil, recerrors.NewTxFailedError(err, "get_bitmap_tx").WithKey(name)
	}
	b, err := bitmap.Deserialize(data)
	if err != nil {
		return nil, recerrors.NewBitmapCorruptionError(err, name)
	}
	return b, nil
}

// --- docs ---

// GetDoc looks up one document by doc_id. Returns (nil, nil) if absent —
// "not found" is a silent no-op throughout this store, never an error.
func (s *Store) GetDoc(ctx context.Context, docID uint64) (*DocRow, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT doc_id, segment_id, row_offset, seq, text, tags FROM docs WHERE doc_id = ?
	`, formatDocID(docID))
	d, err := scanDocRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, recerrors.NewMetadataError(err, recerrors.ErrorCodeMetadataQueryFailed, "failed to load doc").WithOperation("get_doc")
	}
	return d, nil
}

// PutDocs inserts or replaces a batch of doc rows within tx.
func (s *Store) PutDocs(ctx context.Context, tx *sql.Tx, rows []DocRow) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO docs(doc_id, segment_id, row_offset, seq, text, tags) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			segment_id = excluded.segment_id, row_offset = excluded.row_offset,
			seq = excluded.seq, text = excluded.text, tags = excluded.tags
	`)
	if err != nil {
		return recerrors.NewTxFailedError(err, "put_docs")
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, formatDocID(r.DocID), r.SegmentID, r.RowOffset, r.Seq, r.Text, r.Tags); err != nil {
			return recerrors.NewTxFailedError(err, "put_docs").WithKey(formatDocID(r.DocID))
		}
	}
	return nil
}

// DeleteDocs removes the given doc_ids' docs rows within tx. Recollex's
// logical delete is the tombstone bitmap; physically dropping the docs row
// only happens during compaction once the row itself is rewritten out of
// its segment.
func (s *Store) DeleteDocs(ctx context.Context, tx *sql.Tx, ids []uint64) error {
	stmt, err := tx.PrepareContext(ctx, `DELETE FROM docs WHERE doc_id = ?`)
	if err != nil {
		return recerrors.NewTxFailedError(err, "delete_docs")
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, formatDocID(id)); err != nil {
			return recerrors.NewTxFailedError(err, "delete_docs").WithKey(formatDocID(id))
		}
	}
	return nil
}

func scanDocRow(row *sql.Row) (*DocRow, error) {
	var d DocRow
	var docIDStr string
	if err := row.Scan(&docIDStr, &d.SegmentID, &d.RowOffset, &d.Seq, &d.Text, &d.Tags); err != nil {
		return nil, err
	}
	id, err := parseDocID(docIDStr)
	if err != nil {
		return nil, err
	}
	d.DocID = id
	return &d, nil
}

func formatDocID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func parseDocID(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}

// --- stats ---

// IncrStat adds delta to the named counter within tx, creating it at delta
// if absent.
func (s *Store) IncrStat(ctx context.Context, tx *sql.Tx, key string, delta int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO stats(key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = value + excluded.value
	`, key, delta)
	if err != nil {
		return recerrors.NewTxFailedError(err, "incr_stat").WithKey(key)
	}
	return nil
}

// GetStat returns the named counter's value, or 0 if absent — a missing
// term_df entry is treated as DF unknown, and callers fall back to the
// posting bitmap's cardinality.
func (s *Store) GetStat(ctx context.Context, key string) (int64, error) {
	var v int64
	err := s.db.QueryRowContext(ctx, `SELECT value FROM stats WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, recerrors.NewMetadataError(err, recerrors.ErrorCodeMetadataQueryFailed, "failed to load stat").WithKey(key)
	}
	return v, nil
}

// --- monotonic counters ---

const (
	kvNextDocID = "next_doc_id"
	kvNextSeq   = "next_seq"
	maxDocID    = uint64(0xFFFFFFFF) // doc_ids are dense and must fit a roaring bitmap's uint32 domain
)

// NextDocID reads and advances the next_doc_id counter within tx, returning
// the id to assign to a new document. Fails once the counter would exceed
// a uint32, since doc_ids index directly into Roaring bitmaps.
func (s *Store) NextDocID(ctx context.Context, tx *sql.Tx) (uint64, error) {
	id, err := s.nextCounter(ctx, tx, kvNextDocID)
	if err != nil {
		return 0, err
	}
	if id > maxDocID {
		return 0, recerrors.NewCounterExhaustedError(kvNextDocID)
	}
	return id, nil
}

// NextSeq reads and advances the next_seq counter within tx, returning the
// seq to assign to a new document. seq is a plain monotonic int64 with no
// bitmap-domain constraint.
func (s *Store) NextSeq(ctx context.Context, tx *sql.Tx) (int64, error) {
	id, err := s.nextCounter(ctx, tx, kvNextSeq)
	if err != nil {
		return 0, err
	}
	return int64(id), nil
}

func (s *Store) nextCounter(ctx context.Context, tx *sql.Tx, key string) (uint64, error) {
	var cur uint64
	var curStr string
	err := tx.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&curStr)
	switch {
	case err == sql.ErrNoRows:
		cur = 0
	case err != nil:
		return 0, recerrors.NewTxFailedError(err, "next_counter").WithKey(key)
	default:
		cur, err = strconv.ParseUint(curStr, 10, 64)
		if err != nil {
			return 0, recerrors.NewTxFailedError(err, "next_counter").WithKey(key)
		}
	}

	next := cur + 1
	_, err = tx.ExecContext(ctx, `
		INSERT INTO kv(key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, strconv.FormatUint(next, 10))
	if err != nil {
		return 0, recerrors.NewTxFailedError(err, "next_counter").WithKey(key)
	}
	return next, nil
}
