package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/krishnaw/dealsearch/internal/observability"
	"github.com/krishnaw/dealsearch/internal/record"
)

// snapshotRow is the JSON-serializable projection of record.Record this
// package persists. It mirrors every field LoadRecordSet populates;
// Record's cached lowercase projections are deliberately excluded —
// they're recomputed by record.NewRecordSet on load, not persisted.
type snapshotRow struct {
	OfferID           string  `json:"offer_id"`
	OfferName         string  `json:"offer_name"`
	OfferPrice        string  `json:"offer_price"`
	OfferDescription  string  `json:"offer_description"`
	OfferCategory     string  `json:"offer_category"`
	OfferProgram      string  `json:"offer_program"`
	ImageURL          string  `json:"image_url"`
	ProductName       string  `json:"product_name"`
	ProductUPC        string  `json:"product_upc"`
	ProductPrice      float64 `json:"product_price"`
	ProductDepartment string  `json:"product_department"`
	ProductShelf      string  `json:"product_shelf"`
	ProductAisle      string  `json:"product_aisle"`
	ProductSize       string  `json:"product_size"`
	EndDate           string  `json:"end_date"`
}

func toSnapshotRow(r *record.Record) snapshotRow {
	return snapshotRow{
		OfferID:           r.OfferID,
		OfferName:         r.OfferName,
		OfferPrice:        r.OfferPrice,
		OfferDescription:  r.OfferDescription,
		OfferCategory:     r.OfferCategory,
		OfferProgram:      r.OfferProgram,
		ImageURL:          r.ImageURL,
		ProductName:       r.ProductName,
		ProductUPC:        r.ProductUPC,
		ProductPrice:      r.ProductPrice,
		ProductDepartment: r.ProductDepartment,
		ProductShelf:      r.ProductShelf,
		ProductAisle:      r.ProductAisle,
		ProductSize:       r.ProductSize,
		EndDate:           r.EndDate,
	}
}

func (s snapshotRow) toRecord() *record.Record {
	return &record.Record{
		OfferID:           s.OfferID,
		OfferName:         s.OfferName,
		OfferPrice:        s.OfferPrice,
		OfferDescription:  s.OfferDescription,
		OfferCategory:     s.OfferCategory,
		OfferProgram:      s.OfferProgram,
		ImageURL:          s.ImageURL,
		ProductName:       s.ProductName,
		ProductUPC:        s.ProductUPC,
		ProductPrice:      s.ProductPrice,
		ProductDepartment: s.ProductDepartment,
		ProductShelf:      s.ProductShelf,
		ProductAisle:      s.ProductAisle,
		ProductSize:       s.ProductSize,
		EndDate:           s.EndDate,
	}
}

// SnapshotCache persists the flattened record set to a local SQLite
// database, keyed by the same content hash record.LoadRecordSet
// computes. Get rebuilds a RecordSet from the stored rows without reading
// the JSON documents; the cache does not compute the hash itself, and
// record.LoadRecordSet only returns it after parsing and flattening both
// documents.
type SnapshotCache struct {
	db *sql.DB
}

// NewSnapshotCache opens (and migrates) the SQLite database at path. An
// empty path disables the cache.
func NewSnapshotCache(path string) (*SnapshotCache, error) {
	if path == "" {
		return &SnapshotCache{}, nil
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("cache: opening snapshot db: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	content_hash TEXT PRIMARY KEY,
	records_json BLOB NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: migrating snapshot db: %w", err)
	}

	return &SnapshotCache{db: db}, nil
}

func (s *SnapshotCache) enabled() bool { return s.db != nil }

// Get returns the flattened RecordSet previously stored under
// contentHash, or (nil, false) on a miss or when the cache is disabled.
// The returned set's Matrix is always nil — embeddings are a separate
// cache (MatrixCache / VectorMirror).
func (s *SnapshotCache) Get(ctx context.Context, contentHash string) (*record.RecordSet, bool) {
	if !s.enabled() {
		return nil, false
	}

	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT records_json FROM snapshots WHERE content_hash = ?`, contentHash).Scan(&blob)
	if err != nil {
		if err != sql.ErrNoRows {
			log.Warn().Err(err).Str("content_hash", contentHash).Msg("snapshot cache get failed")
		}
		return nil, false
	}

	var rows []snapshotRow
	if err := json.Unmarshal(blob, &rows); err != nil {
		log.Warn().Err(err).Str("content_hash", contentHash).Msg("snapshot cache decode failed")
		return nil, false
	}

	records := make([]*record.Record, len(rows))
	for i, row := range rows {
		records[i] = row.toRecord()
	}
	observability.LogEvent(log, observability.EventCacheHit, map[string]interface{}{"content_hash": contentHash, "records": len(records)})
	return record.NewRecordSet(records), true
}

// Put stores rs's records under contentHash, replacing any prior
// snapshot with the same hash. Errors are logged, not returned.
func (s *SnapshotCache) Put(ctx context.Context, contentHash string, rs *record.RecordSet) {
	if !s.enabled() {
		return
	}

	rows := make([]snapshotRow, len(rs.Records))
	for i, r := range rs.Records {
		rows[i] = toSnapshotRow(r)
	}
	blob, err := json.Marshal(rows)
	if err != nil {
		log.Warn().Err(err).Msg("snapshot cache encode failed")
		return
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (content_hash, records_json) VALUES (?, ?)
		 ON CONFLICT(content_hash) DO UPDATE SET records_json = excluded.records_json`,
		contentHash, blob)
	if err != nil {
		log.Warn().Err(err).Str("content_hash", contentHash).Msg("snapshot cache put failed")
	}
}

// Close releases the underlying database handle, if any.
func (s *SnapshotCache) Close() error {
	if !s.enabled() {
		return nil
	}
	return s.db.Close()
}
