package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"realestate-comps/models"
)

var listingColumns = []string{
	"id", "price", "sqm", "beds", "baths", "floor", "latitude", "longitude",
	"furnishing_status", "furnished", "description", "address",
	"neighborhood", "neighborhood_cluster", "dist_to_nearest_center", "distance_from_center",
	"price_per_sqm", "total_rooms", "balconies", "living_rooms",
	"has_elevator", "has_parking_space", "has_garage", "has_carport", "has_terrace", "has_garden",
	"property_type", "property_status", "city", "is_outlier",
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS listings (
		row_num                INTEGER          NOT NULL,
		id                     TEXT             PRIMARY KEY,
		price                  DOUBLE PRECISION NOT NULL,
		sqm                    DOUBLE PRECISION NOT NULL,
		beds                   INTEGER          NOT NULL DEFAULT 0,
		baths                  DOUBLE PRECISION NOT NULL DEFAULT 0,
		floor                  DOUBLE PRECISION,
		latitude               DOUBLE PRECISION,
		longitude              DOUBLE PRECISION,
		furnishing_status      TEXT             NOT NULL DEFAULT '',
		furnished              BOOLEAN          NOT NULL DEFAULT FALSE,
		description            TEXT             NOT NULL DEFAULT '',
		address                TEXT             NOT NULL DEFAULT '',
		neighborhood           TEXT             NOT NULL DEFAULT '',
		neighborhood_cluster   INTEGER          NOT NULL DEFAULT -1,
		dist_to_nearest_center DOUBLE PRECISION,
		distance_from_center   DOUBLE PRECISION,
		price_per_sqm          DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_rooms            DOUBLE PRECISION,
		balconies              DOUBLE PRECISION,
		living_rooms           DOUBLE PRECISION,
		has_elevator           BOOLEAN          NOT NULL DEFAULT FALSE,
		has_parking_space      BOOLEAN          NOT NULL DEFAULT FALSE,
		has_garage             BOOLEAN          NOT NULL DEFAULT FALSE,
		has_carport            BOOLEAN          NOT NULL DEFAULT FALSE,
		has_terrace            BOOLEAN          NOT NULL DEFAULT FALSE,
		has_garden             BOOLEAN          NOT NULL DEFAULT FALSE,
		property_type          TEXT             NOT NULL DEFAULT '',
		property_status        TEXT             NOT NULL DEFAULT '',
		city                   TEXT             NOT NULL DEFAULT '',
		is_outlier             BOOLEAN          NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_price        ON listings(price)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_neighborhood ON listings(neighborhood)`,
	`CREATE TABLE IF NOT EXISTS cleaning_runs (
		id            TEXT      PRIMARY KEY,
		started_at    TIMESTAMP NOT NULL,
		source        TEXT      NOT NULL DEFAULT '',
		raw_count     INTEGER   NOT NULL DEFAULT 0,
		listing_count INTEGER   NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS cleaning_audit (
		run_id   TEXT      NOT NULL REFERENCES cleaning_runs(id),
		seq      INTEGER   NOT NULL,
		ts       TIMESTAMP NOT NULL,
		stage    TEXT      NOT NULL,
		affected INTEGER   NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, seq)
	)`,
}

// SQLStore persists the dataset and the cleaning audit trail in PostgreSQL or
// SQLite. Queries are written with ? placeholders and rebound per driver.
type SQLStore struct {
	db *sqlx.DB
}

// listingRow adds the dataset position so Load returns rows in saved order.
type listingRow struct {
	RowNum int `db:"row_num"`
	models.Listing
}

// NewPostgresStore opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use store.
func NewPostgresStore(dsn string) (*SQLStore, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}
	return newSQLStore(db, "postgres")
}

// NewSQLiteStore opens (or creates) the SQLite database file at path.
func NewSQLiteStore(path string) (*SQLStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(10000)&_pragma=foreign_keys(1)", path)
	// The modernc driver registers as "sqlite"; sqlx keys placeholder style on "sqlite3".
	raw, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db := sqlx.NewDb(raw, "sqlite3")
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return newSQLStore(db, "sqlite")
}

func newSQLStore(db *sqlx.DB, name string) (*SQLStore, error) {
	s := &SQLStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: migrate: %w", name, err)
	}
	return s, nil
}

func (s *SQLStore) migrate() error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Save replaces the stored dataset with listings and records the run and its
// audit entries, all in one transaction.
func (s *SQLStore) Save(ctx context.Context, run Run, listings []models.Listing, audit []models.AuditEntry) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	run.Kept = len(listings)
	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO cleaning_runs (id, started_at, source, raw_count, listing_count)
		VALUES (:id, :started_at, :source, :raw_count, :listing_count)`, run); err != nil {
		return fmt.Errorf("store: insert run: %w", err)
	}

	insertAudit := tx.Rebind(`INSERT INTO cleaning_audit (run_id, seq, ts, stage, affected) VALUES (?, ?, ?, ?, ?)`)
	for i, e := range audit {
		if _, err := tx.ExecContext(ctx, insertAudit, run.ID, i, e.Timestamp.UTC(), e.Stage, e.Affected); err != nil {
			return fmt.Errorf("store: insert audit %q: %w", e.Stage, err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM listings"); err != nil {
		return fmt.Errorf("store: clear listings: %w", err)
	}
	insertListing := fmt.Sprintf("INSERT INTO listings (row_num, %s) VALUES (:row_num, :%s)",
		strings.Join(listingColumns, ", "), strings.Join(listingColumns, ", :"))
	for i, l := range listings {
		if _, err := tx.NamedExecContext(ctx, insertListing, listingRow{RowNum: i, Listing: l}); err != nil {
			return fmt.Errorf("store: insert listing %q: %w", l.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// Load returns the stored dataset in saved order. An empty table is
// ErrDataUnavailable.
func (s *SQLStore) Load(ctx context.Context) ([]models.Listing, error) {
	query := fmt.Sprintf("SELECT %s FROM listings ORDER BY row_num", strings.Join(listingColumns, ", "))
	var listings []models.Listing
	if err := s.db.SelectContext(ctx, &listings, query); err != nil {
		return nil, fmt.Errorf("store: load listings: %w", err)
	}
	if len(listings) == 0 {
		return nil, fmt.Errorf("store: no listings saved: %w", models.ErrDataUnavailable)
	}
	return listings, nil
}

// LatestRun returns the most recently started run.
func (s *SQLStore) LatestRun(ctx context.Context) (Run, error) {
	var run Run
	err := s.db.GetContext(ctx, &run, `
		SELECT id, started_at, source, raw_count, listing_count
		FROM cleaning_runs
		ORDER BY started_at DESC
		LIMIT 1`)
	if err != nil {
		return Run{}, fmt.Errorf("store: latest run: %w", err)
	}
	return run, nil
}

// AuditTrail returns the audit entries of one run in stage order.
func (s *SQLStore) AuditTrail(ctx context.Context, runID string) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	query := s.db.Rebind(`SELECT ts, stage, affected FROM cleaning_audit WHERE run_id = ? ORDER BY seq`)
	if err := s.db.SelectContext(ctx, &entries, query, runID); err != nil {
		return nil, fmt.Errorf("store: audit trail: %w", err)
	}
	return entries, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
