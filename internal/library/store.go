// Package library persists designs, folders and saved concepts. Store is the
// only type that touches sqlite; Manager layers library semantics on top and
// is the sole writer the rest of the system goes through.
package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/niadesignwork-svg/stagecraft/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS designs (
    id TEXT PRIMARY KEY,
    metadata_json TEXT,
    config_json TEXT,
    cursor INTEGER NOT NULL DEFAULT 0,
    video TEXT,
    folder TEXT,
    created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS design_images (
    design_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    locator TEXT NOT NULL,
    PRIMARY KEY (design_id, position),
    FOREIGN KEY (design_id) REFERENCES designs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS folders (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS saved_concepts (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    elements TEXT NOT NULL,
    palette TEXT,
    vibe TEXT,
    mechanics TEXT,
    created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS op_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    design_id TEXT,
    operation TEXT NOT NULL,
    artifact_count INTEGER NOT NULL DEFAULT 1,
    timestamp DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_designs_created_at ON designs(created_at);
CREATE INDEX IF NOT EXISTS idx_designs_folder ON designs(folder);
CREATE INDEX IF NOT EXISTS idx_op_log_timestamp ON op_log(timestamp);
`

// Two example folders are seeded on first open, matching a fresh install.
var seedFolders = []string{"Arena Tour", "Festival Sets"}

type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.seedFolderList(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) seedFolderList() error {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM folders`).Scan(&n); err != nil {
		return fmt.Errorf("count folders: %w", err)
	}
	if n > 0 {
		return nil
	}
	for _, name := range seedFolders {
		if _, err := s.db.Exec(`INSERT INTO folders (name) VALUES (?)`, name); err != nil {
			return fmt.Errorf("seed folder %q: %w", name, err)
		}
	}
	return nil
}

// PutDesign upserts a design row and replaces its history entries.
func (s *Store) PutDesign(ctx context.Context, d *models.Design) error {
	metaJSON, err := json.Marshal(d.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	cfgJSON, err := json.Marshal(d.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO designs (id, metadata_json, config_json, cursor, video, folder, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     metadata_json = excluded.metadata_json,
		     config_json = excluded.config_json,
		     cursor = excluded.cursor,
		     video = excluded.video,
		     folder = excluded.folder`,
		d.ID, string(metaJSON), string(cfgJSON), d.History.Cursor,
		nullString(d.Video), nullString(d.Folder), d.CreatedAt)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM design_images WHERE design_id = ?`, d.ID); err != nil {
		return err
	}
	for pos, locator := range d.History.Entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO design_images (design_id, position, locator) VALUES (?, ?, ?)`,
			d.ID, pos, locator); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) GetDesign(ctx context.Context, id string) (*models.Design, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, metadata_json, config_json, cursor, video, folder, created_at
		 FROM designs WHERE id = ?`, id)

	d, err := scanDesign(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: design %s", models.ErrNotFound, id)
		}
		return nil, err
	}

	if err := s.loadHistory(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// ListDesigns returns every design, newest-created first.
func (s *Store) ListDesigns(ctx context.Context) ([]*models.Design, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, metadata_json, config_json, cursor, video, folder, created_at
		 FROM designs ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var designs []*models.Design
	for rows.Next() {
		d, err := scanDesign(rows)
		if err != nil {
			return nil, err
		}
		designs = append(designs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, d := range designs {
		if err := s.loadHistory(ctx, d); err != nil {
			return nil, err
		}
	}
	return designs, nil
}

func (s *Store) DeleteDesign(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM designs WHERE id = ?`, id)
	return err
}

// SetFolder sets or clears (empty string) a design's folder label.
func (s *Store) SetFolder(ctx context.Context, id, folder string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE designs SET folder = ? WHERE id = ?`,
		nullString(folder), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: design %s", models.ErrNotFound, id)
	}
	return nil
}

// ClearFolderLabel clears the folder field on every design assigned to name.
func (s *Store) ClearFolderLabel(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE designs SET folder = NULL WHERE folder = ?`, name)
	return err
}

func (s *Store) ListFolders(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM folders ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Store) AddFolder(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO folders (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name)
	return err
}

func (s *Store) RemoveFolder(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM folders WHERE name = ?`, name)
	return err
}

func (s *Store) PutConcept(ctx context.Context, c *models.SavedConcept) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO saved_concepts (id, title, elements, palette, vibe, mechanics, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     title = excluded.title, elements = excluded.elements,
		     palette = excluded.palette, vibe = excluded.vibe,
		     mechanics = excluded.mechanics`,
		c.ID, c.Title, c.Elements, nullString(c.Palette), nullString(c.Vibe),
		nullString(c.Mechanics), c.CreatedAt)
	return err
}

// ListConcepts returns saved concepts ordered by recency.
func (s *Store) ListConcepts(ctx context.Context) ([]*models.SavedConcept, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, elements, palette, vibe, mechanics, created_at
		 FROM saved_concepts ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var concepts []*models.SavedConcept
	for rows.Next() {
		c := &models.SavedConcept{}
		var palette, vibe, mechanics sql.NullString
		if err := rows.Scan(&c.ID, &c.Title, &c.Elements, &palette, &vibe, &mechanics, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Palette = palette.String
		c.Vibe = vibe.String
		c.Mechanics = mechanics.String
		concepts = append(concepts, c)
	}
	return concepts, rows.Err()
}

func (s *Store) DeleteConcept(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM saved_concepts WHERE id = ?`, id)
	return err
}

// OpEntry is one logged external API operation.
type OpEntry struct {
	DesignID      string
	Operation     string
	ArtifactCount int
	Timestamp     time.Time
}

func (s *Store) LogOperation(ctx context.Context, e *OpEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO op_log (design_id, operation, artifact_count, timestamp) VALUES (?, ?, ?, ?)`,
		nullString(e.DesignID), e.Operation, e.ArtifactCount, e.Timestamp)
	return err
}

// UsageRow summarizes logged operations of one kind.
type UsageRow struct {
	Operation     string
	Calls         int
	ArtifactCount int
}

func (s *Store) UsageSummary(ctx context.Context) ([]UsageRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT operation, COUNT(*), COALESCE(SUM(artifact_count), 0)
		 FROM op_log GROUP BY operation ORDER BY operation`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var usage []UsageRow
	for rows.Next() {
		var u UsageRow
		if err := rows.Scan(&u.Operation, &u.Calls, &u.ArtifactCount); err != nil {
			return nil, err
		}
		usage = append(usage, u)
	}
	return usage, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDesign(row scanner) (*models.Design, error) {
	d := &models.Design{}
	var metaJSON, cfgJSON, video, folder sql.NullString
	if err := row.Scan(&d.ID, &metaJSON, &cfgJSON, &d.History.Cursor, &video, &folder, &d.CreatedAt); err != nil {
		return nil, err
	}
	if metaJSON.String != "" {
		if err := json.Unmarshal([]byte(metaJSON.String), &d.Metadata); err != nil {
			return nil, fmt.Errorf("parse metadata for %s: %w", d.ID, err)
		}
	}
	if cfgJSON.String != "" {
		if err := json.Unmarshal([]byte(cfgJSON.String), &d.Config); err != nil {
			return nil, fmt.Errorf("parse config for %s: %w", d.ID, err)
		}
	}
	d.Video = video.String
	d.Folder = folder.String
	return d, nil
}

func (s *Store) loadHistory(ctx context.Context, d *models.Design) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT locator FROM design_images WHERE design_id = ? ORDER BY position ASC`, d.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var locator string
		if err := rows.Scan(&locator); err != nil {
			return err
		}
		d.History.Entries = append(d.History.Entries, locator)
	}
	return rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
