package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"reelsmith/internal/config"
)

// Store manages title persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the catalog database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.LogDir, "catalog.db"))
}

// OpenPath connects to the catalog database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

const itemColumns = "id, slug, title, brief_path, status, error_message, progress_stage, progress_percent, progress_message, final_file, created_at, updated_at"

// Add inserts a new pending title.
func (s *Store) Add(ctx context.Context, slug, titleText, briefPath string) (*Item, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO titles (slug, title, brief_path, status, progress_percent, created_at, updated_at)
         VALUES (?, ?, ?, ?, 0, ?, ?)`,
		slug, titleText, briefPath, StatusPending, now, now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("title %q already exists", slug)
		}
		return nil, fmt.Errorf("insert title: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches one title by its identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+itemColumns+" FROM titles WHERE id = ?", id)
	return scanItem(row)
}

// GetBySlug fetches one title by its slug.
func (s *Store) GetBySlug(ctx context.Context, slug string) (*Item, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+itemColumns+" FROM titles WHERE slug = ?", slug)
	return scanItem(row)
}

// List returns every title ordered by creation time.
func (s *Store) List(ctx context.Context) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+itemColumns+" FROM titles ORDER BY created_at ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("list titles: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// NextPending returns the oldest pending title, or nil when none is waiting.
func (s *Store) NextPending(ctx context.Context) (*Item, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+itemColumns+" FROM titles WHERE status = ? ORDER BY created_at ASC, id ASC LIMIT 1",
		StatusPending)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return item, nil
}

// Update persists the mutable fields of an item.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is required")
	}
	item.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE titles SET
            title = ?, brief_path = ?, status = ?, error_message = ?,
            progress_stage = ?, progress_percent = ?, progress_message = ?,
            final_file = ?, updated_at = ?
         WHERE id = ?`,
		item.Title, item.BriefPath, item.Status, nullableString(item.ErrorMessage),
		nullableString(item.ProgressStage), item.ProgressPercent, nullableString(item.ProgressMessage),
		nullableString(item.FinalFile), item.UpdatedAt.Format(time.RFC3339Nano),
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("update title %d: %w", item.ID, err)
	}
	return nil
}

// Delete removes a title from the catalog.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM titles WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete title %d: %w", id, err)
	}
	return nil
}

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id              int64
		slug            string
		titleText       string
		briefPath       string
		statusStr       string
		errorMessage    sql.NullString
		progressStage   sql.NullString
		progressPercent sql.NullInt64
		progressMessage sql.NullString
		finalFile       sql.NullString
		createdRaw      string
		updatedRaw      string
	)
	if err := scanner.Scan(
		&id, &slug, &titleText, &briefPath, &statusStr,
		&errorMessage, &progressStage, &progressPercent, &progressMessage,
		&finalFile, &createdRaw, &updatedRaw,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan title: %w", err)
	}

	status, ok := ParseStatus(statusStr)
	if !ok {
		return nil, fmt.Errorf("unknown title status %q", statusStr)
	}

	item := &Item{
		ID:              id,
		Slug:            slug,
		Title:           titleText,
		BriefPath:       briefPath,
		Status:          status,
		ErrorMessage:    errorMessage.String,
		ProgressStage:   progressStage.String,
		ProgressPercent: int(progressPercent.Int64),
		ProgressMessage: progressMessage.String,
		FinalFile:       finalFile.String,
	}
	item.CreatedAt = parseTimestamp(createdRaw)
	item.UpdatedAt = parseTimestamp(updatedRaw)
	return item, nil
}

func parseTimestamp(raw string) time.Time {
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts.UTC()
	}
	return time.Time{}
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
