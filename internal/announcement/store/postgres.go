package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"barangay/internal/announcement/models"
	"barangay/internal/platform/postgres"
	id "barangay/pkg/domain"
	"barangay/pkg/platform/sentinel"
	txcontext "barangay/pkg/platform/tx"
)

// PostgresStore persists announcements in the announcements table. Image
// bytes live in an ImageStore; only the file name is stored here.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const announcementColumns = `id, title, description, image_filename, event_date, is_active,
	created_by, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnnouncement(row rowScanner) (*models.Announcement, error) {
	var (
		a         models.Announcement
		aid       uuid.UUID
		createdBy uuid.NullUUID
		image     string
	)
	if err := row.Scan(&aid, &a.Title, &a.Description, &image, &a.Date, &a.IsActive,
		&createdBy, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.ID = id.AnnouncementID(aid)
	a.Date = models.DateOnly(a.Date)
	if createdBy.Valid {
		a.CreatedBy = id.UserID(createdBy.UUID)
	}
	a.SetImage(image)
	return &a, nil
}

func nullUser(u id.UserID) uuid.NullUUID {
	if u.IsNil() {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(u), Valid: true}
}

func (s *PostgresStore) Create(ctx context.Context, a *models.Announcement) error {
	query := `INSERT INTO announcements (` + announcementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(a.ID), a.Title, a.Description, a.ImageFilename, a.Date, a.IsActive,
		nullUser(a.CreatedBy), a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert announcement: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, announcementID id.AnnouncementID) (*models.Announcement, error) {
	query := `SELECT ` + announcementColumns + ` FROM announcements WHERE id = $1`
	a, err := scanAnnouncement(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(announcementID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find announcement: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) Update(ctx context.Context, a *models.Announcement) error {
	query := `UPDATE announcements SET
		title = $2, description = $3, image_filename = $4, event_date = $5, is_active = $6, updated_at = $7
		WHERE id = $1`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(a.ID), a.Title, a.Description, a.ImageFilename, a.Date, a.IsActive, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update announcement: %w", err)
	}
	return requireOneRow(res)
}

func (s *PostgresStore) Delete(ctx context.Context, announcementID id.AnnouncementID) error {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM announcements WHERE id = $1`, uuid.UUID(announcementID))
	if err != nil {
		return fmt.Errorf("delete announcement: %w", err)
	}
	return requireOneRow(res)
}

func (s *PostgresStore) List(ctx context.Context, activeOnly bool) ([]*models.Announcement, error) {
	query := `SELECT ` + announcementColumns + ` FROM announcements ORDER BY created_at DESC`
	if activeOnly {
		query = `SELECT ` + announcementColumns + ` FROM announcements
			WHERE is_active ORDER BY event_date DESC, created_at DESC`
	}
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Announcement, 0)
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan announcement: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate announcements: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) NextActive(ctx context.Context, after time.Time) (*models.Announcement, error) {
	query := `SELECT ` + announcementColumns + ` FROM announcements
		WHERE is_active AND event_date > $1::date
		ORDER BY event_date ASC LIMIT 1`
	a, err := scanAnnouncement(s.execer(ctx).QueryRowContext(ctx, query, after.UTC().Format(time.DateOnly)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find next announcement: %w", err)
	}
	return a, nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
