package request

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"barangay/internal/documents/models"
	"barangay/internal/platform/postgres"
	id "barangay/pkg/domain"
	"barangay/pkg/platform/sentinel"
	txcontext "barangay/pkg/platform/tx"
)

// PostgresStore persists requests in document_requests. Pending uniqueness
// is enforced by the document_requests_one_pending_per_type partial index.
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

const requestColumns = `id, user_id, request_type, purpose, status, admin_notes, denial_reason,
	processed_by, processed_at, generated_file, admin_created, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*models.Request, error) {
	var (
		r            models.Request
		rid          int64
		uid          uuid.UUID
		notes        sql.NullString
		reason       sql.NullString
		processedBy  uuid.NullUUID
		processedAt  sql.NullTime
		generated    sql.NullString
		requestType  string
		statusColumn string
	)
	err := row.Scan(&rid, &uid, &requestType, &r.Purpose, &statusColumn, &notes, &reason,
		&processedBy, &processedAt, &generated, &r.AdminCreated, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.ID = id.RequestID(rid)
	r.UserID = id.UserID(uid)
	r.Type = models.DocumentType(requestType)
	r.Status = models.Status(statusColumn)
	r.AdminNotes = nullString(notes)
	r.DenialReason = nullString(reason)
	r.GeneratedFile = nullString(generated)
	if processedBy.Valid {
		v := id.UserID(processedBy.UUID)
		r.ProcessedBy = &v
	}
	if processedAt.Valid {
		v := processedAt.Time
		r.ProcessedAt = &v
	}
	return &r, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

// Create inserts r and sets its ID. A unique violation on the pending index
// maps to sentinel.ErrConflict.
func (s *PostgresStore) Create(ctx context.Context, r *models.Request) error {
	query := `INSERT INTO document_requests
		(user_id, request_type, purpose, status, admin_created, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	var rid int64
	err := s.execer(ctx).QueryRowContext(ctx, query,
		uuid.UUID(r.UserID), string(r.Type), r.Purpose, string(r.Status), r.AdminCreated, r.CreatedAt, r.UpdatedAt,
	).Scan(&rid)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert document request: %w", err)
	}
	r.ID = id.RequestID(rid)
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, requestID id.RequestID) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM document_requests WHERE id = $1`
	r, err := scanRequest(s.execer(ctx).QueryRowContext(ctx, query, int64(requestID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find document request: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) FindPending(ctx context.Context, userID id.UserID, t models.DocumentType) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM document_requests
		WHERE user_id = $1 AND request_type = $2 AND status = 'pending'
		ORDER BY created_at DESC, id DESC LIMIT 1`
	r, err := scanRequest(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(userID), string(t)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find pending document request: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID, status models.Status) ([]*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM document_requests
		WHERE user_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC, id DESC`
	return s.query(ctx, query, uuid.UUID(userID), string(status))
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status models.Status) ([]*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM document_requests
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id DESC`
	return s.query(ctx, query, string(status))
}

func (s *PostgresStore) CountByStatus(ctx context.Context) (map[models.Status]int, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `SELECT status, COUNT(*) FROM document_requests GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count document requests: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan request count: %w", err)
		}
		counts[models.Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate request counts: %w", err)
	}
	return counts, nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM document_requests
		ORDER BY updated_at DESC, id DESC
		LIMIT $1`
	return s.query(ctx, query, limit)
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]*models.Request, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list document requests: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Request, 0)
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document request: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document requests: %w", err)
	}
	return out, nil
}

// Transition is a compare-and-set on status = 'pending'. When no row
// matches, the request is either missing (ErrNotFound) or already processed
// (ErrInvalidState).
func (s *PostgresStore) Transition(ctx context.Context, requestID id.RequestID, t models.Transition) (*models.Request, error) {
	query := `UPDATE document_requests SET
		status = $2, processed_by = $3, processed_at = $4, admin_notes = $5,
		denial_reason = $6, generated_file = $7, updated_at = $4
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + requestColumns
	r, err := scanRequest(s.execer(ctx).QueryRowContext(ctx, query,
		int64(requestID), string(t.To), uuid.UUID(t.ProcessedBy), t.ProcessedAt,
		t.AdminNotes, t.DenialReason, t.GeneratedFile,
	))
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transition document request: %w", err)
	}
	if _, findErr := s.FindByID(ctx, requestID); findErr != nil {
		return nil, findErr
	}
	return nil, sentinel.ErrInvalidState
}

// DeletePending removes the request only while it is pending.
func (s *PostgresStore) DeletePending(ctx context.Context, requestID id.RequestID) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM document_requests WHERE id = $1 AND status = 'pending'`, int64(requestID))
	if err != nil {
		return fmt.Errorf("delete document request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
