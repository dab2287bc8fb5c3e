package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	id "barangay/pkg/domain"
	audit "barangay/pkg/platform/audit"
	txcontext "barangay/pkg/platform/tx"
)

// Store implements audit.Store on the activity_logs table.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL activity store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append inserts an event. Duplicate IDs are ignored so redelivery is safe.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	var changes []byte
	if len(event.Changes) > 0 {
		var err error
		changes, err = json.Marshal(event.Changes)
		if err != nil {
			return fmt.Errorf("marshal activity changes: %w", err)
		}
	}
	var userID *uuid.UUID
	if !event.UserID.IsNil() {
		uid := uuid.UUID(event.UserID)
		userID = &uid
	}

	query := `
		INSERT INTO activity_logs (
			id, title, description, type, action, changes, user_id,
			user_email, user_name, user_role, ip_address, user_agent, request_id, timestamp
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		event.ID, event.Title, event.Description, string(event.Type), event.Action, changes, userID,
		event.UserEmail, event.UserName, event.UserRole, event.IPAddress, event.UserAgent, event.RequestID,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert activity log: %w", err)
	}
	return nil
}

// List returns matching events newest first and the total match count.
func (s *Store) List(ctx context.Context, filter audit.Filter) ([]audit.Event, int, error) {
	filter = filter.Normalize()
	where, args := buildWhere(filter)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activity_logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count activity logs: %w", err)
	}

	query := `
		SELECT id, title, description, type, action, changes, user_id,
			   user_email, user_name, user_role, ip_address, user_agent, request_id, timestamp
		FROM activity_logs` + where + `
		ORDER BY timestamp DESC
		LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	rows, err := s.db.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("query activity logs: %w", err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// DeleteOlderThan removes events with a timestamp before cutoff.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM activity_logs WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete activity logs: %w", err)
	}
	return res.RowsAffected()
}

func buildWhere(f audit.Filter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, v any) {
		args = append(args, v)
		clauses = append(clauses, strings.ReplaceAll(clause, "?", "$"+strconv.Itoa(len(args))))
	}
	if f.Type != "" {
		add("type = ?", string(f.Type))
	}
	if !f.UserID.IsNil() {
		add("user_id = ?", uuid.UUID(f.UserID))
	}
	if !f.From.IsZero() {
		add("timestamp >= ?", f.From)
	}
	if !f.To.IsZero() {
		add("timestamp <= ?", f.To)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		add("(title ILIKE ? OR description ILIKE ? OR user_email ILIKE ? OR user_name ILIKE ?)", "%"+q+"%")
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// scanEvents scans multiple rows into an audit.Event slice.
func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event

	for rows.Next() {
		var (
			event          audit.Event
			eventType      string
			changes        []byte
			userIDNullable *uuid.UUID
		)

		err := rows.Scan(
			&event.ID,
			&event.Title,
			&event.Description,
			&eventType,
			&event.Action,
			&changes,
			&userIDNullable,
			&event.UserEmail,
			&event.UserName,
			&event.UserRole,
			&event.IPAddress,
			&event.UserAgent,
			&event.RequestID,
			&event.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan activity log: %w", err)
		}

		event.Type = audit.ActivityType(eventType)
		if userIDNullable != nil {
			event.UserID = id.UserID(*userIDNullable)
		}
		if len(changes) > 0 {
			if err := json.Unmarshal(changes, &event.Changes); err != nil {
				return nil, fmt.Errorf("decode activity changes: %w", err)
			}
		}

		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity logs: %w", err)
	}

	return events, nil
}
