package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"barangay/internal/citizen/models"
	"barangay/internal/platform/postgres"
	id "barangay/pkg/domain"
	"barangay/pkg/platform/sentinel"
	txcontext "barangay/pkg/platform/tx"
)

// PostgresStore persists profiles in the citizens table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const profileColumns = `id, email, first_name, middle_name, last_name, suffix, date_of_birth,
	phone_number, house_number, street, street_number, street_name, barangay, city,
	province, zip_code, role, is_profile_complete, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, p *models.Profile) error {
	query := `INSERT INTO citizens (` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(p.ID), p.Email, p.FirstName, p.MiddleName, p.LastName, p.Suffix, p.DateOfBirth,
		p.PhoneNumber, p.HouseNumber, p.Street, p.StreetNumber, p.StreetName, p.Barangay, p.City,
		p.Province, p.ZipCode, p.Role, p.IsProfileComplete, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert citizen: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM citizens WHERE id = $1`
	var (
		p   models.Profile
		uid uuid.UUID
		dob sql.NullTime
	)
	err := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(userID)).Scan(
		&uid, &p.Email, &p.FirstName, &p.MiddleName, &p.LastName, &p.Suffix, &dob,
		&p.PhoneNumber, &p.HouseNumber, &p.Street, &p.StreetNumber, &p.StreetName, &p.Barangay, &p.City,
		&p.Province, &p.ZipCode, &p.Role, &p.IsProfileComplete, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find citizen: %w", err)
	}
	p.ID = id.UserID(uid)
	if dob.Valid {
		t := dob.Time
		p.DateOfBirth = &t
	}
	return &p, nil
}

func (s *PostgresStore) Update(ctx context.Context, p *models.Profile) error {
	query := `UPDATE citizens SET
		first_name = $2, middle_name = $3, last_name = $4, suffix = $5, date_of_birth = $6,
		phone_number = $7, house_number = $8, street = $9, street_number = $10, street_name = $11,
		barangay = $12, city = $13, province = $14, zip_code = $15, is_profile_complete = $16,
		updated_at = $17
		WHERE id = $1`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(p.ID), p.FirstName, p.MiddleName, p.LastName, p.Suffix, p.DateOfBirth,
		p.PhoneNumber, p.HouseNumber, p.Street, p.StreetNumber, p.StreetName,
		p.Barangay, p.City, p.Province, p.ZipCode, p.IsProfileComplete, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update citizen: %w", err)
	}
	return requireOneRow(res)
}

func (s *PostgresStore) SetProfileComplete(ctx context.Context, userID id.UserID, complete bool) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE citizens SET is_profile_complete = $2 WHERE id = $1`, uuid.UUID(userID), complete)
	if err != nil {
		return fmt.Errorf("update completeness flag: %w", err)
	}
	return requireOneRow(res)
}

func (s *PostgresStore) Count(ctx context.Context) (models.Counts, error) {
	var c models.Counts
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE is_profile_complete) FROM citizens`,
	).Scan(&c.Total, &c.Complete)
	if err != nil {
		return models.Counts{}, fmt.Errorf("count citizens: %w", err)
	}
	return c, nil
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
