//go:build integration

package request_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"barangay/internal/documents/models"
	"barangay/internal/documents/store/request"
	id "barangay/pkg/domain"
	"barangay/pkg/platform/sentinel"
	txcontext "barangay/pkg/platform/tx"
	"barangay/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *request.PostgresStore
	user     id.UserID
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = request.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "document_requests", "citizens"))
	s.user = id.NewUserID()
	_, err := s.postgres.DB.ExecContext(ctx,
		`INSERT INTO citizens (id, email, first_name, last_name) VALUES ($1, $2, 'Juan', 'Cruz')`,
		uuid.UUID(s.user), s.user.String()+"@example.com")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) pending(t models.DocumentType) *models.Request {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Request{
		UserID:    s.user,
		Type:      t,
		Purpose:   "Scholarship",
		Status:    models.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *PostgresStoreSuite) TestConcurrentSubmitsLeaveOnePending() {
	ctx := context.Background()
	const workers = 16
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		conflicts atomic.Int32
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := s.store.Create(ctx, s.pending(models.TypeBarangayClearance))
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	s.Equal(int32(1), succeeded.Load())
	s.Equal(int32(workers-1), conflicts.Load())
}

func (s *PostgresStoreSuite) TestAdminCreatedIsExemptFromPendingIndex() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.pending(models.TypeBarangayClearance)))

	admin := s.pending(models.TypeBarangayClearance)
	admin.AdminCreated = true
	s.NoError(s.store.Create(ctx, admin))
}

func (s *PostgresStoreSuite) TestTransitionIsCompareAndSet() {
	ctx := context.Background()
	r := s.pending(models.TypeCertificateOfResidency)
	s.Require().NoError(s.store.Create(ctx, r))
	file := "Residency_Cruz_2024-01-01.docx"
	notes := "ok"

	approved, err := s.store.Transition(ctx, r.ID, models.Transition{
		To:            models.StatusApproved,
		ProcessedBy:   id.NewUserID(),
		ProcessedAt:   time.Now().UTC(),
		AdminNotes:    &notes,
		GeneratedFile: &file,
	})
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, approved.Status)
	s.Equal(file, *approved.GeneratedFile)
	s.Nil(approved.DenialReason)

	reason := "late"
	_, err = s.store.Transition(ctx, r.ID, models.Transition{
		To:           models.StatusDenied,
		ProcessedBy:  id.NewUserID(),
		ProcessedAt:  time.Now().UTC(),
		DenialReason: &reason,
	})
	s.ErrorIs(err, sentinel.ErrInvalidState)

	stored, err := s.store.FindByID(ctx, r.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, stored.Status)
	s.Nil(stored.DenialReason)

	_, err = s.store.Transition(ctx, 424242, models.Transition{To: models.StatusDenied, ProcessedAt: time.Now()})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestRolledBackTransitionLeavesRequestPending() {
	ctx := context.Background()
	r := s.pending(models.TypeBarangayClearance)
	s.Require().NoError(s.store.Create(ctx, r))

	runner := txcontext.NewPostgresRunner(s.postgres.DB, 5*time.Second)
	failure := errors.New("file write failed")
	err := runner.RunInTx(ctx, func(txCtx context.Context) error {
		file := "x.docx"
		if _, err := s.store.Transition(txCtx, r.ID, models.Transition{
			To:            models.StatusApproved,
			ProcessedBy:   id.NewUserID(),
			ProcessedAt:   time.Now().UTC(),
			GeneratedFile: &file,
		}); err != nil {
			return err
		}
		return failure
	})
	s.ErrorIs(err, failure)

	stored, err := s.store.FindByID(ctx, r.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, stored.Status)
}

func (s *PostgresStoreSuite) TestDeletePendingTwice() {
	ctx := context.Background()
	r := s.pending(models.TypeCertificateOfIndigency)
	s.Require().NoError(s.store.Create(ctx, r))

	s.Require().NoError(s.store.DeletePending(ctx, r.ID))
	s.ErrorIs(s.store.DeletePending(ctx, r.ID), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListings() {
	ctx := context.Background()
	first := s.pending(models.TypeBarangayClearance)
	s.Require().NoError(s.store.Create(ctx, first))
	second := s.pending(models.TypeCertificateOfResidency)
	second.CreatedAt = second.CreatedAt.Add(time.Minute)
	s.Require().NoError(s.store.Create(ctx, second))

	mine, err := s.store.ListByUser(ctx, s.user, models.StatusPending)
	s.Require().NoError(err)
	s.Require().Len(mine, 2)
	s.Equal(second.ID, mine[0].ID)

	approved, err := s.store.ListByStatus(ctx, models.StatusApproved)
	s.Require().NoError(err)
	s.Empty(approved)
}

func (s *PostgresStoreSuite) TestCountsAndRecentActivity() {
	ctx := context.Background()
	first := s.pending(models.TypeBarangayClearance)
	s.Require().NoError(s.store.Create(ctx, first))
	second := s.pending(models.TypeCertificateOfResidency)
	second.UpdatedAt = second.UpdatedAt.Add(time.Minute)
	s.Require().NoError(s.store.Create(ctx, second))
	_, err := s.store.Transition(ctx, first.ID, models.Transition{
		To:          models.StatusApproved,
		ProcessedBy: id.NewUserID(),
		ProcessedAt: time.Now().UTC().Add(time.Hour),
	})
	s.Require().NoError(err)

	counts, err := s.store.CountByStatus(ctx)
	s.Require().NoError(err)
	s.Equal(1, counts[models.StatusPending])
	s.Equal(1, counts[models.StatusApproved])

	recent, err := s.store.ListRecent(ctx, 5)
	s.Require().NoError(err)
	s.Require().Len(recent, 2)
	s.Equal(first.ID, recent[0].ID)
}
