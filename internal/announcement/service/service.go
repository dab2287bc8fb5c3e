package service

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"barangay/internal/announcement/models"
	id "barangay/pkg/domain"
	dErrors "barangay/pkg/domain-errors"
	"barangay/pkg/email"
	audit "barangay/pkg/platform/audit"
	"barangay/pkg/platform/sentinel"
	"barangay/pkg/requestcontext"
)

// MaxImageBytes caps an uploaded announcement image.
const MaxImageBytes = 5 << 20

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

type Store interface {
	Create(ctx context.Context, a *models.Announcement) error
	FindByID(ctx context.Context, announcementID id.AnnouncementID) (*models.Announcement, error)
	Update(ctx context.Context, a *models.Announcement) error
	Delete(ctx context.Context, announcementID id.AnnouncementID) error
	List(ctx context.Context, activeOnly bool) ([]*models.Announcement, error)
	NextActive(ctx context.Context, after time.Time) (*models.Announcement, error)
}

type ImageStore interface {
	Save(ctx context.Context, ext string, data []byte) (string, error)
	Read(ctx context.Context, name string) ([]byte, error)
	Remove(ctx context.Context, name string) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Image is an uploaded picture. FileName is only used for its extension.
type Image struct {
	FileName string
	Content  []byte
}

// CreateInput is a new announcement as submitted by an admin.
type CreateInput struct {
	Title       string
	Description string
	Date        time.Time
	Image       *Image
}

// Service manages announcements. Every admin change is recorded in the
// activity log.
type Service struct {
	store          Store
	images         ImageStore
	logger         *slog.Logger
	auditPublisher AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func New(store Store, images ImageStore, opts ...Option) *Service {
	s := &Service{store: store, images: images, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new active announcement authored by the caller.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Announcement, error) {
	now := requestcontext.Now(ctx)
	a := &models.Announcement{
		ID:          id.NewAnnouncementID(),
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Date:        models.DateOnly(in.Date),
		IsActive:    true,
		CreatedBy:   requestcontext.UserID(ctx),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if in.Image != nil {
		name, err := s.saveImage(ctx, in.Image)
		if err != nil {
			return nil, err
		}
		a.SetImage(name)
	}

	if err := s.store.Create(ctx, a); err != nil {
		s.discardImage(ctx, a.ImageFilename)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create announcement")
	}

	s.logger.InfoContext(ctx, "announcement created",
		"announcement_id", a.ID.String(),
		"has_image", a.ImageFilename != "",
		"request_id", requestcontext.RequestID(ctx),
	)
	event := audit.NewEvent(ctx, audit.EventAnnouncementCreated, "Announcement created",
		`Created new announcement: "`+a.Title+`"`)
	event.UserName = email.DisplayName(event.UserEmail, "", "")
	event.Changes = map[string]any{
		"action":         "create",
		"announcementId": a.ID.String(),
		"title":          a.Title,
		"hasImage":       a.ImageFilename != "",
	}
	s.emit(ctx, event)
	return a, nil
}

// ListPublic returns active announcements, latest event date first.
func (s *Service) ListPublic(ctx context.Context) ([]*models.Announcement, error) {
	items, err := s.store.List(ctx, true)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list announcements")
	}
	return items, nil
}

// ListAll returns every announcement, newest first, for the admin panel.
func (s *Service) ListAll(ctx context.Context) ([]*models.Announcement, error) {
	items, err := s.store.List(ctx, false)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list announcements")
	}
	return items, nil
}

// Get returns one announcement. Inactive ones are hidden unless
// includeInactive is set.
func (s *Service) Get(ctx context.Context, announcementID id.AnnouncementID, includeInactive bool) (*models.Announcement, error) {
	a, err := s.store.FindByID(ctx, announcementID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "announcement not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load announcement")
	}
	if !a.IsActive && !includeInactive {
		return nil, dErrors.New(dErrors.CodeNotFound, "announcement not found")
	}
	return a, nil
}

// Update applies u and, when img is set, replaces the image. The previous
// image file is removed only after the new state is stored.
func (s *Service) Update(ctx context.Context, announcementID id.AnnouncementID, u models.Update, img *Image) (*models.Announcement, error) {
	if u.IsEmpty() && img == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "no announcement fields to update")
	}
	a, err := s.Get(ctx, announcementID, true)
	if err != nil {
		return nil, err
	}
	oldTitle, oldImage := a.Title, a.ImageFilename

	changes := u.Apply(a)
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if img != nil {
		name, err := s.saveImage(ctx, img)
		if err != nil {
			return nil, err
		}
		a.SetImage(name)
		from := "No image"
		if oldImage != "" {
			from = "Previous image"
		}
		changes["image"] = models.Change{From: from, To: "New image uploaded"}
	}
	if len(changes) == 0 {
		return a, nil
	}
	a.UpdatedAt = requestcontext.Now(ctx)

	if err := s.store.Update(ctx, a); err != nil {
		if img != nil {
			s.discardImage(ctx, a.ImageFilename)
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "announcement not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update announcement")
	}
	if img != nil {
		s.discardImage(ctx, oldImage)
	}

	fields := make(map[string]any, len(changes))
	for k, v := range changes {
		fields[k] = v
	}
	s.logger.InfoContext(ctx, "announcement updated",
		"announcement_id", a.ID.String(),
		"fields", len(changes),
		"request_id", requestcontext.RequestID(ctx),
	)
	event := audit.NewEvent(ctx, audit.EventAnnouncementUpdated, "Announcement updated",
		`Updated announcement: "`+oldTitle+`"`)
	event.UserName = email.DisplayName(event.UserEmail, "", "")
	event.Changes = fields
	s.emit(ctx, event)
	return a, nil
}

// ToggleActive flips the visibility of an announcement.
func (s *Service) ToggleActive(ctx context.Context, announcementID id.AnnouncementID) (*models.Announcement, error) {
	a, err := s.Get(ctx, announcementID, true)
	if err != nil {
		return nil, err
	}
	was := a.IsActive
	a.IsActive = !was
	a.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Update(ctx, a); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "announcement not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update announcement")
	}

	verb := "Deactivated"
	if a.IsActive {
		verb = "Activated"
	}
	event := audit.NewEvent(ctx, audit.EventAnnouncementToggled, "Announcement "+verb,
		verb+` announcement: "`+a.Title+`"`)
	event.UserName = email.DisplayName(event.UserEmail, "", "")
	event.Changes = map[string]any{
		"action":         "toggle-active",
		"announcementId": a.ID.String(),
		"title":          a.Title,
		"isActive":       models.Change{From: was, To: a.IsActive},
	}
	s.emit(ctx, event)
	return a, nil
}

// Delete removes the announcement and its image.
func (s *Service) Delete(ctx context.Context, announcementID id.AnnouncementID) error {
	a, err := s.Get(ctx, announcementID, true)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, announcementID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "announcement not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete announcement")
	}
	s.discardImage(ctx, a.ImageFilename)

	event := audit.NewEvent(ctx, audit.EventAnnouncementDeleted, "Announcement deleted",
		`Deleted announcement: "`+a.Title+`"`)
	event.UserName = email.DisplayName(event.UserEmail, "", "")
	event.Changes = map[string]any{
		"action":         "delete",
		"announcementId": a.ID.String(),
		"title":          a.Title,
		"hadImage":       a.ImageFilename != "",
	}
	s.emit(ctx, event)
	return nil
}

// Image returns stored image bytes by file name.
func (s *Service) Image(ctx context.Context, name string) ([]byte, error) {
	data, err := s.images.Read(ctx, name)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "image not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read image")
	}
	return data, nil
}

// Headline is the title of the next upcoming active announcement, else the
// latest active one, else models.NoUpcomingEvent.
func (s *Service) Headline(ctx context.Context) (string, error) {
	next, err := s.store.NextActive(ctx, requestcontext.Now(ctx))
	if err == nil {
		return next.Title, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load upcoming announcement")
	}
	active, err := s.store.List(ctx, true)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to list announcements")
	}
	if len(active) == 0 {
		return models.NoUpcomingEvent, nil
	}
	return active[0].Title, nil
}

func (s *Service) saveImage(ctx context.Context, img *Image) (string, error) {
	ext := strings.ToLower(filepath.Ext(img.FileName))
	if !imageExtensions[ext] {
		return "", dErrors.New(dErrors.CodeValidation, "only image files are allowed (jpg, jpeg, png, gif, webp)")
	}
	if len(img.Content) == 0 {
		return "", dErrors.New(dErrors.CodeValidation, "image file is empty")
	}
	if len(img.Content) > MaxImageBytes {
		return "", dErrors.New(dErrors.CodeValidation, "image exceeds the "+strconv.Itoa(MaxImageBytes>>20)+" MB limit")
	}
	name, err := s.images.Save(ctx, ext, img.Content)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to store image")
	}
	return name, nil
}

func (s *Service) discardImage(ctx context.Context, name string) {
	if name == "" {
		return
	}
	if err := s.images.Remove(context.WithoutCancel(ctx), name); err != nil {
		s.logger.WarnContext(ctx, "failed to remove announcement image", "file", name, "error", err)
	}
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit activity event", "action", event.Action, "error", err)
	}
}
