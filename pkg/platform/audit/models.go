package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	id "barangay/pkg/domain"
	"barangay/pkg/requestcontext"
)

// ActivityType groups activity log entries for filtering and retention.
type ActivityType string

const (
	TypeDocument     ActivityType = "document"
	TypeTemplate     ActivityType = "template"
	TypeProfile      ActivityType = "profile"
	TypeAnnouncement ActivityType = "announcement"
	TypeSystem       ActivityType = "system"
)

// Event is one activity log entry. Keep it transport-agnostic so stores and
// sinks can fan out.
type Event struct {
	ID          uuid.UUID      `json:"id"`
	Type        ActivityType   `json:"type"`
	Action      string         `json:"action"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Changes     map[string]any `json:"changes,omitempty"`
	UserID      id.UserID      `json:"userId"`
	UserEmail   string         `json:"userEmail,omitempty"`
	UserName    string         `json:"userName,omitempty"`
	UserRole    string         `json:"userRole,omitempty"`
	IPAddress   string         `json:"ipAddress,omitempty"`
	UserAgent   string         `json:"userAgent,omitempty"`
	RequestID   string         `json:"requestId,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

type AuditEvent string

const (
	EventCitizenRegistered       AuditEvent = "citizen_registered"
	EventProfileUpdated          AuditEvent = "profile_updated"
	EventDocumentRequested       AuditEvent = "document_request_created"
	EventDocumentAdminRequested  AuditEvent = "document_request_admin_created"
	EventDocumentApproved        AuditEvent = "document_request_approved"
	EventDocumentDenied          AuditEvent = "document_request_denied"
	EventDocumentCancelled       AuditEvent = "document_request_cancelled"
	EventDocumentDownloaded      AuditEvent = "document_downloaded"
	EventTemplateUploaded        AuditEvent = "template_uploaded"
	EventDefaultTemplateRestored AuditEvent = "default_template_restored"
	EventAnnouncementCreated     AuditEvent = "announcement_created"
	EventAnnouncementUpdated     AuditEvent = "announcement_updated"
	EventAnnouncementToggled     AuditEvent = "announcement_toggled"
	EventAnnouncementDeleted     AuditEvent = "announcement_deleted"
	EventActivityPurged          AuditEvent = "activity_logs_purged"
)

var eventTypes = map[AuditEvent]ActivityType{
	EventCitizenRegistered:       TypeProfile,
	EventProfileUpdated:          TypeProfile,
	EventDocumentRequested:       TypeDocument,
	EventDocumentAdminRequested:  TypeDocument,
	EventDocumentApproved:        TypeDocument,
	EventDocumentDenied:          TypeDocument,
	EventDocumentCancelled:       TypeDocument,
	EventDocumentDownloaded:      TypeDocument,
	EventTemplateUploaded:        TypeTemplate,
	EventDefaultTemplateRestored: TypeTemplate,
	EventAnnouncementCreated:     TypeAnnouncement,
	EventAnnouncementUpdated:     TypeAnnouncement,
	EventAnnouncementToggled:     TypeAnnouncement,
	EventAnnouncementDeleted:     TypeAnnouncement,
	EventActivityPurged:          TypeSystem,
}

// Type returns the ActivityType for this event. Unknown events are system events.
func (e AuditEvent) Type() ActivityType {
	if t, ok := eventTypes[e]; ok {
		return t
	}
	return TypeSystem
}

// NewEvent builds an event for action, filling actor and client metadata
// from the request context.
func NewEvent(ctx context.Context, action AuditEvent, title, description string) Event {
	return Event{
		ID:          uuid.New(),
		Type:        action.Type(),
		Action:      string(action),
		Title:       title,
		Description: description,
		UserID:      requestcontext.UserID(ctx),
		UserEmail:   requestcontext.Email(ctx),
		UserRole:    requestcontext.Role(ctx),
		IPAddress:   requestcontext.ClientIP(ctx),
		UserAgent:   requestcontext.UserAgent(ctx),
		RequestID:   requestcontext.RequestID(ctx),
		Timestamp:   requestcontext.Now(ctx).UTC(),
	}
}

// Filter narrows List results. Zero values mean "any".
type Filter struct {
	Type   ActivityType
	UserID id.UserID
	Query  string
	From   time.Time
	To     time.Time
	Page   int
	Limit  int
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Normalize clamps paging to sane bounds.
func (f Filter) Normalize() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
	return f
}

// Offset returns the zero-based row offset of the page.
func (f Filter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Store persists activity events.
type Store interface {
	Append(ctx context.Context, event Event) error
	List(ctx context.Context, filter Filter) ([]Event, int, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sink receives events after they are stored, e.g. a message broker.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}
