// Package domain holds typed identifiers shared across bounded contexts.
// Parsing happens once at trust boundaries so services never see raw strings.
package domain

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	dErrors "barangay/pkg/domain-errors"
)

// UserID identifies a citizen or administrator account.
type UserID uuid.UUID

// RequestID identifies a document request. Requests use a database sequence,
// so the identifier is a positive integer rather than a UUID.
type RequestID int64

func (id UserID) String() string {
	return uuid.UUID(id).String()
}

// IsNil reports whether the ID is the zero UUID.
func (id UserID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

// MarshalText lets UserID appear as a plain UUID string in JSON.
func (id UserID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText parses a UUID string, rejecting the nil UUID.
func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := ParseUserID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseUserID validates a non-empty, non-nil UUID.
func ParseUserID(s string) (UserID, error) {
	if strings.TrimSpace(s) == "" {
		return UserID{}, dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, dErrors.New(dErrors.CodeValidation, "invalid user id")
	}
	if parsed == uuid.Nil {
		return UserID{}, dErrors.New(dErrors.CodeValidation, "invalid user id")
	}
	return UserID(parsed), nil
}

// NewUserID returns a fresh random user ID.
func NewUserID() UserID {
	return UserID(uuid.New())
}

func (id RequestID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseRequestID validates a positive decimal request id.
func ParseRequestID(s string) (RequestID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "invalid request id")
	}
	return RequestID(n), nil
}

// AnnouncementID identifies a barangay announcement.
type AnnouncementID uuid.UUID

func (id AnnouncementID) String() string {
	return uuid.UUID(id).String()
}

func (id AnnouncementID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

func (id AnnouncementID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *AnnouncementID) UnmarshalText(b []byte) error {
	parsed, err := ParseAnnouncementID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseAnnouncementID validates a non-nil UUID.
func ParseAnnouncementID(s string) (AnnouncementID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil || parsed == uuid.Nil {
		return AnnouncementID{}, dErrors.New(dErrors.CodeValidation, "invalid announcement id")
	}
	return AnnouncementID(parsed), nil
}

func NewAnnouncementID() AnnouncementID {
	return AnnouncementID(uuid.New())
}
