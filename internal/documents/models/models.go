// Package models holds document request types, statuses and transitions.
package models

import (
	"strings"
	"time"

	id "barangay/pkg/domain"
	dErrors "barangay/pkg/domain-errors"
)

// DocumentType identifies a certificate the barangay issues.
type DocumentType string

const (
	TypeBarangayClearance      DocumentType = "barangay_clearance"
	TypeCertificateOfResidency DocumentType = "certificate_of_residency"
	TypeCertificateOfIndigency DocumentType = "certificate_of_indigency"
)

// DocumentTypes lists every supported type in display order.
var DocumentTypes = []DocumentType{
	TypeBarangayClearance,
	TypeCertificateOfResidency,
	TypeCertificateOfIndigency,
}

var (
	displayNames = map[DocumentType]string{
		TypeBarangayClearance:      "Barangay Clearance",
		TypeCertificateOfResidency: "Certificate of Residency",
		TypeCertificateOfIndigency: "Certificate of Indigency",
	}
	filePrefixes = map[DocumentType]string{
		TypeBarangayClearance:      "Clearance",
		TypeCertificateOfResidency: "Residency",
		TypeCertificateOfIndigency: "Indigency",
	}
)

// ParseDocumentType validates s. Empty input selects barangay clearance.
func ParseDocumentType(s string) (DocumentType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TypeBarangayClearance, nil
	}
	t := DocumentType(s)
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "invalid document type: "+s)
	}
	return t, nil
}

func (t DocumentType) IsValid() bool {
	_, ok := displayNames[t]
	return ok
}

// DisplayName is the human-readable name used in messages.
func (t DocumentType) DisplayName() string {
	if name, ok := displayNames[t]; ok {
		return name
	}
	return string(t)
}

// FilePrefix is the leading segment of generated file names.
func (t DocumentType) FilePrefix() string {
	if p, ok := filePrefixes[t]; ok {
		return p
	}
	return "Document"
}

// Status is the lifecycle state of a request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
)

// CanTransitionTo reports whether s may move to next. Approved and denied
// are terminal.
func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusPending && (next == StatusApproved || next == StatusDenied)
}

// Request is a citizen's document request.
type Request struct {
	ID            id.RequestID `json:"id"`
	UserID        id.UserID    `json:"userId"`
	Type          DocumentType `json:"requestType"`
	Purpose       string       `json:"purpose"`
	Status        Status       `json:"status"`
	AdminNotes    *string      `json:"adminNotes,omitempty"`
	DenialReason  *string      `json:"denialReason,omitempty"`
	ProcessedBy   *id.UserID   `json:"processedBy,omitempty"`
	ProcessedAt   *time.Time   `json:"processedAt,omitempty"`
	GeneratedFile *string      `json:"generatedFile,omitempty"`
	AdminCreated  bool         `json:"adminCreated"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// IsOwnedBy reports whether userID submitted the request.
func (r *Request) IsOwnedBy(userID id.UserID) bool {
	return r.UserID == userID
}

// Downloadable reports whether a generated file may be served.
func (r *Request) Downloadable() bool {
	return r.Status == StatusApproved && r.GeneratedFile != nil && *r.GeneratedFile != ""
}

// Transition is the guarded update applied when an admin processes a request.
type Transition struct {
	To            Status
	ProcessedBy   id.UserID
	ProcessedAt   time.Time
	AdminNotes    *string
	DenialReason  *string
	GeneratedFile *string
}

// GeneratedFileName builds <Prefix>_<LastName>_<YYYY-MM-DD>.docx. Characters
// that are unsafe in file names are replaced with underscores.
func GeneratedFileName(t DocumentType, lastName string, at time.Time) string {
	return t.FilePrefix() + "_" + sanitizeFileSegment(lastName) + "_" + at.Format(time.DateOnly) + ".docx"
}

func sanitizeFileSegment(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "Unknown"
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' || r == '"' || r == '<' || r == '>' || r == '|' || r < 0x20:
			b.WriteRune('_')
		case r == ' ':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "." || out == ".." {
		return "Unknown"
	}
	return out
}

// TemplateStatus describes the stored template for one type.
type TemplateStatus struct {
	Type        DocumentType `json:"type"`
	DisplayName string       `json:"displayName"`
	Exists      bool         `json:"exists"`
	UpdatedAt   *time.Time   `json:"lastModified,omitempty"`
}

// CitizenSummary is the requester shown next to a request in admin lists.
type CitizenSummary struct {
	ID          id.UserID `json:"id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
}

// RequestWithCitizen is an admin listing row.
type RequestWithCitizen struct {
	Request
	Citizen *CitizenSummary `json:"user,omitempty"`
}
