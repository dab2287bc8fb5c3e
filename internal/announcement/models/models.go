// Package models holds barangay announcements shown to residents.
package models

import (
	"strings"
	"time"

	id "barangay/pkg/domain"
	dErrors "barangay/pkg/domain-errors"
)

// ImageRoute is the public path images are served from.
const ImageRoute = "/announcements/images/"

// NoUpcomingEvent is the dashboard headline when nothing is active.
const NoUpcomingEvent = "No upcoming events"

// Announcement is a notice with an event date. Inactive announcements are
// only visible to admins.
type Announcement struct {
	ID            id.AnnouncementID `json:"id"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	Image         string            `json:"image,omitempty"`
	ImageFilename string            `json:"imageFilename,omitempty"`
	Date          time.Time         `json:"date"`
	IsActive      bool              `json:"isActive"`
	CreatedBy     id.UserID         `json:"createdBy"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// SetImage records the stored image file and its public URL. An empty name
// clears both.
func (a *Announcement) SetImage(filename string) {
	a.ImageFilename = filename
	a.Image = ""
	if filename != "" {
		a.Image = ImageRoute + filename
	}
}

// Validate checks the fields every stored announcement must have.
func (a *Announcement) Validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if strings.TrimSpace(a.Description) == "" {
		return dErrors.New(dErrors.CodeValidation, "description is required")
	}
	if a.Date.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "date is required")
	}
	return nil
}

// Update carries the fields an admin may change. Nil means unchanged.
type Update struct {
	Title       *string
	Description *string
	Date        *time.Time
	IsActive    *bool
}

func (u Update) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Date == nil && u.IsActive == nil
}

// Change is one field's before and after value in the activity log.
type Change struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// Apply writes u onto a and returns the fields whose value changed.
func (u Update) Apply(a *Announcement) map[string]Change {
	changes := make(map[string]Change)
	if u.Title != nil {
		if v := strings.TrimSpace(*u.Title); v != a.Title {
			changes["title"] = Change{From: a.Title, To: v}
			a.Title = v
		}
	}
	if u.Description != nil {
		if v := strings.TrimSpace(*u.Description); v != a.Description {
			changes["description"] = Change{From: a.Description, To: v}
			a.Description = v
		}
	}
	if u.Date != nil {
		if v := DateOnly(*u.Date); !v.Equal(a.Date) {
			changes["date"] = Change{From: a.Date.Format(time.DateOnly), To: v.Format(time.DateOnly)}
			a.Date = v
		}
	}
	if u.IsActive != nil && *u.IsActive != a.IsActive {
		changes["status"] = Change{From: StatusLabel(a.IsActive), To: StatusLabel(*u.IsActive)}
		a.IsActive = *u.IsActive
	}
	return changes
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func StatusLabel(active bool) string {
	if active {
		return "Active"
	}
	return "Inactive"
}
