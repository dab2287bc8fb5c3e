// Package models holds the citizen profile and its completeness rules.
package models

import (
	"strings"
	"time"

	id "barangay/pkg/domain"
)

// Profile is a registered resident. HouseNumber/Street are the legacy
// address pair kept for older accounts; StreetNumber/StreetName supersede them.
type Profile struct {
	ID           id.UserID  `json:"id"`
	Email        string     `json:"email"`
	FirstName    string     `json:"firstName"`
	MiddleName   string     `json:"middleName,omitempty"`
	LastName     string     `json:"lastName"`
	Suffix       string     `json:"suffix,omitempty"`
	DateOfBirth  *time.Time `json:"dateOfBirth,omitempty"`
	PhoneNumber  string     `json:"phoneNumber,omitempty"`
	HouseNumber  string     `json:"houseNumber,omitempty"`
	Street       string     `json:"street,omitempty"`
	StreetNumber string     `json:"streetNumber,omitempty"`
	StreetName   string     `json:"streetName,omitempty"`
	Barangay     string     `json:"barangay,omitempty"`
	City         string     `json:"city,omitempty"`
	Province     string     `json:"province,omitempty"`
	ZipCode      string     `json:"zipCode,omitempty"`
	Role         string     `json:"role"`

	// IsProfileComplete is a display cache. Gating always recomputes.
	IsProfileComplete bool      `json:"isProfileComplete"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// Counts summarizes registered citizens for the admin dashboard. Complete
// follows the cached completeness flag.
type Counts struct {
	Total    int `json:"totalCitizens"`
	Complete int `json:"completeProfiles"`
}

// Missing field categories reported to citizens.
const (
	FieldFirstName    = "first name"
	FieldLastName     = "last name"
	FieldDateOfBirth  = "date of birth"
	FieldStreetNumber = "street/house number"
	FieldStreetName   = "street name"
)

// StreetNumberValue returns the current street number, falling back to the
// legacy house number.
func (p *Profile) StreetNumberValue() string {
	if v := strings.TrimSpace(p.StreetNumber); v != "" {
		return v
	}
	return strings.TrimSpace(p.HouseNumber)
}

// StreetNameValue returns the current street name, falling back to the
// legacy street field.
func (p *Profile) StreetNameValue() string {
	if v := strings.TrimSpace(p.StreetName); v != "" {
		return v
	}
	return strings.TrimSpace(p.Street)
}

// FullName joins first and last name.
func (p *Profile) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

// MissingFields lists the categories that keep p from being complete.
func MissingFields(p *Profile) []string {
	if p == nil {
		return []string{FieldFirstName, FieldLastName, FieldDateOfBirth, FieldStreetNumber, FieldStreetName}
	}
	var missing []string
	if strings.TrimSpace(p.FirstName) == "" {
		missing = append(missing, FieldFirstName)
	}
	if strings.TrimSpace(p.LastName) == "" {
		missing = append(missing, FieldLastName)
	}
	if p.DateOfBirth == nil {
		missing = append(missing, FieldDateOfBirth)
	}
	if p.StreetNumberValue() == "" {
		missing = append(missing, FieldStreetNumber)
	}
	if p.StreetNameValue() == "" {
		missing = append(missing, FieldStreetName)
	}
	return missing
}

// IsComplete reports whether p may request documents.
func IsComplete(p *Profile) bool {
	return len(MissingFields(p)) == 0
}

// ProfileUpdate carries one optional slot per editable field. Nil leaves the
// stored value unchanged.
type ProfileUpdate struct {
	FirstName    *string    `json:"firstName,omitempty"`
	MiddleName   *string    `json:"middleName,omitempty"`
	LastName     *string    `json:"lastName,omitempty"`
	Suffix       *string    `json:"suffix,omitempty"`
	DateOfBirth  *time.Time `json:"dateOfBirth,omitempty"`
	PhoneNumber  *string    `json:"phoneNumber,omitempty"`
	HouseNumber  *string    `json:"houseNumber,omitempty"`
	Street       *string    `json:"street,omitempty"`
	StreetNumber *string    `json:"streetNumber,omitempty"`
	StreetName   *string    `json:"streetName,omitempty"`
	Barangay     *string    `json:"barangay,omitempty"`
	City         *string    `json:"city,omitempty"`
	Province     *string    `json:"province,omitempty"`
	ZipCode      *string    `json:"zipCode,omitempty"`
}

// Apply copies the set slots onto p and returns the names of changed fields.
func (u ProfileUpdate) Apply(p *Profile) []string {
	var changed []string
	set := func(name string, dst *string, src *string) {
		if src == nil {
			return
		}
		v := strings.TrimSpace(*src)
		if *dst != v {
			*dst = v
			changed = append(changed, name)
		}
	}
	set("firstName", &p.FirstName, u.FirstName)
	set("middleName", &p.MiddleName, u.MiddleName)
	set("lastName", &p.LastName, u.LastName)
	set("suffix", &p.Suffix, u.Suffix)
	set("phoneNumber", &p.PhoneNumber, u.PhoneNumber)
	set("houseNumber", &p.HouseNumber, u.HouseNumber)
	set("street", &p.Street, u.Street)
	set("streetNumber", &p.StreetNumber, u.StreetNumber)
	set("streetName", &p.StreetName, u.StreetName)
	set("barangay", &p.Barangay, u.Barangay)
	set("city", &p.City, u.City)
	set("province", &p.Province, u.Province)
	set("zipCode", &p.ZipCode, u.ZipCode)
	if u.DateOfBirth != nil {
		dob := u.DateOfBirth.UTC().Truncate(24 * time.Hour)
		if p.DateOfBirth == nil || !p.DateOfBirth.Equal(dob) {
			p.DateOfBirth = &dob
			changed = append(changed, "dateOfBirth")
		}
	}
	return changed
}

// IsEmpty reports whether no field is set.
func (u ProfileUpdate) IsEmpty() bool {
	return u == ProfileUpdate{}
}
