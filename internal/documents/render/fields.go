package render

import (
	"strconv"
	"strings"
	"time"

	citizen "barangay/internal/citizen/models"
	"barangay/internal/documents/models"
)

// Jurisdiction printed on every certificate.
const (
	BarangayName = "Bagong Barrio"
	CityName     = "Caloocan City"
)

const (
	longDate    = "January 2, 2006"
	numericDate = "1/2/2006"
)

// FieldsFor builds the placeholder values for a certificate from the
// citizen's current profile. Missing values are empty strings so that a
// template referencing them still fills.
func FieldsFor(p *citizen.Profile, r *models.Request, now time.Time) map[string]string {
	first := strings.TrimSpace(p.FirstName)
	last := strings.TrimSpace(p.LastName)
	number := p.StreetNumberValue()
	street := p.StreetNameValue()

	birth := ""
	if p.DateOfBirth != nil {
		birth = p.DateOfBirth.UTC().Format(longDate)
	}

	return map[string]string{
		"full_name":       first + " " + last,
		"first_name":      first,
		"middle_name":     strings.TrimSpace(p.MiddleName),
		"last_name":       last,
		"suffix":          strings.TrimSpace(p.Suffix),
		"birth_date":      birth,
		"street_address":  number + " " + street,
		"street_number":   number,
		"street_name":     street,
		"barangay_name":   BarangayName,
		"city_name":       CityName,
		"full_address":    number + " " + street + ", " + BarangayName + ", " + CityName,
		"request_purpose": r.Purpose,
		"document_type":   r.Type.DisplayName(),
		"date_issued":     now.Format(longDate),
		"current_year":    strconv.Itoa(now.Year()),
		"current_date":    now.Format(numericDate),
	}
}
