package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func completeProfile() *Profile {
	dob := time.Date(1990, 5, 14, 0, 0, 0, 0, time.UTC)
	return &Profile{
		FirstName:    "Juan",
		LastName:     "Dela Cruz",
		DateOfBirth:  &dob,
		StreetNumber: "12",
		StreetName:   "Mabini St",
	}
}

func TestIsComplete(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Profile)
		want   bool
	}{
		{"all fields present", func(*Profile) {}, true},
		{"missing first name", func(p *Profile) { p.FirstName = "" }, false},
		{"whitespace last name", func(p *Profile) { p.LastName = "   " }, false},
		{"null birth date", func(p *Profile) { p.DateOfBirth = nil }, false},
		{"legacy house number only", func(p *Profile) { p.StreetNumber = ""; p.HouseNumber = "7" }, true},
		{"legacy street only", func(p *Profile) { p.StreetName = ""; p.Street = "Rizal Ave" }, true},
		{"legacy pair only", func(p *Profile) {
			p.StreetNumber, p.StreetName = "", ""
			p.HouseNumber, p.Street = "7", "Rizal Ave"
		}, true},
		{"no street number in either pair", func(p *Profile) { p.StreetNumber = " " }, false},
		{"no street name in either pair", func(p *Profile) { p.StreetName = "" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := completeProfile()
			tt.mutate(p)
			assert.Equal(t, tt.want, IsComplete(p))
		})
	}

	t.Run("nil profile", func(t *testing.T) {
		assert.False(t, IsComplete(nil))
	})
}

func TestMissingFields(t *testing.T) {
	p := &Profile{FirstName: "Ana"}
	assert.Equal(t,
		[]string{FieldLastName, FieldDateOfBirth, FieldStreetNumber, FieldStreetName},
		MissingFields(p))
	assert.Empty(t, MissingFields(completeProfile()))
}

func TestAddressPairPreference(t *testing.T) {
	p := &Profile{HouseNumber: "1", Street: "Old St", StreetNumber: "22", StreetName: "New St"}
	assert.Equal(t, "22", p.StreetNumberValue())
	assert.Equal(t, "New St", p.StreetNameValue())
}

func TestProfileUpdateApply(t *testing.T) {
	p := completeProfile()
	newDOB := time.Date(1991, 1, 2, 15, 0, 0, 0, time.UTC)

	changed := ProfileUpdate{
		FirstName:   ptr("  Juana "),
		LastName:    ptr("Dela Cruz"),
		DateOfBirth: &newDOB,
	}.Apply(p)

	assert.Equal(t, []string{"firstName", "dateOfBirth"}, changed)
	assert.Equal(t, "Juana", p.FirstName)
	assert.Equal(t, time.Date(1991, 1, 2, 0, 0, 0, 0, time.UTC), *p.DateOfBirth)
	assert.True(t, ProfileUpdate{}.IsEmpty())
	assert.False(t, ProfileUpdate{City: ptr("x")}.IsEmpty())
}
