package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name    string
		address string
		first   string
		last    string
		want    string
	}{
		{"profile name wins", "x@example.com", "Ana", "Lopez", "Ana Lopez"},
		{"only first", "x@example.com", " Ana ", "", "Ana"},
		{"dotted address", "juan.dela-cruz@example.com", "", "", "Juan Cruz"},
		{"single segment", "admin@example.com", "", "", "Admin"},
		{"no local part", "@example.com", "", "", "Resident"},
		{"empty", "", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayName(tt.address, tt.first, tt.last))
		})
	}
}
