// Package email derives display names from addresses for accounts that have
// no profile name yet.
package email

import (
	"strings"
	"unicode"
)

// DisplayName joins first and last when either is set. Otherwise it derives a
// name from address.
func DisplayName(address, first, last string) string {
	name := strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
	if name != "" {
		return name
	}
	if strings.TrimSpace(address) == "" {
		return ""
	}
	f, l := DeriveName(address)
	if l == "" {
		return f
	}
	return f + " " + l
}

// DeriveName splits the local part of address on . _ - + and capitalises
// the first and last segments. "juan.dela-cruz@example.com" yields
// ("Juan", "Cruz").
func DeriveName(address string) (string, string) {
	local := address
	if at := strings.IndexByte(address, '@'); at >= 0 {
		local = address[:at]
	}

	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(parts) == 0 {
		return "Resident", ""
	}
	first := capitalize(parts[0])
	if len(parts) == 1 {
		return first, ""
	}
	return first, capitalize(parts[len(parts)-1])
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
