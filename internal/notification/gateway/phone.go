package gateway

import (
	"strings"
	"unicode"
)

func digitsOnly(phone string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)
}

// InternationalPH formats a Philippine mobile number as +63XXXXXXXXXX.
func InternationalPH(phone string) string {
	d := digitsOnly(phone)
	switch {
	case strings.HasPrefix(d, "0"):
		return "+63" + d[1:]
	case strings.HasPrefix(d, "63"):
		return "+" + d
	default:
		return "+63" + d
	}
}

// LocalPH formats a Philippine mobile number as 09XXXXXXXXX where the input
// allows it. Unrecognised shapes are returned as digits.
func LocalPH(phone string) string {
	d := digitsOnly(phone)
	switch {
	case strings.HasPrefix(d, "0") && len(d) == 11:
		return d
	case strings.HasPrefix(d, "63") && len(d) == 12:
		return "0" + d[2:]
	case len(d) == 10:
		return "0" + d
	default:
		return d
	}
}

// ValidPH reports whether phone is an 11 digit 09XXXXXXXXX mobile number
// after normalisation.
func ValidPH(phone string) bool {
	d := LocalPH(phone)
	return len(d) == 11 && strings.HasPrefix(d, "09")
}
