package util

import (
	"regexp"
	"strings"
)

var nonDialable = regexp.MustCompile(`[^\d\+]+`)

// NormalizeAddress normalizes user input into E.164-like wire format,
// assuming NANP numbers when no country code is present.
func NormalizeAddress(raw string) string {
	s := strings.TrimSpace(raw)
	s = nonDialable.ReplaceAllString(s, "")

	if strings.HasPrefix(s, "00") {
		s = "+" + s[2:]
	} else if strings.HasPrefix(s, "1") && len(s) == 11 {
		s = "+" + s
	} else if len(s) == 10 && !strings.HasPrefix(s, "+") {
		s = "+1" + s
	}

	return s
}

// ValidAddress reports whether a normalized address is dialable: a plus sign
// followed by 8 to 15 digits.
func ValidAddress(s string) bool {
	if !strings.HasPrefix(s, "+") {
		return false
	}
	digits := s[1:]
	if len(digits) < 8 || len(digits) > 15 {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FormatAddressGroups renders a +1 number as dash-grouped digits for message
// bodies ("555-123-4567"); other addresses come back unchanged.
func FormatAddressGroups(addr string) string {
	if !strings.HasPrefix(addr, "+1") || len(addr) != 12 {
		return addr
	}
	d := addr[2:]
	return d[0:3] + "-" + d[3:6] + "-" + d[6:]
}
