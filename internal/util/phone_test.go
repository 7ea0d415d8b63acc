package util

import "testing"

func TestNormalizeAddress(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"(555) 010-9999", "+15550109999"},
		{"555-010-9999", "+15550109999"},
		{"15550109999", "+15550109999"},
		{"+15550109999", "+15550109999"},
		{"0044 20 7946 0000", "+442079460000"},
		{"  +1 555 010 9999  ", "+15550109999"},
	}
	for _, c := range cases {
		if got := NormalizeAddress(c.in); got != c.want {
			t.Errorf("NormalizeAddress(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestValidAddress(t *testing.T) {
	valid := []string{"+15550109999", "+442079460000", "+12345678"}
	for _, s := range valid {
		if !ValidAddress(s) {
			t.Errorf("ValidAddress(%q) = false, want true", s)
		}
	}

	invalid := []string{"", "15550109999", "+123", "+1234567890123456", "+1555abc9999"}
	for _, s := range invalid {
		if ValidAddress(s) {
			t.Errorf("ValidAddress(%q) = true, want false", s)
		}
	}
}

func TestFormatAddressGroups(t *testing.T) {
	if got := FormatAddressGroups("+15551234567"); got != "555-123-4567" {
		t.Fatalf("got %q", got)
	}
	// non-NANP addresses pass through unchanged
	if got := FormatAddressGroups("+442079460000"); got != "+442079460000" {
		t.Fatalf("got %q", got)
	}
}
