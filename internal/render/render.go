package render

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/alizand/leadwire/internal/util"
)

// Options controls content softening applied to every outbound body.
type Options struct {
	OptOutSuffix string
	MaxLen       int // rune clamp; 0 disables
}

// Render substitutes {key} placeholders from the variable map. Unknown
// placeholders are left as-is.
func Render(template string, vars map[string]string) string {
	out := template
	for k, v := range vars {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return strings.TrimSpace(out)
}

var bareNumber = regexp.MustCompile(`\+1\d{10}`)

// Soften applies the outbound content policy: raw phone numbers are rewritten
// as dash-grouped digits, the opt-out suffix is appended at most once, and the
// result is clamped to MaxLen runes.
func Soften(body string, opts Options) string {
	s := strings.TrimSpace(body)
	if s == "" {
		return ""
	}

	s = bareNumber.ReplaceAllStringFunc(s, util.FormatAddressGroups)

	if suffix := strings.TrimSpace(opts.OptOutSuffix); suffix != "" {
		if !strings.Contains(strings.ToLower(s), strings.ToLower(suffix)) {
			s = s + " " + suffix
		}
	}

	if opts.MaxLen > 0 && utf8.RuneCountInString(s) > opts.MaxLen {
		runes := []rune(s)
		s = string(runes[:opts.MaxLen])
	}

	return s
}
