package reply

import (
	"fmt"
	"strings"
	"time"
)

// OfferConfig controls appointment slot generation. Passed at construction so
// tenants and tests can run with isolated settings instead of process-wide
// state.
type OfferConfig struct {
	Timezone    string
	OpenHour    int   // office window start, local hour
	CloseHour   int   // office window end, local hour (exclusive)
	SlotHours   []int // candidate hours of day; clamped into the window
	BookingLink string
}

type Generator struct {
	cfg OfferConfig
	loc *time.Location
}

func NewGenerator(cfg OfferConfig) *Generator {
	if cfg.OpenHour <= 0 {
		cfg.OpenHour = 8
	}
	if cfg.CloseHour <= cfg.OpenHour {
		cfg.CloseHour = cfg.OpenHour + 10
	}
	if len(cfg.SlotHours) == 0 {
		cfg.SlotHours = []int{9, 13, 16}
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		loc = time.UTC
	}
	return &Generator{cfg: cfg, loc: loc}
}

// Slots computes the three candidate appointment times for tomorrow, clamped
// into the office window.
func (g *Generator) Slots(now time.Time) []time.Time {
	local := now.In(g.loc)
	tomorrow := local.AddDate(0, 0, 1)

	slots := make([]time.Time, 0, len(g.cfg.SlotHours))
	for _, h := range g.cfg.SlotHours {
		if h < g.cfg.OpenHour {
			h = g.cfg.OpenHour
		}
		if h >= g.cfg.CloseHour {
			h = g.cfg.CloseHour - 1
		}
		slots = append(slots,
			time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), h, 0, 0, 0, g.loc))
	}
	return slots
}

// FormatSlot renders a local clock time the way a human would text it.
func FormatSlot(t time.Time) string {
	s := t.Format("3:04 PM")
	return s
}

// OfferSentence composes the slot offer from however many candidate hours are
// configured.
func (g *Generator) OfferSentence(now time.Time, lang Language) string {
	slots := g.Slots(now)
	parts := make([]string, len(slots))
	for i, s := range slots {
		parts[i] = FormatSlot(s)
	}

	if lang == LangSpanish {
		return fmt.Sprintf("¿Le funciona mañana a las %s?", joinChoices(parts, lang))
	}
	return fmt.Sprintf("Would tomorrow at %s work for you?", joinChoices(parts, lang))
}

// joinChoices renders a spoken-style list: "a", "a or b", "a, b, or c".
// Spanish drops the comma before the conjunction.
func joinChoices(parts []string, lang Language) string {
	conj := "or"
	last := ", " + conj + " "
	if lang == LangSpanish {
		conj = "o"
		last = " " + conj + " "
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	case 2:
		return parts[0] + " " + conj + " " + parts[1]
	}
	return strings.Join(parts[:len(parts)-1], ", ") + last + parts[len(parts)-1]
}

// Confirmation echoes an explicitly mentioned time back as a confirmation,
// with the scheduling link appended when configured.
func (g *Generator) Confirmation(mentioned string, lang Language) string {
	mentioned = strings.TrimSpace(mentioned)
	var s string
	if lang == LangSpanish {
		s = fmt.Sprintf("Perfecto, %s nos funciona. Quedamos así.", mentioned)
	} else {
		s = fmt.Sprintf("Sounds good, %s works on our end. Consider it penciled in.", mentioned)
	}
	if g.cfg.BookingLink != "" {
		s += " " + confirmLinkLead(lang) + " " + g.cfg.BookingLink
	}
	return s
}

func confirmLinkLead(lang Language) string {
	if lang == LangSpanish {
		return "Confirme aquí:"
	}
	return "Confirm here:"
}
