package reply

import (
	"strings"
	"testing"
	"time"
)

func TestClassifyIntents(t *testing.T) {
	cases := []struct {
		text string
		want Intent
	}{
		{"STOP", IntentStop},
		{"please remove me from your list", IntentStop},
		{"no mas mensajes", IntentStop},
		{"how much is it?", IntentPrice},
		{"what's the price", IntentPrice},
		{"cuanto cuesta", IntentPrice},
		{"who is this?", IntentIdentity},
		{"quien es", IntentIdentity},
		{"I already have coverage", IntentCovered},
		{"ya tengo seguro", IntentCovered},
		{"not interested thanks", IntentBrushOff},
		{"no gracias", IntentBrushOff},
		{"you have the wrong number", IntentWrongNumber},
		{"numero equivocado", IntentWrongNumber},
		{"let me ask my wife first", IntentSpouse},
		{"tomorrow at 3pm works", IntentTimeMention},
		{"call me at 10:30 am", IntentTimeMention},
		{"hello there", IntentGreeting},
		{"hola", IntentGreeting},
		{"ok sure whatever", IntentGeneral},
		{"", IntentGeneral},
	}
	for _, c := range cases {
		got, _ := Classify(c.text)
		if got != c.want {
			t.Errorf("Classify(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	// contains both a stop phrase and a price phrase: stop is first in rule
	// order so it must win
	got, _ := Classify("stop, how much does it cost anyway")
	if got != IntentStop {
		t.Fatalf("got %v, want %v", got, IntentStop)
	}

	// price outranks greeting
	got, _ = Classify("hello, how much is it")
	if got != IntentPrice {
		t.Fatalf("got %v, want %v", got, IntentPrice)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	text := "hello, how much is it, who is this"
	first, _ := Classify(text)
	for i := 0; i < 20; i++ {
		got, _ := Classify(text)
		if got != first {
			t.Fatalf("classification changed between runs: %v then %v", first, got)
		}
	}
}

func TestClassifyTimeFragment(t *testing.T) {
	_, frag := Classify("sure, tomorrow at 3pm")
	if frag != "3pm" {
		t.Fatalf("fragment = %q", frag)
	}

	_, frag = Classify("maybe 10:30 am?")
	if frag != "10:30 am" {
		t.Fatalf("fragment = %q", frag)
	}

	// phrase-only mention keeps the remainder so the echo reads naturally
	_, frag = Classify("call me this afternoon please")
	if !strings.Contains(frag, "this afternoon") {
		t.Fatalf("fragment = %q", frag)
	}
}

func TestDetectLanguage(t *testing.T) {
	spanish := []string{"hola, como esta", "¿cuánto cuesta?", "no hablo ingles", "mi esposa dice que si", "mañana"}
	for _, s := range spanish {
		if DetectLanguage(s) != LangSpanish {
			t.Errorf("DetectLanguage(%q) = en, want es", s)
		}
	}

	english := []string{"how much is it", "stop", "who is this", "", "tomorrow at 3pm"}
	for _, s := range english {
		if DetectLanguage(s) != LangEnglish {
			t.Errorf("DetectLanguage(%q) = es, want en", s)
		}
	}
}

func testGenerator() *Generator {
	return NewGenerator(OfferConfig{
		Timezone:    "UTC",
		OpenHour:    9,
		CloseHour:   17,
		SlotHours:   []int{9, 13, 16},
		BookingLink: "https://example.com/book",
	})
}

func TestSlotsAreTomorrowWithinWindow(t *testing.T) {
	gen := testGenerator()
	now := time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC)

	slots := gen.Slots(now)
	if len(slots) != 3 {
		t.Fatalf("got %d slots", len(slots))
	}
	for _, s := range slots {
		if s.Day() != 11 || s.Month() != time.March {
			t.Errorf("slot %v is not tomorrow", s)
		}
		if s.Hour() < 9 || s.Hour() >= 17 {
			t.Errorf("slot %v outside office window", s)
		}
	}
}

func TestSlotsClampedIntoWindow(t *testing.T) {
	gen := NewGenerator(OfferConfig{
		Timezone:  "UTC",
		OpenHour:  10,
		CloseHour: 15,
		SlotHours: []int{7, 12, 22},
	})
	slots := gen.Slots(time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC))

	if slots[0].Hour() != 10 {
		t.Errorf("early slot should clamp to open hour, got %d", slots[0].Hour())
	}
	if slots[2].Hour() != 14 {
		t.Errorf("late slot should clamp below close hour, got %d", slots[2].Hour())
	}
}

func TestOfferSentenceBilingual(t *testing.T) {
	gen := testGenerator()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	en := gen.OfferSentence(now, LangEnglish)
	if !strings.Contains(en, "9:00 AM") || !strings.Contains(en, "1:00 PM") || !strings.Contains(en, "4:00 PM") {
		t.Fatalf("english offer missing slots: %q", en)
	}
	if !strings.Contains(en, "tomorrow") {
		t.Fatalf("english offer: %q", en)
	}

	es := gen.OfferSentence(now, LangSpanish)
	if !strings.Contains(es, "mañana") {
		t.Fatalf("spanish offer: %q", es)
	}
}

func TestOfferSentenceShortSlotLists(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	two := NewGenerator(OfferConfig{Timezone: "UTC", OpenHour: 8, CloseHour: 18, SlotHours: []int{9, 13}})
	en := two.OfferSentence(now, LangEnglish)
	if !strings.Contains(en, "9:00 AM or 1:00 PM") {
		t.Fatalf("two-slot offer: %q", en)
	}
	es := two.OfferSentence(now, LangSpanish)
	if !strings.Contains(es, "9:00 AM o 1:00 PM") {
		t.Fatalf("two-slot spanish offer: %q", es)
	}

	one := NewGenerator(OfferConfig{Timezone: "UTC", OpenHour: 8, CloseHour: 18, SlotHours: []int{11}})
	en = one.OfferSentence(now, LangEnglish)
	if !strings.Contains(en, "11:00 AM work for you?") {
		t.Fatalf("one-slot offer: %q", en)
	}
}

func TestConfirmationEchoesTimeAndLink(t *testing.T) {
	gen := testGenerator()

	got := gen.Confirmation("tomorrow at 3pm", LangEnglish)
	if !strings.Contains(got, "tomorrow at 3pm") {
		t.Fatalf("confirmation should echo the time: %q", got)
	}
	if !strings.Contains(got, "https://example.com/book") {
		t.Fatalf("confirmation should carry the booking link: %q", got)
	}
}

func TestResponderBuild(t *testing.T) {
	r := NewResponder(testGenerator())

	intent, body := r.Build("how much is it?")
	if intent != IntentPrice {
		t.Fatalf("intent = %v", intent)
	}
	if !strings.Contains(body, "Would tomorrow at") {
		t.Fatalf("price reply should offer slots: %q", body)
	}

	intent, body = r.Build("STOP")
	if intent != IntentStop {
		t.Fatalf("intent = %v", intent)
	}
	if strings.Contains(body, "Would tomorrow at") {
		t.Fatalf("stop reply must not offer slots: %q", body)
	}

	intent, body = r.Build("tomorrow at 3pm works for me")
	if intent != IntentTimeMention {
		t.Fatalf("intent = %v", intent)
	}
	if !strings.Contains(body, "3pm") {
		t.Fatalf("time reply should confirm the mentioned time: %q", body)
	}

	// Spanish in, Spanish out
	_, body = r.Build("cuanto cuesta?")
	if !strings.Contains(body, "mañana") {
		t.Fatalf("spanish reply expected: %q", body)
	}
}
