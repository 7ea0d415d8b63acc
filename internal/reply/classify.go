package reply

import (
	"regexp"
	"strings"
)

// Intent tags produced by the classifier.
type Intent string

const (
	IntentStop        Intent = "stop_request"
	IntentPrice       Intent = "price_question"
	IntentIdentity    Intent = "identity_question"
	IntentCovered     Intent = "already_covered"
	IntentBrushOff    Intent = "brush_off"
	IntentWrongNumber Intent = "wrong_number"
	IntentSpouse      Intent = "spousal_mention"
	IntentTimeMention Intent = "explicit_time"
	IntentGreeting    Intent = "greeting"
	IntentGeneral     Intent = "general"
)

type rule struct {
	intent   Intent
	phrases  []string
	patterns []*regexp.Regexp
}

var timePattern = regexp.MustCompile(`\b\d{1,2}(:\d{2})?\s*(am|pm|a\.m\.|p\.m\.)\b`)

// Rule order is significant: the first match wins, not the longest. Keep
// stop-requests first so nothing else can shadow an opt-out.
var rules = []rule{
	{intent: IntentStop, phrases: []string{"stop", "unsubscribe", "opt out", "optout", "remove me", "quit", "no mas"}},
	{intent: IntentPrice, phrases: []string{"how much", "price", "cost", "rate", "expensive", "cuanto cuesta", "cuánto cuesta", "precio"}},
	{intent: IntentIdentity, phrases: []string{"who is this", "who's this", "who are you", "quien es", "quién es", "what company"}},
	{intent: IntentCovered, phrases: []string{"already have", "i'm covered", "im covered", "already got", "all set", "ya tengo"}},
	{intent: IntentBrushOff, phrases: []string{"not interested", "no thanks", "no thank you", "leave me alone", "busy right now", "no gracias"}},
	{intent: IntentWrongNumber, phrases: []string{"wrong number", "wrong person", "don't know you", "dont know you", "numero equivocado", "número equivocado"}},
	{intent: IntentSpouse, phrases: []string{"my wife", "my husband", "my spouse", "ask my wife", "ask my husband", "mi esposa", "mi esposo"}},
	{intent: IntentTimeMention,
		phrases:  []string{"tomorrow at", "today at", "tonight at", "this afternoon", "this morning", "this evening", "noon"},
		patterns: []*regexp.Regexp{timePattern}},
	{intent: IntentGreeting, phrases: []string{"hello", "hey", "hi ", "good morning", "good afternoon", "good evening", "hola", "buenos dias", "buenos días", "buenas tardes"}},
}

// Classify maps an inbound text to an intent. Deterministic: the same text
// always yields the same tag. The returned fragment is the matched substring
// (the mentioned time for IntentTimeMention), used to echo the caller's words
// back.
func Classify(text string) (Intent, string) {
	t := " " + strings.ToLower(strings.TrimSpace(text)) + " "

	for _, r := range rules {
		for _, p := range r.patterns {
			if m := p.FindString(t); m != "" {
				return r.intent, strings.TrimSpace(m)
			}
		}
		for _, phrase := range r.phrases {
			if idx := strings.Index(t, phrase); idx >= 0 {
				frag := strings.TrimSpace(phrase)
				if r.intent == IntentTimeMention {
					// keep the remainder too: "tomorrow at 3" echoes whole
					frag = strings.TrimSpace(t[idx:])
				}
				return r.intent, frag
			}
		}
	}
	return IntentGeneral, ""
}
