package reply

import "time"

// Responder turns a classified inbound text into the outbound reply body.
type Responder struct {
	gen *Generator
	now func() time.Time
}

func NewResponder(gen *Generator) *Responder {
	return &Responder{gen: gen, now: time.Now}
}

type bilingual struct {
	en string
	es string
}

func (b bilingual) pick(lang Language) string {
	if lang == LangSpanish && b.es != "" {
		return b.es
	}
	return b.en
}

var responses = map[Intent]bilingual{
	IntentStop: {
		en: "You're all set - you won't hear from us again.",
		es: "Listo - no volverá a recibir mensajes nuestros.",
	},
	IntentPrice: {
		en: "Good question - pricing depends on a few details, so it's quickest to go over it on a short call.",
		es: "Buena pregunta - el precio depende de algunos detalles, lo más rápido es verlo en una llamada corta.",
	},
	IntentIdentity: {
		en: "It's the scheduling desk here - you asked us to follow up about your request.",
		es: "Le escribe la oficina de citas - nos pidió seguimiento sobre su solicitud.",
	},
	IntentCovered: {
		en: "Glad you're covered! A quick second look often still saves people money.",
		es: "¡Qué bueno que ya tiene cobertura! Una segunda revisión rápida muchas veces ahorra dinero.",
	},
	IntentBrushOff: {
		en: "No problem - it only takes a few minutes whenever you're free.",
		es: "No hay problema - solo toma unos minutos cuando tenga tiempo.",
	},
	IntentWrongNumber: {
		en: "Apologies for the mix-up - we'll update our records.",
		es: "Disculpe la confusión - actualizaremos nuestros registros.",
	},
	IntentSpouse: {
		en: "Of course - feel free to loop them in, it's a quick conversation for both of you.",
		es: "Claro - puede incluirle, es una conversación corta para los dos.",
	},
	IntentGreeting: {
		en: "Hi there! Thanks for getting back to us.",
		es: "¡Hola! Gracias por responder.",
	},
	IntentGeneral: {
		en: "Thanks for the reply! A quick call is the easiest way to sort out the details.",
		es: "¡Gracias por responder! Una llamada corta es la forma más fácil de ver los detalles.",
	},
}

// offerIntents get the three-slot appointment offer appended.
var offerIntents = map[Intent]bool{
	IntentPrice:    true,
	IntentCovered:  true,
	IntentBrushOff: true,
	IntentGreeting: true,
	IntentGeneral:  true,
	IntentSpouse:   true,
	IntentIdentity: true,
}

// Build classifies the inbound text and composes the localized reply body.
// The returned intent lets the caller react (a stop request also
// unsubscribes).
func (r *Responder) Build(text string) (Intent, string) {
	intent, fragment := Classify(text)
	lang := DetectLanguage(text)

	if intent == IntentTimeMention {
		return intent, r.gen.Confirmation(fragment, lang)
	}

	body := responses[intent].pick(lang)
	if offerIntents[intent] {
		body += " " + r.gen.OfferSentence(r.now(), lang)
	}
	return intent, body
}
