package reply

import "strings"

type Language string

const (
	LangEnglish Language = "en"
	LangSpanish Language = "es"
)

var spanishMarkers = []string{
	"hola", "gracias", "buenos dias", "buenos días", "buenas tardes",
	"cuanto", "cuánto", "precio", "por favor", "no hablo ingles",
	"no hablo inglés", "quien es", "quién es", "español", "espanol",
	"esposa", "esposo", "equivocado", "llamar", "mañana",
}

// DetectLanguage guesses whether the text is in the secondary supported
// language (Spanish): either an accented character or a Spanish keyword marks
// it.
func DetectLanguage(text string) Language {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return LangEnglish
	}

	for _, r := range t {
		switch r {
		case 'á', 'é', 'í', 'ó', 'ú', 'ñ', 'ü', '¿', '¡':
			return LangSpanish
		}
	}
	for _, kw := range spanishMarkers {
		if strings.Contains(t, kw) {
			return LangSpanish
		}
	}
	return LangEnglish
}
