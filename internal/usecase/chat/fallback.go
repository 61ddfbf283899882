package chat

// fallbackMessages are the localized "no relevant information" answers
// returned when retrieval finds nothing useful.
var fallbackMessages = map[string]string{
	"en": "No relevant information found. Please try rephrasing your question.",
	"es": "No se encontró información relevante. Por favor, intenta reformular tu pregunta.",
	"fr": "Aucune information pertinente trouvée. Veuillez reformuler votre question.",
}

// fallbackMessage returns the fallback for a language code. Unknown codes
// get the default language's message; this path never fails.
func fallbackMessage(language, defaultLanguage string) string {
	if msg, ok := fallbackMessages[language]; ok {
		return msg
	}
	if msg, ok := fallbackMessages[defaultLanguage]; ok {
		return msg
	}
	return fallbackMessages["en"]
}
