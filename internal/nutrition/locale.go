package nutrition

import (
	"golang.org/x/text/language"
)

var (
	supported = []language.Tag{language.Spanish, language.English}
	matcher   = language.NewMatcher(supported)
)

type messages struct {
	unnamed   string
	csvHeader []string
}

var catalog = map[language.Tag]messages{
	language.Spanish: {
		unnamed:   "Producto sin nombre",
		csvHeader: []string{"Hora", "Alimento", "Marca", "Gramos", "Porciones", "kcal"},
	},
	language.English: {
		unnamed:   "Unnamed product",
		csvHeader: []string{"Time", "Food", "Brand", "Grams", "Servings", "kcal"},
	},
}

// MatchLocale resolves a locale string ("es", "en-US", "es-AR", ...) to a
// supported language. Unknown or empty input falls back to Spanish.
func MatchLocale(locale string) language.Tag {
	tag, err := language.Parse(locale)
	if err != nil {
		return language.Spanish
	}
	_, idx, _ := matcher.Match(tag)
	return supported[idx]
}

func messagesFor(tag language.Tag) messages {
	_, idx, _ := matcher.Match(tag)
	return catalog[supported[idx]]
}

// UnnamedProduct is the name given to products that arrive without one.
func UnnamedProduct(tag language.Tag) string {
	return messagesFor(tag).unnamed
}
