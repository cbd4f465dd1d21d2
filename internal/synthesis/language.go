package synthesis

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// supported are the languages offered for synthesis output.
var supported = []language.Tag{
	language.English,
	language.Spanish,
	language.French,
	language.German,
	language.Italian,
	language.Portuguese,
	language.Dutch,
	language.Russian,
	language.Turkish,
	language.Arabic,
	language.Hindi,
	language.Indonesian,
	language.Vietnamese,
	language.Japanese,
	language.Korean,
	language.Polish,
	language.Chinese,
}

var matcher = language.NewMatcher(supported)

// NormalizeLanguage accepts a BCP 47 tag ("pt-BR") or an English language
// name ("Portuguese") and returns the English name of the closest supported
// language.
func NormalizeLanguage(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return display.English.Languages().Name(language.English), nil
	}

	names := display.English.Languages()
	for _, tag := range supported {
		if strings.EqualFold(names.Name(tag), s) {
			return names.Name(tag), nil
		}
	}

	tag, err := language.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: unknown language %q", ErrInvalidRequest, s)
	}
	// Match falls back to the first supported tag with low confidence
	// instead of reporting no match.
	_, idx, conf := matcher.Match(tag)
	if conf < language.High {
		return "", fmt.Errorf("%w: unsupported language %q", ErrInvalidRequest, s)
	}
	return names.Name(supported[idx]), nil
}
