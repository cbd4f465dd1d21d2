package extractor

import (
	"errors"
	"regexp"
)

// ErrNotRecognized is returned when no known reference shape matches.
var ErrNotRecognized = errors.New("reference not recognized")

// patterns are tried in priority order; the first match wins.
var patterns = []*regexp.Regexp{
	// long form: watch?v=<id>, or any /<id> path segment
	regexp.MustCompile(`(?:v=|/)([0-9A-Za-z_-]{11})`),
	// short form: youtu.be/<id>
	regexp.MustCompile(`youtu\.be/([0-9A-Za-z_-]{11})`),
}

// ExtractID pulls the 11 character item id out of a reference. Matching is
// case-sensitive and the input is not normalized.
func ExtractID(reference string) (string, error) {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(reference); m != nil {
			return m[1], nil
		}
	}
	return "", ErrNotRecognized
}
