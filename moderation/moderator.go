// Package moderation masks blacklisted words in message text before it is
// persisted or delivered.
package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// Moderator matches a normalized view of the text against an Aho-Corasick
// automaton built from the blacklists, then masks the matched spans in the
// original text, spacing and punctuation preserved.
type Moderator struct {
	machine  *goahocorasick.Machine
	maskRune rune
}

// mapping ties each normalized rune back to its index in the original text,
// so a match found after noise removal can be masked in place.
type mapping struct {
	normalized []rune
	originIdx  []int
}

func NewModerator(words []string, maskRune rune) (*Moderator, error) {
	patterns := make([][]rune, 0, len(words))
	for _, word := range words {
		if normalized := normalize([]rune(word)); len(normalized) > 0 {
			patterns = append(patterns, normalized)
		}
	}

	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{machine: machine, maskRune: maskRune}, nil
}

// Censor returns the masked text and whether anything was masked.
func (m *Moderator) Censor(text string) (string, bool) {
	mapped := buildMapping(text)
	if len(mapped.normalized) == 0 {
		return text, false
	}

	matches := m.machine.MultiPatternSearch(mapped.normalized, false)
	if len(matches) == 0 {
		return text, false
	}

	masked := []rune(text)
	for _, match := range matches {
		start := match.Pos
		end := start + len(match.Word)
		if start < 0 || end > len(mapped.originIdx) {
			continue
		}
		from := mapped.originIdx[start]
		to := mapped.originIdx[end-1] + 1
		for i := from; i < to; i++ {
			masked[i] = m.maskRune
		}
	}
	return string(masked), true
}

func buildMapping(text string) mapping {
	origin := []rune(text)
	result := mapping{
		normalized: make([]rune, 0, len(origin)),
		originIdx:  make([]int, 0, len(origin)),
	}
	for i, r := range origin {
		plain := unleet(r)
		if isNoise(plain) {
			continue
		}
		result.normalized = append(result.normalized, unicode.ToLower(plain))
		result.originIdx = append(result.originIdx, i)
	}
	return result
}

func normalize(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		plain := unleet(r)
		if isNoise(plain) {
			continue
		}
		out = append(out, unicode.ToLower(plain))
	}
	return out
}

// unleet maps common leet-speak substitutions back to plain letters so
// "sh1t" and "shit" hit the same pattern.
func unleet(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
