// Package moderation provides the profanity predicate applied to outgoing
// chat messages, backed by an Aho-Corasick multi-pattern matcher.
package moderation

import (
	"strings"

	goahocorasick "github.com/anknown/ahocorasick"
)

// Moderator screens message text against a banned-word list. Matching is
// case-insensitive and substring-based, so compound words are caught too.
type Moderator struct {
	matcher *goahocorasick.Machine
}

// NewModerator builds the automaton from the banned-word list. Words are
// lowercased and blank entries dropped; an empty list yields a moderator
// that flags nothing.
func NewModerator(bannedWords []string) (*Moderator, error) {
	patterns := make([][]rune, 0, len(bannedWords))
	for _, word := range bannedWords {
		word = strings.ToLower(strings.TrimSpace(word))
		if word != "" {
			patterns = append(patterns, []rune(word))
		}
	}

	if len(patterns) == 0 {
		return &Moderator{}, nil
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{matcher: m}, nil
}

// IsProfane reports whether the text contains any banned word. The search
// stops at the first hit.
func (m *Moderator) IsProfane(text string) bool {
	if m.matcher == nil {
		return false
	}
	hits := m.matcher.MultiPatternSearch([]rune(strings.ToLower(text)), true)
	return len(hits) > 0
}
