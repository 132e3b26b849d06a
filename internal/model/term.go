package model

import "strings"

// Term is a taxonomy entry, e.g. a category or a tag.
type Term struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Vocabulary string `json:"vocabulary"`
}

// NewTerm creates a term with a trimmed name and a normalized vocabulary.
func NewTerm(name, vocabulary string) *Term {
	t := &Term{}
	t.SetName(name)
	t.SetVocabulary(vocabulary)
	return t
}

// SetName stores the trimmed name. Case is preserved.
func (t *Term) SetName(name string) {
	t.Name = strings.TrimSpace(name)
}

// SetVocabulary stores the trimmed, lowercased vocabulary.
func (t *Term) SetVocabulary(vocabulary string) {
	t.Vocabulary = strings.ToLower(strings.TrimSpace(vocabulary))
}

// Equal compares by (name, vocabulary). Terms missing either key only equal themselves.
func (t *Term) Equal(other *Term) bool {
	if t == other {
		return true
	}
	if t == nil || other == nil {
		return false
	}
	if t.Name == "" || t.Vocabulary == "" {
		return false
	}
	return t.Name == other.Name && t.Vocabulary == other.Vocabulary
}
