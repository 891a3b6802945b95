package model

import (
	"strings"
	"unicode/utf8"
)

// EntryID identifies a dictionary entry. IDs are assigned by the entry store
// and are only meaningful within it.
type EntryID int64

// Entry is a single dictionary headword with its definition.
type Entry struct {
	ID               EntryID `json:"id"`
	Word             string  `json:"word"`
	WordKey          string  `json:"word_key"`
	Pronunciation    string  `json:"pronunciation,omitempty"`
	Definition       string  `json:"definition"`
	DefinitionLength int     `json:"definition_length"`
}

// NormalizeKey returns the case-insensitive join key for a word.
func NormalizeKey(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

// NewEntry builds an entry with its derived fields filled in.
func NewEntry(word, definition, pronunciation string) *Entry {
	e := &Entry{
		Word:          strings.TrimSpace(word),
		Pronunciation: strings.TrimSpace(pronunciation),
		Definition:    definition,
	}
	e.Normalize()
	return e
}

// Normalize recomputes WordKey and DefinitionLength from Word and Definition.
func (e *Entry) Normalize() {
	e.WordKey = NormalizeKey(e.Word)
	e.DefinitionLength = utf8.RuneCountInString(e.Definition)
}

// Edge is a directed reference: the definition of Source mentions Target.
type Edge struct {
	Source EntryID `json:"source_id"`
	Target EntryID `json:"target_id"`
}

// Link is an edge expressed by word keys, used in exports and wire payloads.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
}
