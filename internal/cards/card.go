package cards

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// WordType is the grammatical category of a card.
type WordType string

const (
	TypeNoun        WordType = "noun"
	TypeVerb        WordType = "verb"
	TypeAdjective   WordType = "adjective"
	TypeAdverb      WordType = "adverb"
	TypePronoun     WordType = "pronoun"
	TypePreposition WordType = "preposition"
	TypeConjunction WordType = "conjunction"
	TypePhrase      WordType = "phrase"
	TypeOther       WordType = "other"

	// TypeAny matches every word type in queries.
	TypeAny WordType = "any"
)

// AllWordTypes returns all concrete word types in display order.
func AllWordTypes() []WordType {
	return []WordType{
		TypeNoun,
		TypeVerb,
		TypeAdjective,
		TypeAdverb,
		TypePronoun,
		TypePreposition,
		TypeConjunction,
		TypePhrase,
		TypeOther,
	}
}

// ParseWordType converts a name into a WordType. The empty string and "any"
// both parse to TypeAny.
func ParseWordType(name string) (WordType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == string(TypeAny) {
		return TypeAny, nil
	}
	for _, t := range AllWordTypes() {
		if string(t) == name {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown word type %q", name)
}

// DisplayName returns a human-readable name for a word type.
func (t WordType) DisplayName() string {
	switch t {
	case TypeNoun:
		return "Nouns"
	case TypeVerb:
		return "Verbs"
	case TypeAdjective:
		return "Adjectives"
	case TypeAdverb:
		return "Adverbs"
	case TypePronoun:
		return "Pronouns"
	case TypePreposition:
		return "Prepositions"
	case TypeConjunction:
		return "Conjunctions"
	case TypePhrase:
		return "Phrases"
	case TypeAny:
		return "All"
	default:
		return "Other"
	}
}

// Card is a single flashcard. Content is never mutated by the study engine.
type Card struct {
	Type    WordType `yaml:"type" validate:"required"`
	Russian string   `yaml:"russian" validate:"required"`
	English string   `yaml:"english" validate:"required"`
	Tags    []string `yaml:"tags,omitempty"`
}

// Key is the stable identity of a card: word type plus normalized text pair.
type Key struct {
	Type    WordType
	Russian string
	English string
}

// Key returns the card's identity.
func (c Card) Key() Key {
	return NewKey(c.Type, c.Russian, c.English)
}

// NewKey builds a normalized identity key.
func NewKey(t WordType, russian, english string) Key {
	return Key{
		Type:    t,
		Russian: Normalize(russian),
		English: Normalize(english),
	}
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s/%s", k.Type, k.Russian, k.English)
}

const combiningAcute = '\u0301'

// Normalize lowercases text, strips stress marks and collapses whitespace so
// that "Молоко́" and "молоко" share an identity.
func Normalize(s string) string {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.Predicate(func(r rune) bool { return r == combiningAcute })),
		norm.NFC,
	)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(out)
	return strings.Join(strings.FieldsFunc(out, unicode.IsSpace), " ")
}
