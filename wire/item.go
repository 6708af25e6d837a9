// Package wire implements the length-prefixed, self-describing tuple
// protocol used for bidirectional command/response exchange: items
// (numbers, byte-strings, words, lists), tuples built from a format
// string, and the buffered Conn that parses/serializes them over an
// arbitrary byte stream.
package wire

import "fmt"

// Kind identifies the wire representation of an Item.
type Kind byte

const (
	INVALID Kind = iota
	NUMBER
	STRING
	WORD
	LIST
)

//go:generate go run github.com/dmarkham/enumer -type=Kind

func (k Kind) String() string {
	switch k {
	case NUMBER:
		return "number"
	case STRING:
		return "string"
	case WORD:
		return "word"
	case LIST:
		return "list"
	default:
		return "invalid"
	}
}

// Item is a single self-describing wire value: a number, a length-prefixed
// byte string, a bare word, or an ordered list of items. A single struct
// with a Kind discriminant (rather than an interface per kind) keeps Items
// cheap to allocate from an Arena and cheap to pass by value, matching how
// the rest of this stack favors a tagged struct over a type hierarchy.
type Item struct {
	Kind Kind
	num  uint64
	str  []byte
	list []Item
}

// Num returns the numeric value. Valid only if Kind == NUMBER.
func (it Item) Num() uint64 { return it.num }

// Str returns the raw byte payload. Valid only if Kind == STRING.
// The returned slice is owned by the Arena the Item was allocated from
// and must not be retained past the Arena's next Reset.
func (it Item) Str() []byte { return it.str }

// Word returns the word text. Valid only if Kind == WORD.
func (it Item) Word() string { return string(it.str) }

// List returns the ordered sub-items. Valid only if Kind == LIST.
func (it Item) List() []Item { return it.list }

// Len returns the number of sub-items. Valid only if Kind == LIST.
func (it Item) Len() int { return len(it.list) }

// IsZero reports whether it is the zero value (no item was ever set).
func (it Item) IsZero() bool { return it.Kind == INVALID }

// Equal reports whether it and other have the same kind and value,
// recursively for lists. Used by the round-trip tests.
func (it Item) Equal(other Item) bool {
	if it.Kind != other.Kind {
		return false
	}
	switch it.Kind {
	case NUMBER:
		return it.num == other.num
	case STRING:
		return string(it.str) == string(other.str)
	case WORD:
		return string(it.str) == string(other.str)
	case LIST:
		if len(it.list) != len(other.list) {
			return false
		}
		for i := range it.list {
			if !it.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func (it Item) String() string {
	switch it.Kind {
	case NUMBER:
		return fmt.Sprintf("%d", it.num)
	case STRING:
		return fmt.Sprintf("%d:%s", len(it.str), it.str)
	case WORD:
		return string(it.str)
	case LIST:
		return fmt.Sprintf("(%v)", it.list)
	default:
		return "<invalid>"
	}
}

// isDigit reports whether b is an ASCII decimal digit.
func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// isAlpha reports whether b may start a word.
func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// isWordTail reports whether b may continue a word (alnum or hyphen).
func isWordTail(b byte) bool {
	return isAlpha(b) || isDigit(b) || b == '-'
}

// isWS reports whether b is wire whitespace (space or newline).
func isWS(b byte) bool { return b == ' ' || b == '\n' }
