package learningassistant

import (
	"fmt"
	"sort"
	"strings"
)

// Letter labels an answer option by its display position.
type Letter string

// alphabet is the complete set of option labels. Questions with more
// options than letters cannot be labelled.
var alphabet = [...]Letter{
	"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L", "M",
	"N", "O", "P", "Q", "R", "S", "T", "U", "V", "W", "X", "Y", "Z",
}

// MaxOptions is the largest number of answers a question may have.
const MaxOptions = len(alphabet)

// LetterAt returns the label for the option at index i.
func LetterAt(i int) (Letter, error) {
	if i < 0 {
		return "", fmt.Errorf("%w: negative option index %d", ErrUnknownLetter, i)
	}
	if i >= len(alphabet) {
		return "", fmt.Errorf("%w: option index %d", ErrTooManyOptions, i)
	}
	return alphabet[i], nil
}

// Index returns the option index l labels, or -1 if l is not a label.
func (l Letter) Index() int {
	for i, a := range alphabet {
		if a == l {
			return i
		}
	}
	return -1
}

// Selection is a set of letters kept sorted and free of duplicates.
type Selection []Letter

// NewSelection normalizes letters into a Selection. Letters are trimmed and
// upper-cased; blanks and duplicates are dropped.
func NewSelection(letters ...Letter) Selection {
	seen := make(map[Letter]struct{}, len(letters))
	sel := make(Selection, 0, len(letters))
	for _, l := range letters {
		l = Letter(strings.ToUpper(strings.TrimSpace(string(l))))
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		sel = append(sel, l)
	}
	sort.Slice(sel, func(i, j int) bool { return sel[i] < sel[j] })
	return sel
}

// SelectionFromStrings is NewSelection for plain strings, as decoded from JSON.
func SelectionFromStrings(values []string) Selection {
	letters := make([]Letter, len(values))
	for i, v := range values {
		letters[i] = Letter(v)
	}
	return NewSelection(letters...)
}

// ParseSelection reads a comma or space separated list such as "A, c".
func ParseSelection(s string) (Selection, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == ';'
	})
	letters := make([]Letter, 0, len(fields))
	for _, f := range fields {
		l := Letter(strings.ToUpper(f))
		if l.Index() < 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLetter, f)
		}
		letters = append(letters, l)
	}
	return NewSelection(letters...), nil
}

// Contains reports whether l is part of the selection.
func (s Selection) Contains(l Letter) bool {
	for _, x := range s {
		if x == l {
			return true
		}
	}
	return false
}

// Equal reports set equality. Both sides must be normalized.
func (s Selection) Equal(o Selection) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

func (s Selection) String() string {
	parts := make([]string, len(s))
	for i, l := range s {
		parts[i] = string(l)
	}
	return strings.Join(parts, ", ")
}
