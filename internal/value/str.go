package value

import "unicode"

// Str is a shared, immutable, UTF-8 string with an optional sub-slice
// view into a shared backing buffer (§3.1), so SubSlice doesn't need to
// reallocate; PopFront/PopBack build a new Str. Display and high-level iteration walk grapheme
// clusters; pop_front/pop_back walk individual chars (runes), per spec.
type Str struct {
	data       string // shared backing buffer, always valid UTF-8
	start, end int     // byte bounds into data
}

func NewStr(s string) *Str {
	return &Str{data: s, start: 0, end: len(s)}
}

func (s *Str) String() string { return s.data[s.start:s.end] }

func (s *Str) ByteLen() int { return s.end - s.start }

// SubSlice returns a new Str sharing the same backing buffer, bounded to
// [start,end) byte offsets relative to this Str's own view.
func (s *Str) SubSlice(start, end int) *Str {
	return &Str{data: s.data, start: s.start + start, end: s.start + end}
}

// Runes returns the chars (runes) in the string, used by pop_front/
// pop_back and char-indexed operations.
func (s *Str) Runes() []rune { return []rune(s.String()) }

// Graphemes splits the string into user-perceived grapheme clusters for
// display and default iteration. No grapheme-segmentation library is
// present in the reference corpus, so this approximates clusters by
// grouping each base rune with any immediately following Unicode
// combining marks (category M) — see DESIGN.md.
func (s *Str) Graphemes() []string {
	runes := s.Runes()
	var out []string
	i := 0
	for i < len(runes) {
		j := i + 1
		for j < len(runes) && unicode.Is(unicode.M, runes[j]) {
			j++
		}
		out = append(out, string(runes[i:j]))
		i = j
	}
	return out
}

func (s *Str) GraphemeCount() int { return len(s.Graphemes()) }
func (s *Str) RuneCount() int     { return len(s.Runes()) }

func (s *Str) PopFront() (rune, *Str, bool) {
	runes := s.Runes()
	if len(runes) == 0 {
		return 0, s, false
	}
	rest := string(runes[1:])
	return runes[0], NewStr(rest), true
}

func (s *Str) PopBack() (rune, *Str, bool) {
	runes := s.Runes()
	if len(runes) == 0 {
		return 0, s, false
	}
	rest := string(runes[:len(runes)-1])
	return runes[len(runes)-1], NewStr(rest), true
}

// Concat allocates a new Str by joining two strings, used by the `+`
// built-in fallback for Str+Str (§4.4.5).
func Concat(a, b *Str) *Str {
	return NewStr(a.String() + b.String())
}
