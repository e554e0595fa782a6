package discovery

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// MatchAll is the pattern that accepts every name
const MatchAll = "*"

// maxClassExpansion bounds how many members a mixed character class may
// expand to before it is rewritten as an alternation of classes.
const maxClassExpansion = 256

// Pattern is a compiled shell-glob pattern.
//
// Matching is case-sensitive. '*' matches any run of characters (including
// the empty run and '/'), '?' matches exactly one character, and '[...]'
// matches a character class ('[!...]' negates it). Inside a class a leading
// ']' and a leading or trailing '-' are members. A backslash escapes the
// next character. Braces and commas are ordinary characters. The empty
// pattern only matches the empty name.
type Pattern struct {
	raw  string
	glob glob.Glob
}

// CompilePattern parses a glob pattern
func CompilePattern(raw string) (*Pattern, error) {
	src, err := translatePattern(raw)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrPatternSyntax, raw, err)
	}
	g, err := glob.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrPatternSyntax, raw, err)
	}
	return &Pattern{raw: raw, glob: g}, nil
}

// Match reports whether name matches the pattern
func (p *Pattern) Match(name string) bool {
	return p.glob.Match(name)
}

// String returns the source pattern
func (p *Pattern) String() string {
	return p.raw
}

// classRange is an inclusive run of runes inside a character class
type classRange struct {
	lo, hi rune
}

func (r classRange) size() int {
	return int(r.hi-r.lo) + 1
}

// translatePattern rewrites a shell glob into gobwas syntax. gobwas treats
// '{', ',' and '}' as alternation and only accepts a class that is either a
// single range or a plain list, so literals are escaped and classes rebuilt.
func translatePattern(raw string) (string, error) {
	src := []rune(raw)
	var b strings.Builder
	for i := 0; i < len(src); i++ {
		switch r := src[i]; r {
		case '\\':
			if i+1 < len(src) {
				i++
				r = src[i]
			}
			writeEscaped(&b, r)
		case '*', '?':
			b.WriteRune(r)
		case '[':
			class, next, err := translateClass(src, i)
			if err != nil {
				return "", err
			}
			b.WriteString(class)
			i = next
		default:
			if strings.ContainsRune("{},]", r) {
				writeEscaped(&b, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	return b.String(), nil
}

// translateClass parses the class opening at src[start] and returns its
// gobwas form together with the index of the closing ']'.
func translateClass(src []rune, start int) (string, int, error) {
	i := start + 1
	negate := false
	if i < len(src) && src[i] == '!' {
		negate = true
		i++
	}

	var members []classRange
	for first := true; ; first = false {
		if i >= len(src) {
			return "", 0, fmt.Errorf("unterminated character class")
		}
		if src[i] == ']' && !first {
			break
		}

		lo := src[i]
		if lo == '\\' && i+1 < len(src) {
			i++
			lo = src[i]
		}
		hi := lo
		if i+2 < len(src) && src[i+1] == '-' && src[i+2] != ']' {
			i += 2
			hi = src[i]
			if hi == '\\' && i+1 < len(src) {
				i++
				hi = src[i]
			}
			if hi < lo {
				return "", 0, fmt.Errorf("reversed range %c-%c", lo, hi)
			}
		}
		members = append(members, classRange{lo: lo, hi: hi})
		i++
	}

	class, err := renderClass(members, negate)
	if err != nil {
		return "", 0, err
	}
	return class, i, nil
}

func renderClass(members []classRange, negate bool) (string, error) {
	// A single range stays a range unless its low end would read as negation.
	if len(members) == 1 && members[0].lo != members[0].hi && (negate || members[0].lo != '!') {
		return rangeClass(members[0], negate), nil
	}

	total := 0
	for _, m := range members {
		total += m.size()
	}
	if total <= maxClassExpansion {
		return listClass(members, negate), nil
	}
	if negate {
		return "", fmt.Errorf("negated character class is too large")
	}

	parts := make([]string, 0, len(members))
	for _, m := range members {
		switch {
		case m.lo == m.hi:
			parts = append(parts, listClass([]classRange{m}, false))
		case m.lo == '!':
			parts = append(parts, `\!`, rangeClass(classRange{lo: m.lo + 1, hi: m.hi}, false))
		default:
			parts = append(parts, rangeClass(m, false))
		}
	}
	return "{" + strings.Join(parts, ",") + "}", nil
}

func rangeClass(m classRange, negate bool) string {
	var b strings.Builder
	b.WriteByte('[')
	if negate {
		b.WriteByte('!')
	}
	b.WriteRune(m.lo)
	b.WriteByte('-')
	b.WriteRune(m.hi)
	b.WriteByte(']')
	return b.String()
}

// listClass spells every member out. A '-' member goes first and unescaped;
// an escaped '-' in first position would be read as the start of a range.
func listClass(members []classRange, negate bool) string {
	var b strings.Builder
	b.WriteByte('[')
	if negate {
		b.WriteByte('!')
	}

	dash := false
	for _, m := range members {
		if m.lo <= '-' && '-' <= m.hi {
			dash = true
		}
	}
	if dash {
		b.WriteByte('-')
	}
	for _, m := range members {
		for r := m.lo; r <= m.hi; r++ {
			if r != '-' {
				writeEscaped(&b, r)
			}
		}
	}
	b.WriteByte(']')
	return b.String()
}

func writeEscaped(b *strings.Builder, r rune) {
	b.WriteByte('\\')
	b.WriteRune(r)
}
