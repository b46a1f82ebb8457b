package parse

import (
	"regexp"
	"strconv"
	"strings"
)

// placeholders are the index markers accepted in a rule's naming pattern.
var placeholders = []string{"{n}", "{i}"}

// Sequence summarizes the existing port names that follow one naming scheme.
type Sequence struct {
	Count    int
	MaxIndex int
}

// Next returns the index the next generated port takes. Gaps below MaxIndex
// are never reused.
func (s Sequence) Next() int {
	return s.MaxIndex + 1
}

// Scheme renders and recognizes the names of one numbered port family.
type Scheme struct {
	re     *regexp.Regexp
	prefix string
	suffix string
}

// PrefixScheme names ports "{code}{n}", e.g. "GE0/0/1".
func PrefixScheme(code string) Scheme {
	return Scheme{
		re:     regexp.MustCompile(`^` + regexp.QuoteMeta(code) + `(\d+)$`),
		prefix: code,
	}
}

// NumericScheme names ports "1", "2", ... It is shared by every rule of a
// template whose code is empty.
func NumericScheme() Scheme {
	return PrefixScheme("")
}

// PatternScheme builds a scheme from a naming pattern such as "Slot{n}/Port".
// It reports false when the pattern has no index placeholder.
func PatternScheme(pattern string) (Scheme, bool) {
	for _, ph := range placeholders {
		i := strings.Index(pattern, ph)
		if i < 0 {
			continue
		}
		prefix, suffix := pattern[:i], pattern[i+len(ph):]
		return Scheme{
			re:     regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `(\d+)` + regexp.QuoteMeta(suffix) + `$`),
			prefix: prefix,
			suffix: suffix,
		}, true
	}
	return Scheme{}, false
}

// HasPlaceholder reports whether pattern contains an index placeholder.
func HasPlaceholder(pattern string) bool {
	_, ok := PatternScheme(pattern)
	return ok
}

// Name renders the port name for index n.
func (s Scheme) Name(n int) string {
	return s.prefix + strconv.Itoa(n) + s.suffix
}

// Index extracts the numeric index from name, if name belongs to the scheme.
func (s Scheme) Index(name string) (int, bool) {
	m := s.re.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Scan counts the names belonging to the scheme and finds the highest index.
func (s Scheme) Scan(names []string) Sequence {
	var seq Sequence
	for _, name := range names {
		n, ok := s.Index(name)
		if !ok {
			continue
		}
		seq.Count++
		if n > seq.MaxIndex {
			seq.MaxIndex = n
		}
	}
	return seq
}

// NaturalLess orders names so that digit runs compare numerically:
// "GE0/0/2" < "GE0/0/10".
func NaturalLess(a, b string) bool {
	return NaturalCompare(a, b) < 0
}

// NaturalCompare returns -1, 0 or +1 comparing a and b in natural order.
// Text runs compare case-insensitively.
func NaturalCompare(a, b string) int {
	for a != "" && b != "" {
		ca, ra := nextChunk(a)
		cb, rb := nextChunk(b)

		var c int
		if isDigit(ca[0]) && isDigit(cb[0]) {
			c = compareDigits(ca, cb)
		} else {
			c = strings.Compare(strings.ToLower(ca), strings.ToLower(cb))
		}
		if c != 0 {
			return c
		}
		a, b = ra, rb
	}

	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return -1
	default:
		return 1
	}
}

// nextChunk splits off the leading run of digits or non-digits.
func nextChunk(s string) (chunk, rest string) {
	digit := isDigit(s[0])
	i := 1
	for i < len(s) && isDigit(s[i]) == digit {
		i++
	}
	return s[:i], s[i:]
}

// compareDigits compares two digit runs by value without overflowing.
// Equal values with more leading zeros sort later.
func compareDigits(a, b string) int {
	ta := strings.TrimLeft(a, "0")
	tb := strings.TrimLeft(b, "0")
	if len(ta) != len(tb) {
		if len(ta) < len(tb) {
			return -1
		}
		return 1
	}
	if c := strings.Compare(ta, tb); c != 0 {
		return c
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
