// Package dictionary implements the Phonetic Dictionary (SPEC_FULL.md §4.5):
// fuzzy, phonetic-key-based replacement of mis-transcribed words against a
// user-supplied list of canonical terms.
//
// Grounded on the functional-options Matcher shape of
// MrWong99-glyphoxa/internal/transcript/phonetic/phonetic.go, and on its
// corrector.go's sliding n-gram window precedence logic, but the fuzzy
// matching primitive itself is github.com/antzucaro/matchr's Levenshtein
// (SPEC_FULL.md §4.5 mandates bounded edit distance, not metaphone codes).
package dictionary

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// term is a (canonical_text, phonetic_key) pair (§3 PhoneticTerm).
type term struct {
	canonical string
	key       string
	words     int
}

// Option configures a Dictionary at construction time.
type Option func(*Dictionary)

// WithFuzzyMatching enables or disables the bounded-Levenshtein fallback
// (disabled by default when DICTIONARY_RULES_PATH is absent, per §6/§4.5).
func WithFuzzyMatching(enabled bool) Option {
	return func(d *Dictionary) { d.fuzzyEnabled = enabled }
}

// WithMaxAbsoluteDistance overrides the absolute Levenshtein distance cap
// (default 2, per §4.5).
func WithMaxAbsoluteDistance(n int) Option {
	return func(d *Dictionary) { d.maxAbsDistance = n }
}

// WithMaxRelativeDivisor overrides the divisor in ceil(len/divisor) used as
// the relative Levenshtein distance cap (default 5, per §4.5).
func WithMaxRelativeDivisor(n int) Option {
	return func(d *Dictionary) { d.maxRelDivisor = n }
}

// Dictionary holds the canonical-term index built at construction time and
// is immutable (and therefore freely shareable) thereafter, per §3/§5.
type Dictionary struct {
	byKey        map[string]term
	maxWords     int
	fuzzyEnabled bool

	maxAbsDistance int
	maxRelDivisor  int
}

// New builds a Dictionary from a list of canonical terms supplied at
// startup (the DICTIONARY environment variable, §6). An empty list yields
// the identity function (§4.5 Failure: "none").
func New(canonicalTerms []string, opts ...Option) *Dictionary {
	d := &Dictionary{
		byKey:          make(map[string]term),
		maxAbsDistance: 2,
		maxRelDivisor:  5,
	}
	for _, opt := range opts {
		opt(d)
	}

	for _, text := range canonicalTerms {
		key := phoneticKey(text)
		if key == "" {
			continue
		}
		words := len(strings.Fields(text))
		if words < 1 {
			words = 1
		}
		// Last one registered wins on collision (§4.5 step 1, deterministic
		// by insertion order).
		d.byKey[key] = term{canonical: text, key: key, words: words}
		if words > d.maxWords {
			d.maxWords = words
		}
	}

	return d
}

// phoneticKey computes the Unicode-normalized, lowercase, accent-stripped,
// whitespace-free canonical form of s (§3 PhoneticTerm, §4.5 step 1).
func phoneticKey(s string) string {
	stripped, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		s,
	)
	if err != nil {
		stripped = s
	}

	var b strings.Builder
	for _, r := range strings.ToLower(stripped) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// wordSpanPattern splits text into alternating word / delimiter runs,
// preserving delimiters exactly as found (§4.5 step 2-3).
var wordSpanPattern = regexp.MustCompile(`[\p{L}\p{N}']+|[^\p{L}\p{N}']+`)

type span struct {
	text     string
	isWord   bool
	original string
}

func tokenize(text string) []span {
	matches := wordSpanPattern.FindAllString(text, -1)
	spans := make([]span, 0, len(matches))
	for _, m := range matches {
		isWord := unicode.IsLetter([]rune(m)[0]) || unicode.IsDigit([]rune(m)[0])
		spans = append(spans, span{text: m, isWord: isWord, original: m})
	}
	return spans
}

// Correct replaces any mis-transcribed word or short span whose phonetic
// form matches a canonical term, preserving surrounding delimiters and
// whitespace (§4.5). An empty dictionary returns text unchanged.
func (d *Dictionary) Correct(text string) string {
	if len(d.byKey) == 0 {
		return text
	}

	spans := tokenize(text)
	wordIdx := make([]int, 0, len(spans)) // indices into spans that are words

	for i, s := range spans {
		if s.isWord {
			wordIdx = append(wordIdx, i)
		}
	}

	// replaced[i] holds the canonical text to substitute at spans[i] (the
	// first word of a match), and consumed[i] marks every span, words and
	// the delimiters between them, already covered by a longer match.
	replaced := make(map[int]string)
	consumed := make(map[int]bool)

	maxK := d.maxWords
	if maxK < 1 {
		maxK = 1
	}

	for k := maxK; k >= 1; k-- {
		for start := 0; start+k <= len(wordIdx); start++ {
			indices := wordIdx[start : start+k]
			if anyConsumed(indices, consumed) {
				continue
			}

			words := make([]string, k)
			for i, wi := range indices {
				words[i] = spans[wi].text
			}
			joined := strings.Join(words, " ")
			key := phoneticKey(joined)
			if key == "" {
				continue
			}

			canonical, ok := d.lookup(key)
			if !ok {
				continue
			}

			replaced[indices[0]] = canonical
			for si := indices[0]; si <= indices[k-1]; si++ {
				consumed[si] = true
			}
		}
	}

	var b strings.Builder

	// Rebuild output walking spans in order; the span that starts a
	// replacement emits the canonical text once, the remaining words of a
	// multi-word match and the delimiters between them emit nothing, and
	// delimiters outside any match are preserved as found.
	for i, s := range spans {
		if canonical, ok := replaced[i]; ok {
			b.WriteString(canonical)
			continue
		}
		if consumed[i] {
			continue
		}
		b.WriteString(s.text)
	}

	return b.String()
}

func anyConsumed(indices []int, consumed map[int]bool) bool {
	for _, i := range indices {
		if consumed[i] {
			return true
		}
	}
	return false
}

// lookup finds a canonical term for key, trying an exact match first and
// falling back to bounded Levenshtein distance when fuzzy matching is
// enabled (§4.5 step 2).
func (d *Dictionary) lookup(key string) (string, bool) {
	if t, ok := d.byKey[key]; ok {
		return t.canonical, true
	}
	if !d.fuzzyEnabled {
		return "", false
	}
	return d.fuzzyLookup(key)
}
