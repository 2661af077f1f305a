package moderation

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// ObfuscationType values reported in normalization metadata.
const (
	ObfuscationHomoglyph = "homoglyph"
	ObfuscationLeetspeak = "leetspeak"
	ObfuscationSeparator = "separator_insertion"
)

// NormMetadata records what the normalizer undid.
type NormMetadata struct {
	HasObfuscation        bool     `json:"has_obfuscation"`
	ObfuscationTypes      []string `json:"obfuscation_types"`
	HomoglyphReplacements []string `json:"homoglyph_replacements"`
	LeetspeakConversions  []string `json:"leetspeak_conversions"`
	SeparatorsRemoved     int      `json:"separators_removed"`
}

// Versions holds the three text versions the rule and model layers consume.
type Versions struct {
	Original        string
	FullyNormalized string
	NoDiacritics    string
	Metadata        NormMetadata
}

// zero-width and invisible joiner characters stripped outright.
var zeroWidth = map[rune]bool{
	'\u200b': true, '\u200c': true, '\u200d': true,
	'\u2060': true, '\ufeff': true, '\u00ad': true,
	'\u034f': true, '\u2063': true, '\u2064': true,
}

// invisible whitespace variants folded to a plain space.
func isInvisibleSpace(r rune) bool {
	if r == '\u00a0' || r == '\u202f' || r == '\u205f' || r == '\u3000' {
		return true
	}
	return r >= '\u2000' && r <= '\u200a'
}

// homoglyphs maps confusable Cyrillic, Greek and mathematical characters to
// their Latin lookalikes. Input is lowercased first, so only lowercase forms
// are listed. Fullwidth forms are handled by offset in foldHomoglyphs.
var homoglyphs = map[rune]string{
	// Cyrillic
	'а': "a", 'е': "e", 'і': "i", 'о': "o", 'р': "p", 'с': "c",
	'у': "y", 'х': "x", 'м': "m", 'н': "h", 'т': "t", 'к': "k", 'в': "b",
	'ь': "", 'ъ': "",
	// Greek
	'α': "a", 'β': "b", 'ε': "e", 'η': "n", 'ι': "i", 'κ': "k",
	'μ': "m", 'ν': "v", 'ο': "o", 'ρ': "p", 'τ': "t", 'υ': "u", 'χ': "x",
	// Mathematical and punctuation lookalikes
	'ℓ': "l", 'ⅰ': "i", 'ⅱ': "ii", '×': "x", '∂': "d",
	'∞': "oo", '∫': "f", '†': "t", '‡': "t",
}

// leetspeak maps digit and symbol substitutions back to letters. Applied
// unconditionally per character after homoglyph folding.
var leetspeak = map[rune]string{
	'0': "o", '1': "i", '2': "z", '3': "e", '4': "a",
	'5': "s", '6': "g", '7': "t", '8': "b", '9': "g",
	'@': "a", '$': "s", '!': "i", '|': "i", '+': "t",
	'(': "c", '[': "c", ')': "d", '{': "c", '}': "d",
	'<': "c", '>': "d", '^': "a", '#': "h", '%': "x",
	'~': "n", '`': "", '\\': "l", '/': "l",
}

// separatorChars may be inserted between letters to break word matching.
var separatorChars = map[rune]bool{
	'.': true, '-': true, '_': true, ' ': true, '*': true, '~': true,
	'^': true, '\'': true, '"': true, '`': true, '|': true, '/': true,
	'\\': true, '+': true, '=': true, '#': true, '@': true, ':': true,
	';': true, ',': true, '!': true, '?': true, '(': true, ')': true,
	'[': true, ']': true, '{': true, '}': true, '<': true, '>': true,
	'•': true, '·': true, '°': true, '◦': true, '○': true, '●': true,
}

// diacritics maps Vietnamese letters to their base form for the
// no-diacritics text version.
var diacritics = map[rune]rune{
	'à': 'a', 'á': 'a', 'ả': 'a', 'ã': 'a', 'ạ': 'a',
	'ă': 'a', 'ằ': 'a', 'ắ': 'a', 'ẳ': 'a', 'ẵ': 'a', 'ặ': 'a',
	'â': 'a', 'ầ': 'a', 'ấ': 'a', 'ẩ': 'a', 'ẫ': 'a', 'ậ': 'a',
	'è': 'e', 'é': 'e', 'ẻ': 'e', 'ẽ': 'e', 'ẹ': 'e',
	'ê': 'e', 'ề': 'e', 'ế': 'e', 'ể': 'e', 'ễ': 'e', 'ệ': 'e',
	'ì': 'i', 'í': 'i', 'ỉ': 'i', 'ĩ': 'i', 'ị': 'i',
	'ò': 'o', 'ó': 'o', 'ỏ': 'o', 'õ': 'o', 'ọ': 'o',
	'ô': 'o', 'ồ': 'o', 'ố': 'o', 'ổ': 'o', 'ỗ': 'o', 'ộ': 'o',
	'ơ': 'o', 'ờ': 'o', 'ớ': 'o', 'ở': 'o', 'ỡ': 'o', 'ợ': 'o',
	'ù': 'u', 'ú': 'u', 'ủ': 'u', 'ũ': 'u', 'ụ': 'u',
	'ư': 'u', 'ừ': 'u', 'ứ': 'u', 'ử': 'u', 'ữ': 'u', 'ự': 'u',
	'ỳ': 'y', 'ý': 'y', 'ỷ': 'y', 'ỹ': 'y', 'ỵ': 'y',
	'đ': 'd',
}

// Normalizer produces the canonical text versions consumed by the rule
// checker and the model. Normalization is idempotent: running it on its own
// output changes nothing and reports no obfuscation.
type Normalizer struct{}

// NewNormalizer returns a normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize runs the full pipeline and returns all text versions plus
// metadata about every transformation that fired.
func (n *Normalizer) Normalize(text string) Versions {
	meta := NormMetadata{
		ObfuscationTypes:      []string{},
		HomoglyphReplacements: []string{},
		LeetspeakConversions:  []string{},
	}

	s := norm.NFC.String(text)
	s = stripInvisible(s)
	s = strings.ToLower(s)
	s = foldHomoglyphs(s, &meta)
	s = foldLeetspeak(s, &meta)
	s = collapseRepeats(s)
	s = removeSeparators(s, &meta)
	s = strings.Join(strings.Fields(s), " ")

	if len(meta.HomoglyphReplacements) > 0 {
		meta.ObfuscationTypes = append(meta.ObfuscationTypes, ObfuscationHomoglyph)
	}
	if len(meta.LeetspeakConversions) > 0 {
		meta.ObfuscationTypes = append(meta.ObfuscationTypes, ObfuscationLeetspeak)
	}
	if meta.SeparatorsRemoved > 0 {
		meta.ObfuscationTypes = append(meta.ObfuscationTypes, ObfuscationSeparator)
	}
	meta.HasObfuscation = len(meta.ObfuscationTypes) > 0

	return Versions{
		Original:        text,
		FullyNormalized: s,
		NoDiacritics:    StripDiacritics(s),
		Metadata:        meta,
	}
}

// StripDiacritics folds Vietnamese diacritics to their base letters.
func StripDiacritics(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if base, ok := diacritics[r]; ok {
			b.WriteRune(base)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func stripInvisible(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case zeroWidth[r]:
		case isInvisibleSpace(r):
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func foldHomoglyphs(s string, meta *NormMetadata) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if repl, ok := homoglyphs[r]; ok {
			b.WriteString(repl)
			meta.HomoglyphReplacements = append(meta.HomoglyphReplacements,
				fmt.Sprintf("%c→%s", r, repl))
			continue
		}
		// Fullwidth ASCII block
		if r >= '！' && r <= '～' {
			folded := r - 0xFEE0
			b.WriteRune(folded)
			meta.HomoglyphReplacements = append(meta.HomoglyphReplacements,
				fmt.Sprintf("%c→%c", r, folded))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func foldLeetspeak(s string, meta *NormMetadata) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if repl, ok := leetspeak[r]; ok {
			b.WriteString(repl)
			meta.LeetspeakConversions = append(meta.LeetspeakConversions,
				fmt.Sprintf("%c→%s", r, repl))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// collapseRepeats reduces runs of 3+ identical characters to 2.
func collapseRepeats(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var prev, prev2 rune = -1, -1
	for _, r := range s {
		if r == prev && r == prev2 {
			continue
		}
		b.WriteRune(r)
		prev2, prev = prev, r
	}
	return b.String()
}

// removeSeparators undoes separator insertion in two passes: first joins
// runs of single letters split by whitespace ("d m" → "dm"), then strips
// separator characters sandwiched between letters inside short words
// ("n.g.u" → "ngu").
func removeSeparators(s string, meta *NormMetadata) string {
	s = joinSingleLetters(s, meta)

	words := strings.Fields(s)
	for i, w := range words {
		words[i] = stripWordSeparators(w, meta)
	}
	return strings.Join(words, " ")
}

func joinSingleLetters(s string, meta *NormMetadata) string {
	fields := strings.Fields(s)
	out := make([]string, 0, len(fields))
	i := 0
	for i < len(fields) {
		if !isSingleLetter(fields[i]) {
			out = append(out, fields[i])
			i++
			continue
		}
		j := i
		for j < len(fields) && isSingleLetter(fields[j]) {
			j++
		}
		if j-i >= 2 {
			out = append(out, strings.Join(fields[i:j], ""))
			meta.SeparatorsRemoved += j - i - 1
		} else {
			out = append(out, fields[i])
		}
		i = j
	}
	return strings.Join(out, " ")
}

func isSingleLetter(s string) bool {
	runes := []rune(s)
	return len(runes) == 1 && unicode.IsLetter(runes[0])
}

func stripWordSeparators(word string, meta *NormMetadata) string {
	runes := []rune(word)
	if len(runes) > 10 {
		return word
	}
	hasSep := false
	for _, r := range runes {
		if separatorChars[r] {
			hasSep = true
			break
		}
	}
	if !hasSep {
		return word
	}

	out := make([]rune, 0, len(runes))
	i := 0
	for i < len(runes) {
		if !separatorChars[runes[i]] {
			out = append(out, runes[i])
			i++
			continue
		}
		// Run of separator characters. Drop it only when flanked by
		// letters on both sides.
		j := i
		for j < len(runes) && separatorChars[runes[j]] {
			j++
		}
		if len(out) > 0 && unicode.IsLetter(out[len(out)-1]) &&
			j < len(runes) && unicode.IsLetter(runes[j]) {
			meta.SeparatorsRemoved += j - i
		} else {
			out = append(out, runes[i:j]...)
		}
		i = j
	}
	return string(out)
}
