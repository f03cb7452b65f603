// Package description cleans and classifies free-text bank statement
// descriptions: PII masking, merchant token extraction and rule-based
// simplification into a short human-readable label.
package description

import (
	"regexp"
	"strings"
	"unicode"
)

// Placeholders written over masked substrings.
const (
	PlaceholderCard  = "CARD"
	PlaceholderIBAN  = "IBAN"
	PlaceholderPhone = "PHONE"
	PlaceholderAuth  = "AUTH"
	PlaceholderRef   = "REF"
)

// maskPass replaces every match of pattern with placeholder, except matches
// whose preceding text matches one of the guards. When fit is set it returns
// how much of a match to mask; zero leaves the match alone.
type maskPass struct {
	name        string
	pattern     *regexp.Regexp
	placeholder string
	guards      []*regexp.Regexp
	fit         func(match string) int
}

var (
	ibanLeadGuard = regexp.MustCompile(`(?i)\b[A-Z]{2}\d{2}(?:[ ]?[A-Z0-9]{4})*[ ]?$`)
	refLeadGuard  = regexp.MustCompile(`(?i)\bREF(?:ERENCIA|ERENCE)?\s*[:.#]?\s*$`)
	authLeadGuard = regexp.MustCompile(`(?i)\b(?:AUTHORIZATION|AUTORIZACI[OÓ]N|AUTH|AUT)\s*[:.#]?\s*$`)
)

// Card numbers hold 13 to 19 digits whatever their grouping.
const (
	minCardDigits = 13
	maxCardDigits = 19
)

// Minimum alphanumerics after the country code and check digits; the
// shortest IBANs in use have eleven.
const minIBANBody = 8

// The order matters: IBANs and references are guarded from the card pass so
// their own passes see them whole.
var sanitizePasses = []maskPass{
	{
		name:        "card_prefix",
		pattern:     regexp.MustCompile(`(?i)\b(?:TARJ(?:ETA)?|CARD)\b[\s:#.*]*[X*]*\d{2,}(?:[ -]\d{4})*`),
		placeholder: PlaceholderCard,
	},
	{
		name:        "card_stars",
		pattern:     regexp.MustCompile(`\*{2,}[\s*]*\d{2,}`),
		placeholder: PlaceholderCard,
	},
	{
		name: "card_number",
		pattern: regexp.MustCompile(
			`\b\d{4}(?:[ -]\d{4}){3}(?:[ -]?\d{1,3})?\b|\b\d{4}[ -]\d{6}[ -]\d{5}\b|\b\d{13,19}\b|\b\d{4}(?:[ -]\d{1,4}){2,4}\b`),
		placeholder: PlaceholderCard,
		guards:      []*regexp.Regexp{ibanLeadGuard, refLeadGuard, authLeadGuard},
		fit:         fitCardNumber,
	},
	{
		name:        "iban",
		pattern:     regexp.MustCompile(`(?i)\b[A-Z]{2}\d{2}(?:[ ]?[A-Z0-9]{4}){2,7}(?:[ ]?[A-Z0-9]{1,3})?\b`),
		placeholder: PlaceholderIBAN,
		fit:         fitIBAN,
	},
	{
		name:        "phone_international",
		pattern:     regexp.MustCompile(`\+\d{1,3}[ .-]?(?:\(\d{1,4}\)[ .-]?)?\d{2,4}(?:[ .-]?\d{2,4}){1,4}\b`),
		placeholder: PlaceholderPhone,
	},
	{
		name:        "phone_area_code",
		pattern:     regexp.MustCompile(`\(\d{3}\)[ .-]?\d{3}[ .-]?\d{4}\b`),
		placeholder: PlaceholderPhone,
	},
	{
		name:        "phone_us",
		pattern:     regexp.MustCompile(`\b\d{3}-\d{3}-\d{4}\b`),
		placeholder: PlaceholderPhone,
	},
	{
		name:        "auth_code",
		pattern:     regexp.MustCompile(`(?i)\b(?:AUTHORIZATION|AUTORIZACI[OÓ]N|AUTH|AUT)(?:\s*[:.#]\s*|\s+)[A-Z]*\d[A-Z0-9]*\b`),
		placeholder: PlaceholderAuth,
	},
	{
		name:        "ref_prefixed",
		pattern:     regexp.MustCompile(`(?i)\bREF(?:ERENCIA|ERENCE)?\b\s*[:.#]?\s*[A-Z0-9-]*\d[A-Z0-9-]*`),
		placeholder: PlaceholderRef,
	},
	{
		name:        "ref_long_number",
		pattern:     regexp.MustCompile(`\b\d{12,}\b`),
		placeholder: PlaceholderRef,
	},
}

// While the passes run, placeholders are held as private-use runes. They are
// neither letters nor digits, so no pattern can read them as a keyword or as
// part of a code.
var (
	sentinels = map[string]string{
		PlaceholderCard:  "\uE000",
		PlaceholderIBAN:  "\uE001",
		PlaceholderPhone: "\uE002",
		PlaceholderAuth:  "\uE003",
		PlaceholderRef:   "\uE004",
	}
	unshield = strings.NewReplacer(
		"\uE000", PlaceholderCard,
		"\uE001", PlaceholderIBAN,
		"\uE002", PlaceholderPhone,
		"\uE003", PlaceholderAuth,
		"\uE004", PlaceholderRef,
	)
	stripSentinels = strings.NewReplacer("\uE000", "", "\uE001", "", "\uE002", "", "\uE003", "", "\uE004", "")
	// A placeholder word already standing alone is output of an earlier
	// call, never a keyword leading into a code.
	standalonePlaceholder = regexp.MustCompile(`\b(?:CARD|IBAN|PHONE|AUTH|REF)(?:\s|$)`)
)

// SanitizeDescription masks card numbers, IBANs, phone numbers, authorization
// codes and long references with fixed placeholders and collapses whitespace.
// Brand names are never touched because every pattern needs digits.
// SanitizeDescription(SanitizeDescription(s)) == SanitizeDescription(s).
func SanitizeDescription(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	// Every pattern needs a digit and sentinels have none, so each round
	// that changes the text removes at least one digit.
	current := shieldPlaceholders(stripSentinels.Replace(text))
	for rounds := len(text) + 1; rounds > 0; rounds-- {
		next := sanitizeOnce(current)
		if next == current {
			break
		}
		current = next
	}
	return unshield.Replace(collapseSpaces(current))
}

func shieldPlaceholders(text string) string {
	return standalonePlaceholder.ReplaceAllStringFunc(text, func(m string) string {
		word := strings.TrimRightFunc(m, unicode.IsSpace)
		return sentinels[word] + m[len(word):]
	})
}

func sanitizeOnce(text string) string {
	for _, pass := range sanitizePasses {
		text = pass.apply(text)
	}
	return collapseSpaces(text)
}

func (p maskPass) apply(text string) string {
	mask := " " + sentinels[p.placeholder] + " "
	if len(p.guards) == 0 && p.fit == nil {
		return p.pattern.ReplaceAllLiteralString(text, mask)
	}

	matches := p.pattern.FindAllStringIndex(text, -1)
	if matches == nil {
		return text
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		if p.guarded(text[:m[0]]) {
			continue
		}
		end := m[1]
		if p.fit != nil {
			n := p.fit(text[m[0]:m[1]])
			if n == 0 {
				continue
			}
			end = m[0] + n
		}
		b.WriteString(text[last:m[0]])
		b.WriteString(mask)
		last = end
	}
	b.WriteString(text[last:])
	return b.String()
}

func (p maskPass) guarded(prefix string) bool {
	for _, g := range p.guards {
		if g.MatchString(prefix) {
			return true
		}
	}
	return false
}

func fitCardNumber(match string) int {
	n := countDigits(match)
	if n < minCardDigits || n > maxCardDigits {
		return 0
	}
	return len(match)
}

// fitIBAN drops trailing space-separated groups that cannot belong to a
// spaced account number: full groups have four characters, and only the last
// may be a shorter run of digits. What is left must have a digit after the
// check digits and be long enough to be an account.
func fitIBAN(match string) int {
	end := len(match)
	for {
		i := strings.LastIndexByte(match[:end], ' ')
		if i < 0 || ibanGroup(match[i+1:end]) {
			break
		}
		end = i
	}

	body := strings.ReplaceAll(match[4:end], " ", "")
	if len(body) < minIBANBody || countDigits(body) == 0 {
		return 0
	}
	return end
}

func ibanGroup(group string) bool {
	digits := countDigits(group)
	if len(group) == 4 {
		return digits > 0
	}
	return len(group) < 4 && digits == len(group)
}

func countDigits(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			n++
		}
	}
	return n
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
