package description

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/garyjia/spendlens/internal/domain/entity"
)

//go:embed default_rules.yaml
var defaultRulesYAML []byte

var defaultClassifier = mustDefaultClassifier()

// Input is a description prepared for rule matching. Folded holds the
// accent-free upper-case tokens joined by single spaces.
type Input struct {
	Raw    string
	Folded string
	tokens []inputToken
}

type inputToken struct {
	raw        string
	folded     string
	start, end int
}

// NewInput tokenizes text and builds its folded form.
func NewInput(text string) *Input {
	in := &Input{Raw: text}
	var b strings.Builder
	for _, part := range splitTokens(text) {
		folded := foldUpper(part)
		if folded == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		start := b.Len()
		b.WriteString(folded)
		in.tokens = append(in.tokens, inputToken{raw: part, folded: folded, start: start, end: b.Len()})
	}
	in.Folded = b.String()
	return in
}

func (in *Input) tokensFrom(offset int) []inputToken {
	for i, tok := range in.tokens {
		if tok.start >= offset {
			return in.tokens[i:]
		}
	}
	return nil
}

func (in *Input) tokensBefore(offset int) []inputToken {
	for i, tok := range in.tokens {
		if tok.end > offset {
			return in.tokens[:i]
		}
	}
	return in.tokens
}

// foldUpper strips diacritics and upper-cases s. Transformers carry state,
// so a fresh chain is built on every call.
func foldUpper(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToUpper(strings.TrimSpace(folded))
}

// nameFilter picks a person's first name out of the tokens around a
// transfer keyword.
type nameFilter struct {
	skip map[string]struct{}
}

func newNameFilter(honorifics, stopwords []string) *nameFilter {
	f := &nameFilter{skip: make(map[string]struct{}, len(honorifics)+len(stopwords)+5)}
	for _, w := range append(append([]string{}, honorifics...), stopwords...) {
		f.skip[foldUpper(w)] = struct{}{}
	}
	for _, p := range []string{PlaceholderCard, PlaceholderIBAN, PlaceholderPhone, PlaceholderAuth, PlaceholderRef} {
		f.skip[p] = struct{}{}
	}
	return f
}

func (f *nameFilter) firstName(tokens []inputToken) string {
	for _, tok := range tokens {
		if _, ok := f.skip[tok.folded]; ok {
			continue
		}
		if utf8.RuneCountInString(tok.raw) < 2 || strings.ContainsFunc(tok.raw, func(r rune) bool { return !unicode.IsLetter(r) }) {
			continue
		}
		return cases.Title(language.Spanish).String(tok.raw)
	}
	return ""
}

// Classifier evaluates an ordered rule list, first match wins.
type Classifier struct {
	rules []Rule
}

// NewClassifier compiles a rule set.
func NewClassifier(set *RuleSet) (*Classifier, error) {
	if set == nil {
		return nil, fmt.Errorf("rule set is nil")
	}
	rules, err := set.compile()
	if err != nil {
		return nil, fmt.Errorf("failed to compile rule set: %w", err)
	}
	return &Classifier{rules: rules}, nil
}

// LoadClassifier builds a classifier from a YAML rule file.
func LoadClassifier(path string) (*Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	set, err := ParseRuleSet(data)
	if err != nil {
		return nil, err
	}
	return NewClassifier(set)
}

// DefaultClassifier returns the classifier built from the embedded rules.
func DefaultClassifier() *Classifier {
	return defaultClassifier
}

func mustDefaultClassifier() *Classifier {
	set, err := ParseRuleSet(defaultRulesYAML)
	if err != nil {
		panic(err)
	}
	c, err := NewClassifier(set)
	if err != nil {
		panic(err)
	}
	return c
}

// Rules returns the compiled rules in evaluation order.
func (c *Classifier) Rules() []Rule {
	return append([]Rule(nil), c.rules...)
}

// Simplify classifies text. Merchants are checked before operations and
// operations before transfers. It never panics; any failure yields the
// empty result.
func (c *Classifier) Simplify(text string) (result entity.ClassificationResult) {
	defer func() {
		if r := recover(); r != nil {
			result = entity.NoMatch()
		}
	}()

	if strings.TrimSpace(text) == "" {
		return entity.NoMatch()
	}
	in := NewInput(text)
	if in.Folded == "" {
		return entity.NoMatch()
	}

	for _, rule := range c.rules {
		if res, ok := rule.Match(in); ok && res.Matched() {
			return res
		}
	}
	return entity.NoMatch()
}

// RuleSimplifyDescription classifies text with the built-in rule table.
func RuleSimplifyDescription(text string) entity.ClassificationResult {
	return defaultClassifier.Simplify(text)
}
