package description

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/garyjia/spendlens/internal/domain/entity"
)

// Confidence tiers applied when a rule table entry leaves them unset.
const (
	DefaultMerchantConfidence      = 0.95
	DefaultOperationConfidence     = 0.8
	DefaultTransferNamedConfidence = 0.85
	DefaultTransferBareConfidence  = 0.8
)

// Rule is one entry of the ordered classification table.
type Rule interface {
	Kind() string
	Match(in *Input) (entity.ClassificationResult, bool)
}

// MerchantRule maps a brand pattern to a merchant label.
type MerchantRule struct {
	Key        string
	Label      string
	Pattern    *regexp.Regexp
	Confidence float64
}

// Kind implements Rule.
func (r *MerchantRule) Kind() string { return "merchant" }

// Match implements Rule.
func (r *MerchantRule) Match(in *Input) (entity.ClassificationResult, bool) {
	if !r.Pattern.MatchString(in.Folded) {
		return entity.NoMatch(), false
	}
	return entity.ClassificationResult{
		Simplified:  r.Label,
		Confidence:  r.Confidence,
		TypeHint:    entity.TypeHintMerchant,
		MatchedRule: "merchant:" + r.Key,
	}, true
}

// OperationRule maps bank operation keywords (fees, ATM, payroll, refunds)
// to a generic label.
type OperationRule struct {
	Type       entity.TypeHint
	Label      string
	Pattern    *regexp.Regexp
	Confidence float64
}

// Kind implements Rule.
func (r *OperationRule) Kind() string { return "operation" }

// Match implements Rule.
func (r *OperationRule) Match(in *Input) (entity.ClassificationResult, bool) {
	if !r.Pattern.MatchString(in.Folded) {
		return entity.NoMatch(), false
	}
	return entity.ClassificationResult{
		Simplified:  r.Label,
		Confidence:  r.Confidence,
		TypeHint:    r.Type,
		MatchedRule: string(r.Type),
	}, true
}

// TransferRule detects a transfer and appends the recipient's first name to
// the label when one can be found.
type TransferRule struct {
	Provider        string
	Label           string
	Pattern         *regexp.Regexp
	NamedConfidence float64
	BareConfidence  float64
	names           *nameFilter
}

// Kind implements Rule.
func (r *TransferRule) Kind() string { return "transfer" }

// Match implements Rule.
func (r *TransferRule) Match(in *Input) (entity.ClassificationResult, bool) {
	loc := r.Pattern.FindStringIndex(in.Folded)
	if loc == nil {
		return entity.NoMatch(), false
	}

	matched := "transfer"
	if r.Provider != "" {
		matched += ":" + r.Provider
	}
	result := entity.ClassificationResult{
		Simplified:  r.Label,
		Confidence:  r.BareConfidence,
		TypeHint:    entity.TypeHintTransfer,
		MatchedRule: matched,
	}

	// Names usually follow the keyword; fall back to what precedes it.
	name := r.names.firstName(in.tokensFrom(loc[1]))
	if name == "" {
		name = r.names.firstName(in.tokensBefore(loc[0]))
	}
	if name != "" {
		result.Simplified = r.Label + " " + name
		result.Confidence = r.NamedConfidence
	}
	return result, true
}

// RuleSet is the YAML schema of a rule table.
type RuleSet struct {
	Merchants     []MerchantSpec  `yaml:"merchants"`
	Operations    []OperationSpec `yaml:"operations"`
	Transfers     []TransferSpec  `yaml:"transfers"`
	Honorifics    []string        `yaml:"honorifics"`
	NameStopwords []string        `yaml:"name_stopwords"`
}

// MerchantSpec describes a merchant rule. Keywords are matched as whole
// words; Pattern is a raw regular expression used instead when set.
type MerchantSpec struct {
	Key        string   `yaml:"key"`
	Label      string   `yaml:"label"`
	Keywords   []string `yaml:"keywords"`
	Pattern    string   `yaml:"pattern"`
	Confidence float64  `yaml:"confidence"`
}

// OperationSpec describes an operation rule.
type OperationSpec struct {
	Type       string   `yaml:"type"`
	Label      string   `yaml:"label"`
	Keywords   []string `yaml:"keywords"`
	Confidence float64  `yaml:"confidence"`
}

// TransferSpec describes a transfer rule. An empty Provider means a generic
// bank transfer.
type TransferSpec struct {
	Provider        string   `yaml:"provider"`
	Label           string   `yaml:"label"`
	Keywords        []string `yaml:"keywords"`
	NamedConfidence float64  `yaml:"named_confidence"`
	BareConfidence  float64  `yaml:"bare_confidence"`
}

// ParseRuleSet decodes a YAML rule table.
func ParseRuleSet(data []byte) (*RuleSet, error) {
	var set RuleSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse rule set: %w", err)
	}
	return &set, nil
}

// compile validates the table and builds the ordered rule list:
// merchants first, then operations, then transfers.
func (s *RuleSet) compile() ([]Rule, error) {
	names := newNameFilter(s.Honorifics, s.NameStopwords)
	rules := make([]Rule, 0, len(s.Merchants)+len(s.Operations)+len(s.Transfers))

	for i, m := range s.Merchants {
		if m.Key == "" || m.Label == "" {
			return nil, fmt.Errorf("merchant rule %d: key and label are required", i)
		}
		pattern, err := compileRulePattern(m.Pattern, m.Keywords)
		if err != nil {
			return nil, fmt.Errorf("merchant rule %q: %w", m.Key, err)
		}
		conf := orDefault(m.Confidence, DefaultMerchantConfidence)
		if conf < 0.9 || conf > 1 {
			return nil, fmt.Errorf("merchant rule %q: confidence %.2f outside [0.9, 1]", m.Key, conf)
		}
		rules = append(rules, &MerchantRule{Key: m.Key, Label: m.Label, Pattern: pattern, Confidence: conf})
	}

	for i, op := range s.Operations {
		hint := entity.TypeHint(op.Type)
		switch hint {
		case entity.TypeHintFee, entity.TypeHintATM, entity.TypeHintSalary, entity.TypeHintRefund:
		default:
			return nil, fmt.Errorf("operation rule %d: unknown type %q", i, op.Type)
		}
		if op.Label == "" {
			return nil, fmt.Errorf("operation rule %d: label is required", i)
		}
		pattern, err := compileRulePattern("", op.Keywords)
		if err != nil {
			return nil, fmt.Errorf("operation rule %q: %w", op.Type, err)
		}
		conf := orDefault(op.Confidence, DefaultOperationConfidence)
		if conf < 0.75 || conf >= 0.9 {
			return nil, fmt.Errorf("operation rule %q: confidence %.2f outside [0.75, 0.9)", op.Type, conf)
		}
		rules = append(rules, &OperationRule{Type: hint, Label: op.Label, Pattern: pattern, Confidence: conf})
	}

	for i, t := range s.Transfers {
		if t.Label == "" {
			return nil, fmt.Errorf("transfer rule %d: label is required", i)
		}
		pattern, err := compileRulePattern("", t.Keywords)
		if err != nil {
			return nil, fmt.Errorf("transfer rule %d: %w", i, err)
		}
		named := orDefault(t.NamedConfidence, DefaultTransferNamedConfidence)
		bare := orDefault(t.BareConfidence, DefaultTransferBareConfidence)
		if named <= 0 || named > 1 || bare <= 0 || bare > 1 {
			return nil, fmt.Errorf("transfer rule %d: confidence outside (0, 1]", i)
		}
		rules = append(rules, &TransferRule{
			Provider:        t.Provider,
			Label:           t.Label,
			Pattern:         pattern,
			NamedConfidence: named,
			BareConfidence:  bare,
			names:           names,
		})
	}

	return rules, nil
}

// compileRulePattern turns keywords into one case-insensitive whole-word
// alternation over folded text. Multi-word keywords tolerate any separator.
func compileRulePattern(raw string, keywords []string) (*regexp.Regexp, error) {
	if raw != "" {
		re, err := regexp.Compile("(?i)" + raw)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern: %w", err)
		}
		return re, nil
	}

	alts := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		parts := splitTokens(foldUpper(kw))
		if len(parts) == 0 {
			continue
		}
		for i, p := range parts {
			parts[i] = regexp.QuoteMeta(p)
		}
		alts = append(alts, strings.Join(parts, `\s+`))
	}
	if len(alts) == 0 {
		return nil, fmt.Errorf("no keywords or pattern")
	}
	return regexp.Compile(`(?i)\b(?:` + strings.Join(alts, "|") + `)\b`)
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
