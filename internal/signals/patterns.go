package signals

import (
	"fmt"
	"regexp"

	"github.com/nvandessel/trustloop/internal/models"
	"github.com/nvandessel/trustloop/internal/tiering"
)

// PatternConfig holds the regular expressions behind the text-matching
// signals. Patterns are data: they are loaded from configuration and
// compiled once when the catalog is built.
type PatternConfig struct {
	Sycophancy      []string `json:"sycophancy" yaml:"sycophancy"`
	CompletionClaim []string `json:"completion_claim" yaml:"completion_claim"`
	Hedging         []string `json:"hedging" yaml:"hedging"`
	Correction      []string `json:"correction" yaml:"correction"`
	Endorsement     []string `json:"endorsement" yaml:"endorsement"`
	Approval        []string `json:"approval" yaml:"approval"`
	Destructive     []string `json:"destructive" yaml:"destructive"`
}

// DefaultPatternConfig returns a small built-in pattern set.
func DefaultPatternConfig() PatternConfig {
	return PatternConfig{
		Sycophancy: []string{
			`(?i)\byou'?re (absolutely|completely|totally) right\b`,
			`(?i)\bgreat (question|point|catch)\b`,
			`(?i)\bexcellent (question|point|observation)\b`,
		},
		CompletionClaim: []string{
			`(?i)\b(all|every) tests? (now )?pass(es|ing)?\b`,
			`(?i)\b(is|are) now (fixed|working|complete)\b`,
			`(?i)\b(implementation|task|fix) (is )?(complete|done)\b`,
		},
		Hedging: []string{
			`(?i)\b(should|might|may) (probably )?work\b`,
			`(?i)\bI (think|believe|assume) (this|that|it)\b`,
			`(?i)\bprobably\b.*\bfix`,
		},
		Correction: []string{
			`(?i)^\s*no[,.!]`,
			`(?i)\b(that'?s|this is) (wrong|incorrect|not what I)\b`,
			`(?i)\b(don'?t|do not|stop) (do|doing|use|using)\b`,
			`(?i)\bI (said|told you|asked)\b`,
		},
		Endorsement: []string{
			`(?i)\b(great|good|nice|perfect|excellent) (job|work)\b`,
			`(?i)^\s*(perfect|exactly|lgtm)\b`,
			`(?i)\bthat works\b`,
		},
		Approval: []string{
			`(?i)^\s*(approved?|confirm(ed)?)\s*[.!]?\s*$`,
			`(?i)\btrustloop approve\b`,
		},
		Destructive: tiering.DefaultIrrevocablePatterns(),
	}
}

// Patterns is the compiled form of PatternConfig.
type Patterns struct {
	Sycophancy      []*regexp.Regexp
	CompletionClaim []*regexp.Regexp
	Hedging         []*regexp.Regexp
	Correction      []*regexp.Regexp
	Endorsement     []*regexp.Regexp
	Approval        []*regexp.Regexp
	Destructive     []*regexp.Regexp
}

// Compile compiles every pattern. A bad expression is a configuration error.
func (c PatternConfig) Compile() (*Patterns, error) {
	p := &Patterns{}
	sets := []struct {
		name string
		src  []string
		dst  *[]*regexp.Regexp
	}{
		{"sycophancy", c.Sycophancy, &p.Sycophancy},
		{"completion_claim", c.CompletionClaim, &p.CompletionClaim},
		{"hedging", c.Hedging, &p.Hedging},
		{"correction", c.Correction, &p.Correction},
		{"endorsement", c.Endorsement, &p.Endorsement},
		{"approval", c.Approval, &p.Approval},
		{"destructive", c.Destructive, &p.Destructive},
	}
	for _, set := range sets {
		for i, expr := range set.src {
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("pattern %s[%d]: %w", set.name, i, err)
			}
			*set.dst = append(*set.dst, re)
		}
	}
	return p, nil
}

// MatchAny reports whether any expression matches s.
func MatchAny(res []*regexp.Regexp, s string) bool {
	if s == "" {
		return false
	}
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

type patternList = []*regexp.Regexp

func assistantText(c models.Context) string { return c.AssistantOutput }

func promptText(c models.Context) string { return c.UserPrompt }

func commandText(c models.Context) string { return c.Command }

// textMatch builds a predicate matching one pattern set against one field
// of the context.
func textMatch(set func(*Patterns) patternList, field func(models.Context) string) Predicate {
	return func(in Input) (bool, error) {
		if in.Patterns == nil {
			return false, errNoPatterns
		}
		return MatchAny(set(in.Patterns), field(in.Ctx)), nil
	}
}
