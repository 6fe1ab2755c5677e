package classify

import (
	"fmt"
	"regexp"
	"strings"

	"wikiglossary/pkg/config"
)

// DefaultFallback is used when no rule matches a page's categories
const DefaultFallback = "Uncategorized"

// Rule maps raw wiki categories matching Pattern to an output Category
type Rule struct {
	Pattern  *regexp.Regexp
	Category string
}

// Classifier assigns one output category to a page from its raw categories.
// Rules are tried in order and the first rule matching any raw category wins.
type Classifier struct {
	rules    []Rule
	fallback string
}

// builtinRules is ordered so that more specific categories win. Fighting arts
// pages are usually also tagged as weapons, so they must be tested first.
var builtinRules = []config.RuleConfig{
	{Pattern: `(?i)fighting arts?`, Category: "Fighting Arts"},
	{Pattern: `(?i)disorders?`, Category: "Disorders"},
	{Pattern: `(?i)severe injur(y|ies)`, Category: "Severe Injuries"},
	{Pattern: `(?i)weapons?|weapon proficienc(y|ies)`, Category: "Weapons"},
	{Pattern: `(?i)armou?r`, Category: "Armor"},
	{Pattern: `(?i)gear|items?|equipment`, Category: "Gear"},
	{Pattern: `(?i)resources?|materials?`, Category: "Resources"},
	{Pattern: `(?i)monsters?|quarr(y|ies)|nemes(is|es)`, Category: "Monsters"},
	{Pattern: `(?i)innovations?`, Category: "Innovations"},
	{Pattern: `(?i)locations?|settlement locations?`, Category: "Locations"},
	{Pattern: `(?i)abilit(y|ies)|impairments?`, Category: "Abilities"},
	{Pattern: `(?i)events?|story events?|hunt events?`, Category: "Events"},
	{Pattern: `(?i)terms?|keywords?|glossary|rules?`, Category: "Rules"},
}

// New compiles the given rules. An empty rule list selects the built-in rules
// and an empty fallback selects DefaultFallback.
func New(rules []config.RuleConfig, fallback string) (*Classifier, error) {
	if len(rules) == 0 {
		rules = builtinRules
	}
	fallback = strings.TrimSpace(fallback)
	if fallback == "" {
		fallback = DefaultFallback
	}

	c := &Classifier{fallback: fallback, rules: make([]Rule, 0, len(rules))}
	for i, r := range rules {
		if strings.TrimSpace(r.Category) == "" {
			return nil, fmt.Errorf("rule %d: empty category", i)
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %d: invalid pattern %q: %w", i, r.Pattern, err)
		}
		c.rules = append(c.rules, Rule{Pattern: re, Category: r.Category})
	}
	return c, nil
}

// FromConfig builds a Classifier from the classifier config section
func FromConfig(cfg *config.ClassifierConfig) (*Classifier, error) {
	return New(cfg.Rules, cfg.Fallback)
}

// Default returns the built-in classifier
func Default() *Classifier {
	c, err := New(nil, "")
	if err != nil {
		panic(err)
	}
	return c
}

// Classify returns the output category for a page's raw categories.
// It never returns "".
func (c *Classifier) Classify(raw []string) string {
	for _, rule := range c.rules {
		for _, name := range raw {
			if rule.Pattern.MatchString(name) {
				return rule.Category
			}
		}
	}
	return c.fallback
}

// IsFallback reports whether category is the fallback category
func (c *Classifier) IsFallback(category string) bool {
	return category == c.fallback
}

// Fallback returns the fallback category
func (c *Classifier) Fallback() string {
	return c.fallback
}

// Rules returns a copy of the compiled rules in priority order
func (c *Classifier) Rules() []Rule {
	return append([]Rule(nil), c.rules...)
}
