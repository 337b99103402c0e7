// Package rules implements the process-wide Rules Store: a lazily loaded,
// immutable-after-load set of per-domain DOM selectors and text
// normalization patterns consumed by cleaner.
package rules

import (
	"os"
	"regexp"
	"sync"

	"gopkg.in/yaml.v3"
)

// NormalizePattern is one regex-based text normalization pass.
type NormalizePattern struct {
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`

	compiled *regexp.Regexp
}

// Apply runs the compiled pattern against s.
func (p *NormalizePattern) Apply(s string) string {
	if p.compiled == nil {
		return s
	}
	return p.compiled.ReplaceAllString(s, p.Replacement)
}

// DomainRules is one domain's (or the default "*" entry's) rule set.
type DomainRules struct {
	// RemoveSelectors are CSS selectors for elements the Cleaner strips
	// outright (boilerplate nav/footer/ads chrome).
	RemoveSelectors []string `yaml:"remove_selectors"`

	// PreserveSelectors are never removed even if they match a remove
	// selector elsewhere (e.g. inline image galleries some sites nest
	// inside otherwise-boilerplate containers).
	PreserveSelectors []string `yaml:"preserve_selectors"`

	// Normalize is applied, in order, to the Cleaner's extracted plain text.
	Normalize []NormalizePattern `yaml:"normalize"`
}

// ruleFile is the on-disk YAML shape: a map keyed by domain, "*" for the
// default applied when no domain-specific entry matches.
type ruleFile map[string]DomainRules

// Store is the process-wide singleton. Zero value is usable; the rule file
// is loaded lazily and exactly once via sync.Once.
type Store struct {
	once  sync.Once
	rules ruleFile
	path  string
}

var global = &Store{}

// Configure sets the file path used by the lazy load, in place of
// RULES_FILE. Must be called, if at all, before the first call to For in
// the process.
func Configure(path string) {
	global.path = path
}

// For returns the rule set for domain, falling back to the "*" default.
// It triggers the one-time load on first use.
func For(domain string) DomainRules {
	return global.For(domain)
}

func (s *Store) For(domain string) DomainRules {
	s.once.Do(s.load)
	if r, ok := s.rules[domain]; ok {
		return r
	}
	return s.rules["*"]
}

func (s *Store) load() {
	rf := defaultRuleFile()

	path := s.path
	if path == "" {
		path = os.Getenv("RULES_FILE")
	}
	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			var loaded ruleFile
			if yaml.Unmarshal(data, &loaded) == nil {
				for domain, dr := range loaded {
					rf[domain] = dr
				}
			}
		}
	}

	for domain, dr := range rf {
		for i := range dr.Normalize {
			if re, err := regexp.Compile(dr.Normalize[i].Pattern); err == nil {
				dr.Normalize[i].compiled = re
			}
		}
		rf[domain] = dr
	}

	s.rules = rf
}

// defaultRuleFile is the embedded fallback used when RULES_FILE is unset
// or unreadable, grounded on the format-pattern defaults table (spec.md §6).
//
// Normalize order is chosen for idempotence, not the table's listing order:
// unescape first, then strip the three pipe/table residue shapes and
// trailing backslashes, then collapse runs of spaces/tabs, then collapse
// the newlines that removal leaves behind, then strip zero-width characters.
func defaultRuleFile() ruleFile {
	return ruleFile{
		"*": {
			RemoveSelectors: []string{
				"nav", "footer", "header", "aside",
				".advertisement", ".ads", ".cookie-banner", ".newsletter-signup",
				"script", "style", "noscript", "svg",
			},
			Normalize: []NormalizePattern{
				// escapeChars: \_, \\, \`, \' -> unescaped
				{Pattern: "\\\\([_\\\\`'])", Replacement: "$1"},
				// pipeWithDashes: a line ending in a pipe followed by five or more
				// dashes, e.g. "| -----"; shorter separators are left to anyTableLine.
				{Pattern: `(?m).*\|\s*-{5,}\s*$`, Replacement: ""},
				// functionCallsWithPipes: a line holding both an underscore-joined
				// identifier and a pipe — documentation table residue.
				{Pattern: `(?m).*_[a-zA-Z0-9_]+.*\|.*$`, Replacement: ""},
				// anyTableLine: any remaining line shaped like a table row.
				{Pattern: `(?m)^.*\|.*\|.*$`, Replacement: ""},
				// trailingBackslashes: a line-continuation backslash with nothing after it.
				{Pattern: `(?m)\\$`, Replacement: ""},
				{Pattern: `[ \t]+`, Replacement: " "},
				// excessiveNewlines
				{Pattern: `\n{3,}`, Replacement: "\n\n"},
				{Pattern: `[\x{200B}\x{200C}\x{200D}\x{FEFF}]`, Replacement: ""},
			},
		},
	}
}
