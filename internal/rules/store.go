// Package rules persists vendor-pattern rules and matches them against
// transaction descriptions. The store is append-only: rules are never
// rewritten or deleted, only added.
package rules

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/accountantiq-dev/accountantiq/internal/model"
)

// ValidationError rejects a rule before anything is written.
type ValidationError struct {
	Rule   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid rule %q: %s", e.Rule, e.Reason)
}

// Store holds the rules for one client workspace, backed by a YAML file.
// Patterns are compiled once at load/append; an entry never reaches the
// store with a pattern that does not compile.
type Store struct {
	path     string
	rules    []model.Rule
	compiled []*regexp.Regexp
}

// Load reads the rule file at path. A missing file is an empty store.
func Load(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}

	var loaded []model.Rule
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}

	for _, r := range loaded {
		re, err := compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %q: pattern does not compile: %w", r.Name, err)
		}
		s.rules = append(s.rules, r)
		s.compiled = append(s.compiled, re)
	}
	return s, nil
}

// compile applies case-insensitive matching uniformly, the same way the
// engine documents rule semantics to reviewers.
func compile(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + pattern)
}

// All returns the rules in creation order.
func (s *Store) All() []model.Rule {
	out := make([]model.Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Len returns the number of stored rules.
func (s *Store) Len() int { return len(s.rules) }

// Append validates and durably adds one rule. On any validation failure
// nothing is written and the in-memory state is unchanged.
func (s *Store) Append(rule model.Rule) error {
	if strings.TrimSpace(rule.Name) == "" {
		return &ValidationError{Rule: rule.Name, Reason: "name is required"}
	}
	if strings.TrimSpace(rule.Pattern) == "" {
		return &ValidationError{Rule: rule.Name, Reason: "pattern is required"}
	}
	if strings.TrimSpace(rule.Nominal) == "" {
		return &ValidationError{Rule: rule.Name, Reason: "nominal code is required"}
	}

	re, err := compile(rule.Pattern)
	if err != nil {
		return &ValidationError{Rule: rule.Name, Reason: fmt.Sprintf("pattern does not compile: %v", err)}
	}
	for _, existing := range s.rules {
		if existing.Name == rule.Name && existing.Pattern == rule.Pattern {
			return &ValidationError{Rule: rule.Name, Reason: "identical rule already exists"}
		}
	}

	next := append(s.All(), rule)
	if err := s.save(next); err != nil {
		return err
	}
	s.rules = next
	s.compiled = append(s.compiled, re)
	return nil
}

// HasPattern reports whether any stored rule carries this exact pattern.
func (s *Store) HasPattern(pattern string) bool {
	for _, r := range s.rules {
		if r.Pattern == pattern {
			return true
		}
	}
	return false
}

// Match returns the rules whose pattern matches the cleaned description,
// in creation order. When none match the cleaned form, the raw
// description is tried as a fallback.
func (s *Store) Match(clean, raw string) []model.Rule {
	matches := s.matchAgainst(clean)
	if len(matches) == 0 && raw != "" {
		matches = s.matchAgainst(raw)
	}
	return matches
}

func (s *Store) matchAgainst(description string) []model.Rule {
	if description == "" {
		return nil
	}
	var matches []model.Rule
	for i, re := range s.compiled {
		if re.MatchString(description) {
			matches = append(matches, s.rules[i])
		}
	}
	return matches
}

func (s *Store) save(all []model.Rule) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating rules dir: %w", err)
	}
	data, err := yaml.Marshal(all)
	if err != nil {
		return fmt.Errorf("marshaling rules: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing rules: %w", err)
	}
	return nil
}

var metaRe = regexp.MustCompile(`\\.|[.*+?()\[\]{}^$|]`)

// Specificity scores how much literal text a pattern carries. Longer
// literal cores win conflicts between multiple matching rules.
func Specificity(pattern string) int {
	return len(metaRe.ReplaceAllString(pattern, ""))
}

// SelectBest picks the winning rule among matches: most specific first,
// then most recently created, then name ascending so equal-timestamp
// rules stay deterministic.
func SelectBest(matches []model.Rule) (model.Rule, bool) {
	if len(matches) == 0 {
		return model.Rule{}, false
	}
	sorted := make([]model.Rule, len(matches))
	copy(sorted, matches)
	sort.SliceStable(sorted, func(i, j int) bool {
		si, sj := Specificity(sorted[i].Pattern), Specificity(sorted[j].Pattern)
		if si != sj {
			return si > sj
		}
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].Name < sorted[j].Name
	})
	return sorted[0], true
}
