package rules

import (
	"regexp"
	"strings"
	"time"

	"github.com/accountantiq-dev/accountantiq/internal/model"
)

const maxRuleNameLen = 32

// Synthesize builds a rule from a decided transaction and its final
// codes. The pattern joins the leading cleaned tokens with wildcards so
// it survives reference numbers changing between statements. Returns
// false when the description has nothing usable to anchor a pattern on.
func Synthesize(txn model.BankTransaction, nominal, taxCode string, now time.Time) (model.Rule, bool) {
	tokens := strings.Fields(txn.DescriptionClean)
	if len(tokens) == 0 {
		fallback := strings.TrimSpace(txn.DescriptionRaw)
		if fallback == "" {
			fallback = strings.TrimSpace(txn.AccountID)
		}
		if fallback == "" {
			return model.Rule{}, false
		}
		tokens = []string{strings.ToLower(fallback)}
	}
	if len(tokens) > 3 {
		tokens = tokens[:3]
	}

	escaped := make([]string, len(tokens))
	for i, tok := range tokens {
		escaped[i] = regexp.QuoteMeta(tok)
	}
	pattern := strings.Join(escaped, ".*")

	name := strings.TrimSpace(txn.DescriptionRaw)
	if name == "" {
		name = txn.DescriptionClean
	}
	if name == "" {
		name = txn.ID
	}
	if runes := []rune(name); len(runes) > maxRuleNameLen {
		name = string(runes[:maxRuleNameLen])
	}

	if taxCode == "" {
		taxCode = "T0"
	}

	return model.Rule{
		Name:      name,
		Pattern:   pattern,
		Nominal:   nominal,
		TaxCode:   taxCode,
		CreatedAt: now,
	}, true
}

// AutoCreate promotes a decided review item into a rule, skipping items
// without final codes and patterns the store already holds. Reports
// whether a rule was appended.
func (s *Store) AutoCreate(item model.ReviewItem, now time.Time) (model.Rule, bool, error) {
	if !item.Status.Decided() || item.NominalFinal == "" {
		return model.Rule{}, false, nil
	}

	rule, ok := Synthesize(item.Txn, item.NominalFinal, item.TaxCodeFinal, now)
	if !ok {
		return model.Rule{}, false, nil
	}
	if s.HasPattern(rule.Pattern) {
		return model.Rule{}, false, nil
	}

	if err := s.Append(rule); err != nil {
		return model.Rule{}, false, err
	}
	return rule, true, nil
}
