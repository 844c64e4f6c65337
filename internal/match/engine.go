// Package match produces nominal/tax code suggestions for bank
// transactions from curated rules and historical precedent. The engine
// is pure: identical (transaction, rules, history) inputs always yield
// an identical suggestion.
package match

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/accountantiq-dev/accountantiq/internal/model"
	"github.com/accountantiq-dev/accountantiq/internal/rules"
)

// Config carries the scoring thresholds. Everything a tuning pass or an
// audit explanation depends on is here rather than hard-coded.
type Config struct {
	RuleConfidence decimal.Decimal // fixed confidence for curated rule matches

	ExactBase decimal.Decimal // exact-precedent confidence for a single record
	ExactStep decimal.Decimal // added per corroborating record beyond the first
	ExactCap  decimal.Decimal // ceiling for the exact tier, below RuleConfidence

	MinSimilarity  int             // 0-100 floor for fuzzy matches
	FuzzyWeight    decimal.Decimal // scales similarity into base confidence
	DirectionBonus decimal.Decimal // added when direction matches vendor history
	AmountBonus    decimal.Decimal // added when amount is near the vendor median
	FuzzyCap       decimal.Decimal // ceiling for the fuzzy tier

	AmountTolerance decimal.Decimal // fraction of the median, floor 1.00
}

// DefaultConfig returns the tier thresholds used unless a workspace
// overrides them.
func DefaultConfig() Config {
	return Config{
		RuleConfidence:  decimal.RequireFromString("0.95"),
		ExactBase:       decimal.RequireFromString("0.60"),
		ExactStep:       decimal.RequireFromString("0.05"),
		ExactCap:        decimal.RequireFromString("0.85"),
		MinSimilarity:   60,
		FuzzyWeight:     decimal.RequireFromString("0.60"),
		DirectionBonus:  decimal.RequireFromString("0.10"),
		AmountBonus:     decimal.RequireFromString("0.05"),
		FuzzyCap:        decimal.RequireFromString("0.85"),
		AmountTolerance: decimal.RequireFromString("0.15"),
	}
}

// Engine scores transactions against a fixed history set.
type Engine struct {
	cfg     Config
	history []model.HistoryRecord
	byAlias map[string]*vendorProfile
	aliases []string // sorted for reproducible scans
}

// New builds an engine over the given history records.
func New(cfg Config, history []model.HistoryRecord) *Engine {
	byAlias, aliases := buildProfiles(history)
	return &Engine{cfg: cfg, history: history, byAlias: byAlias, aliases: aliases}
}

// Suggest runs the tiers in priority order: curated rule, exact
// historical precedent, fuzzy historical precedent. The first tier to
// assign codes wins; later tiers may still add explanations.
func (e *Engine) Suggest(txn model.BankTransaction, store *rules.Store) model.Suggestion {
	clean := cleanOf(txn)

	if s, ok := e.ruleTier(txn, clean, store); ok {
		return s
	}
	if s, ok, disagreement := e.exactTier(txn, clean); ok {
		return s
	} else if disagreement != "" {
		s := e.fuzzyTier(txn, clean)
		// The disagreement is why the exact tier stood down, which makes
		// it the lead explanation for whatever the fuzzy tier produced.
		s.Explanations = append([]string{disagreement}, s.Explanations...)
		return s
	}
	return e.fuzzyTier(txn, clean)
}

// SuggestAll scores a batch in input order.
func (e *Engine) SuggestAll(txns []model.BankTransaction, store *rules.Store) []model.Suggestion {
	out := make([]model.Suggestion, len(txns))
	for i, txn := range txns {
		out[i] = e.Suggest(txn, store)
	}
	return out
}

func (e *Engine) ruleTier(txn model.BankTransaction, clean string, store *rules.Store) (model.Suggestion, bool) {
	if store == nil {
		return model.Suggestion{}, false
	}
	matches := store.Match(clean, txn.DescriptionRaw)
	best, ok := rules.SelectBest(matches)
	if !ok {
		return model.Suggestion{}, false
	}

	explanations := []string{
		fmt.Sprintf("Rule %q (pattern %q) matched the description", best.Name, best.Pattern),
	}
	if exact := e.exactMatches(clean); len(exact) > 0 {
		explanations = append(explanations,
			fmt.Sprintf("Also corroborated by %d historical posting(s), e.g. %s",
				len(exact), exact[0].ID))
	}

	return model.Suggestion{
		TxnID:        txn.ID,
		Nominal:      best.Nominal,
		TaxCode:      best.TaxCode,
		Confidence:   e.cfg.RuleConfidence,
		Explanations: explanations,
	}, true
}

// exactMatches returns history records whose cleaned description equals
// the transaction's or whose token set fully contains/is contained by
// it, in history order.
func (e *Engine) exactMatches(clean string) []model.HistoryRecord {
	if clean == "" {
		return nil
	}
	var out []model.HistoryRecord
	for _, h := range e.history {
		if h.DescriptionClean == "" {
			continue
		}
		if h.DescriptionClean == clean || TokenSetRatio(clean, h.DescriptionClean) == 100 {
			out = append(out, h)
		}
	}
	return out
}

// exactTier suggests codes when the exact precedents agree. The third
// return value carries a disagreement explanation when precedents exist
// but conflict, in which case the fuzzy tier decides.
func (e *Engine) exactTier(txn model.BankTransaction, clean string) (model.Suggestion, bool, string) {
	matches := e.exactMatches(clean)
	if len(matches) == 0 {
		return model.Suggestion{}, false, ""
	}

	nominal := matches[0].NominalCode
	for _, m := range matches[1:] {
		if m.NominalCode != nominal {
			codes := distinctNominals(matches)
			return model.Suggestion{}, false, fmt.Sprintf(
				"Exact precedents disagree on nominal code (%s)", strings.Join(codes, ", "))
		}
	}

	taxCode := unanimousTax(matches)

	confidence := e.cfg.ExactBase.Add(
		e.cfg.ExactStep.Mul(decimal.NewFromInt(int64(len(matches) - 1))))
	if confidence.GreaterThan(e.cfg.ExactCap) {
		confidence = e.cfg.ExactCap
	}

	return model.Suggestion{
		TxnID:      txn.ID,
		Nominal:    nominal,
		TaxCode:    taxCode,
		Confidence: confidence,
		Explanations: []string{
			fmt.Sprintf("%d exact historical precedent(s) coded %s, e.g. history %s (%q)",
				len(matches), codePair(nominal, taxCode), matches[0].ID, matches[0].DescriptionClean),
		},
	}, true, ""
}

func (e *Engine) fuzzyTier(txn model.BankTransaction, clean string) model.Suggestion {
	none := model.Suggestion{
		TxnID:        txn.ID,
		Confidence:   decimal.Zero,
		Explanations: []string{"No confident match found in rules or history"},
	}
	if len(e.aliases) == 0 || clean == "" {
		if len(e.aliases) == 0 {
			none.Explanations = []string{"No vendor history available"}
		}
		return none
	}

	bestAlias := ""
	bestScore := 0
	for _, alias := range e.aliases {
		if score := TokenSetRatio(clean, alias); score > bestScore {
			bestScore = score
			bestAlias = alias
		}
	}
	if bestAlias == "" || bestScore < e.cfg.MinSimilarity {
		return none
	}

	profile := e.byAlias[bestAlias]
	nominal := profile.dominantNominal()
	if nominal == "" {
		none.Explanations = []string{
			fmt.Sprintf("Vendor %q matched but its history lacks coded postings", profile.key),
		}
		return none
	}

	scoreDec := decimal.NewFromInt(int64(bestScore)).Div(decimal.NewFromInt(100))
	confidence := scoreDec.Mul(e.cfg.FuzzyWeight)

	explanations := []string{
		fmt.Sprintf("Fuzzy vendor match %q (similarity %d, e.g. history %s)",
			profile.key, bestScore, profile.recordIDs[0]),
	}

	if dir, ok := profile.dominantDirection(); ok {
		if txn.Direction == dir {
			confidence = confidence.Add(e.cfg.DirectionBonus)
			explanations = append(explanations,
				fmt.Sprintf("Direction matches historical %s postings", dir))
		} else {
			explanations = append(explanations,
				fmt.Sprintf("Direction %s differs from historical %s postings", txn.Direction, dir))
		}
	}

	if median, ok := profile.medianAmount(); ok {
		tolerance := median.Mul(e.cfg.AmountTolerance)
		if tolerance.LessThan(decimal.NewFromInt(1)) {
			tolerance = decimal.NewFromInt(1)
		}
		delta := txn.Amount.Abs().Sub(median).Abs()
		if delta.LessThanOrEqual(tolerance) {
			confidence = confidence.Add(e.cfg.AmountBonus)
			explanations = append(explanations,
				fmt.Sprintf("Amount within %s of historical median %s",
					tolerance.StringFixed(2), median.StringFixed(2)))
		} else {
			explanations = append(explanations,
				fmt.Sprintf("Amount differs from historical median %s by %s",
					median.StringFixed(2), delta.StringFixed(2)))
		}
	}

	if confidence.GreaterThan(e.cfg.FuzzyCap) {
		confidence = e.cfg.FuzzyCap
	}

	return model.Suggestion{
		TxnID:        txn.ID,
		Nominal:      nominal,
		TaxCode:      profile.dominantTax(),
		Confidence:   confidence.Round(2),
		Explanations: explanations,
	}
}

func distinctNominals(records []model.HistoryRecord) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range records {
		if _, ok := seen[r.NominalCode]; !ok {
			seen[r.NominalCode] = struct{}{}
			out = append(out, r.NominalCode)
		}
	}
	return out
}

// unanimousTax returns the tax code only when every record that has one
// agrees; otherwise the suggestion leaves it absent.
func unanimousTax(records []model.HistoryRecord) string {
	tax := ""
	for _, r := range records {
		if r.TaxCode == "" {
			continue
		}
		if tax == "" {
			tax = r.TaxCode
			continue
		}
		if r.TaxCode != tax {
			return ""
		}
	}
	return tax
}

func codePair(nominal, tax string) string {
	if tax == "" {
		return nominal
	}
	return nominal + "/" + tax
}
