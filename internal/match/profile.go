package match

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/accountantiq-dev/accountantiq/internal/model"
	"github.com/accountantiq-dev/accountantiq/internal/normalize"
)

// vendorProfile aggregates the historical postings that share a vendor
// key: which codes they used, which direction they ran, and how much
// they were for.
type vendorProfile struct {
	key           string
	aliases       []string // sorted, unique
	nominalCounts map[string]int
	taxCounts     map[string]int
	dirCounts     map[model.Direction]int
	amounts       []decimal.Decimal // magnitudes
	recordIDs     []string
}

func (p *vendorProfile) register(entry model.HistoryRecord) {
	p.nominalCounts[entry.NominalCode]++
	if entry.TaxCode != "" {
		p.taxCounts[entry.TaxCode]++
	}
	p.dirCounts[model.DirectionOf(entry.Amount)]++
	p.amounts = append(p.amounts, entry.Amount.Abs())
	p.recordIDs = append(p.recordIDs, entry.ID)
}

// dominantNominal returns the most frequent nominal code; frequency
// ties break on the lexicographically smallest code so repeated runs
// agree.
func (p *vendorProfile) dominantNominal() string {
	return dominant(p.nominalCounts)
}

func (p *vendorProfile) dominantTax() string {
	return dominant(p.taxCounts)
}

func (p *vendorProfile) dominantDirection() (model.Direction, bool) {
	if len(p.dirCounts) == 0 {
		return "", false
	}
	if p.dirCounts[model.DirectionDebit] >= p.dirCounts[model.DirectionCredit] {
		return model.DirectionDebit, true
	}
	return model.DirectionCredit, true
}

func (p *vendorProfile) medianAmount() (decimal.Decimal, bool) {
	if len(p.amounts) == 0 {
		return decimal.Zero, false
	}
	sorted := make([]decimal.Decimal, len(p.amounts))
	copy(sorted, p.amounts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], true
	}
	return sorted[mid-1].Add(sorted[mid]).Div(decimal.NewFromInt(2)), true
}

func dominant(counts map[string]int) string {
	best := ""
	bestCount := 0
	for code, count := range counts {
		if count > bestCount || (count == bestCount && (best == "" || code < best)) {
			best = code
			bestCount = count
		}
	}
	return best
}

// buildProfiles groups history records by cleaned vendor key and indexes
// every alias (vendor hint plus leading-token prefixes) back to its
// profile. Alias order is sorted so lookups are reproducible.
func buildProfiles(history []model.HistoryRecord) (map[string]*vendorProfile, []string) {
	byKey := make(map[string]*vendorProfile)
	aliasIndex := make(map[string]*vendorProfile)

	for _, entry := range history {
		key := entry.VendorHint
		if key == "" {
			key = entry.DescriptionClean
		}
		if key == "" {
			continue
		}

		p, ok := byKey[key]
		if !ok {
			p = &vendorProfile{
				key:           key,
				nominalCounts: make(map[string]int),
				taxCounts:     make(map[string]int),
				dirCounts:     make(map[model.Direction]int),
			}
			byKey[key] = p
		}
		p.register(entry)

		for _, alias := range aliasesFor(key, entry.DescriptionClean) {
			if _, taken := aliasIndex[alias]; !taken {
				aliasIndex[alias] = p
			}
		}
	}

	for alias, p := range aliasIndex {
		p.aliases = append(p.aliases, alias)
	}
	byAlias := make(map[string]*vendorProfile, len(aliasIndex))
	aliases := make([]string, 0, len(aliasIndex))
	for alias, p := range aliasIndex {
		byAlias[alias] = p
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	for _, p := range byKey {
		sort.Strings(p.aliases)
	}
	return byAlias, aliases
}

// aliasesFor generates leading-token prefixes of the vendor key plus the
// full cleaned description, the forms a bank statement is likely to use.
func aliasesFor(key, cleanedDescription string) []string {
	variants := map[string]struct{}{key: {}}
	if cleanedDescription != "" {
		variants[cleanedDescription] = struct{}{}
	}
	tokens := strings.Fields(key)
	if len(tokens) >= 2 {
		variants[strings.Join(tokens[:2], " ")] = struct{}{}
	}
	if len(tokens) >= 3 {
		variants[strings.Join(tokens[:3], " ")] = struct{}{}
	}

	out := make([]string, 0, len(variants))
	for v := range variants {
		if v != "" {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

// cleanOf falls back to cleaning the raw description when a caller
// hands the engine a transaction without the normalized form.
func cleanOf(txn model.BankTransaction) string {
	if txn.DescriptionClean != "" {
		return txn.DescriptionClean
	}
	return normalize.CleanDescription(txn.DescriptionRaw)
}
