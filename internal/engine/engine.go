// Package engine is the core facade: it wires the normalizer, matcher,
// rule store, review queue, and exporter into the operations the CLI
// and HTTP layer call. Within one client, mutating operations are
// mutually exclusive; reads see a consistent snapshot. Durable files
// are the source of truth — every operation loads the state it needs
// and persists before returning.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/accountantiq-dev/accountantiq/internal/export"
	"github.com/accountantiq-dev/accountantiq/internal/match"
	"github.com/accountantiq-dev/accountantiq/internal/model"
	"github.com/accountantiq-dev/accountantiq/internal/normalize"
	"github.com/accountantiq-dev/accountantiq/internal/review"
	"github.com/accountantiq-dev/accountantiq/internal/rules"
	"github.com/accountantiq-dev/accountantiq/internal/workspace"
)

// Options tune engine behavior beyond the matcher thresholds.
type Options struct {
	Matcher match.Config
	// AutoCreateFloor is the minimum suggestion confidence for promoting
	// a fresh suggestion into a rule during import with auto-create on.
	AutoCreateFloor decimal.Decimal
}

// DefaultOptions returns the standard engine tuning.
func DefaultOptions() Options {
	return Options{
		Matcher:         match.DefaultConfig(),
		AutoCreateFloor: decimal.RequireFromString("0.80"),
	}
}

// Engine serves all clients under one data root.
type Engine struct {
	dataRoot string
	opts     Options
	log      zerolog.Logger
	now      func() time.Time

	mu      sync.Mutex
	clients map[string]*clientState
}

// clientState carries the per-client critical section. Mutating
// operations take the write lock; queue reads take the read lock.
type clientState struct {
	mu sync.RWMutex
}

// New creates an engine rooted at dataRoot.
func New(dataRoot string, opts Options, log zerolog.Logger) *Engine {
	return &Engine{
		dataRoot: dataRoot,
		opts:     opts,
		log:      log,
		now:      time.Now,
		clients:  make(map[string]*clientState),
	}
}

func (e *Engine) client(slug string) *clientState {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.clients[slug]
	if !ok {
		c = &clientState{}
		e.clients[slug] = c
	}
	return c
}

// paths validates the slug and resolves the client's workspace.
func (e *Engine) paths(slug string) (workspace.Paths, error) {
	if err := workspace.ValidateSlug(slug); err != nil {
		return workspace.Paths{}, err
	}
	return workspace.For(e.dataRoot, slug), nil
}

// existingPaths additionally requires the workspace to be present.
func (e *Engine) existingPaths(slug string) (workspace.Paths, error) {
	p, err := e.paths(slug)
	if err != nil {
		return workspace.Paths{}, err
	}
	if !p.Exists() {
		return workspace.Paths{}, &UnknownClientError{Slug: slug}
	}
	return p, nil
}

// InitClient bootstraps a client workspace with the default export
// profile. Idempotent.
func (e *Engine) InitClient(slug string) error {
	p, err := e.paths(slug)
	if err != nil {
		return err
	}

	c := e.client(slug)
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := p.Init(); err != nil {
		return err
	}
	if _, err := export.LoadProfile(p.ProfilesDir(), export.DefaultProfileName); err != nil {
		return err
	}
	e.log.Info().Str("client", slug).Msg("workspace initialized")
	return nil
}

// ImportResult is the outcome of one import run.
type ImportResult struct {
	Items        []model.ReviewItem
	Skipped      []normalize.SkippedRow
	RulesCreated int
}

// ImportReview normalizes both CSVs, scores every transaction, and
// merges the batch into the client's queue. The suggestion pass is
// pure; the queue changes in a single apply pass under the client
// lock. With autoCreate, confident fresh suggestions are promoted to
// rules after scoring so they cannot influence this run.
func (e *Engine) ImportReview(slug, bankCSV, historyCSV string, reset, autoCreate bool) (*ImportResult, error) {
	p, err := e.paths(slug)
	if err != nil {
		return nil, err
	}

	c := e.client(slug)
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := p.Init(); err != nil {
		return nil, err
	}
	if err := workspace.SaveInput(p.BankInput(), bankCSV); err != nil {
		return nil, err
	}
	if err := workspace.SaveInput(p.HistoryInput(), historyCSV); err != nil {
		return nil, err
	}

	txns, skippedBank, err := normalize.ParseBank("bank.csv", bankCSV)
	if err != nil {
		return nil, err
	}
	history, skippedHist, err := normalize.ParseHistory("history.csv", historyCSV)
	if err != nil {
		return nil, err
	}
	skipped := append(skippedBank, skippedHist...)

	store, err := rules.Load(p.RulesPath())
	if err != nil {
		return nil, err
	}

	// Phase one: compute every suggestion against a fixed rule/history
	// snapshot.
	matcher := match.New(e.opts.Matcher, history)
	suggestions := matcher.SuggestAll(txns, store)

	// Phase two: one queue-wide transition pass.
	queue, err := review.Load(p.QueuePath())
	if err != nil {
		return nil, err
	}
	now := e.now()
	if err := queue.Apply(txns, suggestions, reset, now); err != nil {
		return nil, err
	}

	created := 0
	if autoCreate {
		created, err = e.promoteSuggestions(store, txns, suggestions, now)
		if err != nil {
			return nil, err
		}
	}

	e.log.Info().
		Str("client", slug).
		Int("transactions", len(txns)).
		Int("history", len(history)).
		Int("skipped", len(skipped)).
		Int("rules_created", created).
		Bool("reset", reset).
		Msg("import complete")

	return &ImportResult{Items: queue.Items(), Skipped: skipped, RulesCreated: created}, nil
}

// promoteSuggestions turns confident suggestions into rules, skipping
// ones without codes and patterns the store already holds.
func (e *Engine) promoteSuggestions(store *rules.Store, txns []model.BankTransaction, suggestions []model.Suggestion, now time.Time) (int, error) {
	created := 0
	for i, sugg := range suggestions {
		if sugg.Nominal == "" || sugg.Confidence.LessThan(e.opts.AutoCreateFloor) {
			continue
		}
		rule, ok := rules.Synthesize(txns[i], sugg.Nominal, sugg.TaxCode, now)
		if !ok || store.HasPattern(rule.Pattern) {
			continue
		}
		if err := store.Append(rule); err != nil {
			return created, fmt.Errorf("auto-creating rule for %s: %w", txns[i].ID, err)
		}
		created++
	}
	return created, nil
}

// GetQueue returns a consistent snapshot of the client's review queue.
func (e *Engine) GetQueue(slug string) ([]model.ReviewItem, error) {
	p, err := e.existingPaths(slug)
	if err != nil {
		return nil, err
	}

	c := e.client(slug)
	c.mu.RLock()
	defer c.mu.RUnlock()

	queue, err := review.Load(p.QueuePath())
	if err != nil {
		return nil, err
	}
	return queue.Items(), nil
}

// ApproveItem accepts the current suggestion for one transaction.
func (e *Engine) ApproveItem(slug, txnID, note string) (model.ReviewItem, error) {
	p, err := e.existingPaths(slug)
	if err != nil {
		return model.ReviewItem{}, err
	}

	c := e.client(slug)
	c.mu.Lock()
	defer c.mu.Unlock()

	queue, err := review.Load(p.QueuePath())
	if err != nil {
		return model.ReviewItem{}, err
	}
	item, err := queue.Approve(txnID, note, e.now())
	if err != nil {
		return model.ReviewItem{}, err
	}
	e.log.Info().Str("client", slug).Str("txn", txnID).Msg("item approved")
	return item, nil
}

// OverrideItem records human-supplied final codes for one transaction.
func (e *Engine) OverrideItem(slug, txnID, nominal, taxCode, note string) (model.ReviewItem, error) {
	p, err := e.existingPaths(slug)
	if err != nil {
		return model.ReviewItem{}, err
	}

	c := e.client(slug)
	c.mu.Lock()
	defer c.mu.Unlock()

	queue, err := review.Load(p.QueuePath())
	if err != nil {
		return model.ReviewItem{}, err
	}
	item, err := queue.Override(txnID, nominal, taxCode, note, e.now())
	if err != nil {
		return model.ReviewItem{}, err
	}
	e.log.Info().Str("client", slug).Str("txn", txnID).Str("nominal", nominal).Msg("item overridden")
	return item, nil
}

// AppendRule validates and durably adds one rule to the client's store.
func (e *Engine) AppendRule(slug, name, pattern, nominal, taxCode string) error {
	p, err := e.existingPaths(slug)
	if err != nil {
		return err
	}

	c := e.client(slug)
	c.mu.Lock()
	defer c.mu.Unlock()

	store, err := rules.Load(p.RulesPath())
	if err != nil {
		return err
	}
	rule := model.Rule{
		Name:      name,
		Pattern:   pattern,
		Nominal:   nominal,
		TaxCode:   taxCode,
		CreatedAt: e.now(),
	}
	if err := store.Append(rule); err != nil {
		return err
	}
	e.log.Info().Str("client", slug).Str("rule", name).Msg("rule appended")
	return nil
}

// Rules returns the client's rules in creation order.
func (e *Engine) Rules(slug string) ([]model.Rule, error) {
	p, err := e.existingPaths(slug)
	if err != nil {
		return nil, err
	}

	c := e.client(slug)
	c.mu.RLock()
	defer c.mu.RUnlock()

	store, err := rules.Load(p.RulesPath())
	if err != nil {
		return nil, err
	}
	return store.All(), nil
}

// BackfillRules auto-creates rules over all currently decided items and
// returns how many were created.
func (e *Engine) BackfillRules(slug string) (int, error) {
	p, err := e.existingPaths(slug)
	if err != nil {
		return 0, err
	}

	c := e.client(slug)
	c.mu.Lock()
	defer c.mu.Unlock()

	queue, err := review.Load(p.QueuePath())
	if err != nil {
		return 0, err
	}
	store, err := rules.Load(p.RulesPath())
	if err != nil {
		return 0, err
	}

	created := 0
	now := e.now()
	for _, item := range queue.Decided() {
		_, ok, err := store.AutoCreate(item, now)
		if err != nil {
			return created, fmt.Errorf("backfilling %s: %w", item.Txn.ID, err)
		}
		if ok {
			created++
		}
	}
	e.log.Info().Str("client", slug).Int("rules_created", created).Msg("backfill complete")
	return created, nil
}

// Export writes the client's decided items through the named profile
// and reports the output location and row count.
func (e *Engine) Export(slug, profileName string) (export.Result, error) {
	p, err := e.existingPaths(slug)
	if err != nil {
		return export.Result{}, err
	}

	c := e.client(slug)
	c.mu.Lock()
	defer c.mu.Unlock()

	queue, err := review.Load(p.QueuePath())
	if err != nil {
		return export.Result{}, err
	}
	profile, err := export.LoadProfile(p.ProfilesDir(), profileName)
	if err != nil {
		return export.Result{}, err
	}

	res, err := export.Export(p.OutputsDir(), queue.Items(), profile)
	if err != nil {
		return export.Result{}, err
	}
	e.log.Info().Str("client", slug).Str("profile", profileName).Int("rows", res.Rows).Msg("export complete")
	return res, nil
}
