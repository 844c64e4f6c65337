// Package workspace lays out the on-disk state for one client. All of
// a client's files live under <dataRoot>/clients/<slug>; nothing is
// shared across slugs.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// SlugError rejects a client slug that cannot name a workspace.
type SlugError struct {
	Slug string
}

func (e *SlugError) Error() string {
	return fmt.Sprintf("invalid client slug %q: must match %s", e.Slug, slugRe.String())
}

// Slugs double as directory names, so they are restricted to a safe
// character set. This is what keeps one client's requests from ever
// reaching another client's files.
var slugRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// ValidateSlug checks a client slug.
func ValidateSlug(slug string) error {
	if !slugRe.MatchString(slug) {
		return &SlugError{Slug: slug}
	}
	return nil
}

// Paths resolves the file locations for one client workspace.
type Paths struct {
	root string
}

// For returns the paths for a client under dataRoot. The slug must
// already be validated.
func For(dataRoot, slug string) Paths {
	return Paths{root: filepath.Join(dataRoot, "clients", slug)}
}

// Root returns the client's top-level directory.
func (p Paths) Root() string { return p.root }

// InputsDir holds raw uploads exactly as received.
func (p Paths) InputsDir() string { return filepath.Join(p.root, "inputs") }

// BankInput is where the latest raw bank CSV is retained.
func (p Paths) BankInput() string { return filepath.Join(p.InputsDir(), "bank.csv") }

// HistoryInput is where the latest raw history CSV is retained.
func (p Paths) HistoryInput() string { return filepath.Join(p.InputsDir(), "history.csv") }

// RulesPath is the append-only rule store file.
func (p Paths) RulesPath() string { return filepath.Join(p.root, "workspace", "rules.yaml") }

// QueuePath is the durable review queue file.
func (p Paths) QueuePath() string { return filepath.Join(p.root, "workspace", "queue.csv") }

// ProfilesDir holds export profile definitions.
func (p Paths) ProfilesDir() string { return filepath.Join(p.root, "workspace", "profiles") }

// OutputsDir holds exported audit-trail files.
func (p Paths) OutputsDir() string { return filepath.Join(p.root, "outputs") }

// Exists reports whether the workspace has been created.
func (p Paths) Exists() bool {
	info, err := os.Stat(p.root)
	return err == nil && info.IsDir()
}

// Init creates the workspace directory tree.
func (p Paths) Init() error {
	for _, dir := range []string{
		p.InputsDir(),
		filepath.Join(p.root, "workspace"),
		p.ProfilesDir(),
		p.OutputsDir(),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// SaveInput retains a raw upload at path, as received.
func SaveInput(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating inputs dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("saving input %s: %w", filepath.Base(path), err)
	}
	return nil
}
