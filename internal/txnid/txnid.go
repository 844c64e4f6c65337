// Package txnid derives stable identifiers for imported records.
package txnid

import (
	"strings"

	"github.com/google/uuid"
)

// New returns a deterministic UUID for the given source parts. The same
// parts always produce the same ID, so re-importing an unchanged CSV
// never duplicates records.
func New(parts ...string) string {
	trimmed := make([]string, len(parts))
	for i, p := range parts {
		trimmed[i] = strings.TrimSpace(p)
	}
	key := strings.Join(trimmed, "|")
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}
