package model

import "time"

// Rule maps a description pattern to a nominal/tax code pair. Rules are
// created by a reviewer or promoted from a confident decision; the store
// they live in is append-only.
type Rule struct {
	Name      string    `yaml:"name"`
	Pattern   string    `yaml:"pattern"` // regular expression, validated at creation
	Nominal   string    `yaml:"nominal"`
	TaxCode   string    `yaml:"tax_code"`
	CreatedAt time.Time `yaml:"created_at"`
}
