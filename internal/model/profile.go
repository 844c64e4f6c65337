package model

// ProfileColumn maps one review-item field to one output column.
type ProfileColumn struct {
	Field  string `yaml:"field"`
	Header string `yaml:"header"`
}

// ExportProfile is a named audit-trail column layout. Configuration
// data only; field resolution lives in the export engine.
type ExportProfile struct {
	Name    string          `yaml:"name"`
	Columns []ProfileColumn `yaml:"columns"`
}
