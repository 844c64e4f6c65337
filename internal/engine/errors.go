package engine

import "fmt"

// UnknownClientError reports a slug with no workspace behind it.
type UnknownClientError struct {
	Slug string
}

func (e *UnknownClientError) Error() string {
	return fmt.Sprintf("unknown client %q", e.Slug)
}
