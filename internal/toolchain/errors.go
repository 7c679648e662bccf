package toolchain

import "fmt"

// ParseError reports text that is not a valid version or selector.
type ParseError struct {
	Input string
	What  string
}

func (e *ParseError) Error() string {
	what := e.What
	if what == "" {
		what = "selector"
	}
	return fmt.Sprintf("invalid toolchain %s: %q", what, e.Input)
}
