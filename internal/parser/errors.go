package parser

import "fmt"

// ParseError is a positioned grammar violation. Line is 1-based; it is 0
// when the error is not tied to a specific line (e.g. a missing delimiter
// or an unsupported document-wide format/version).
type ParseError struct {
	Line    int
	Column  int
	Kind    string
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%d:%d: %s: %s", e.Line, e.Column, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}
