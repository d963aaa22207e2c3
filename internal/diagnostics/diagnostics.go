// Package diagnostics implements OpenTab's semantic validator: a
// best-effort, never-throwing scan of raw source text that reports
// line-addressed problems for editor integration, without requiring a
// successful parse.
package diagnostics

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Severity classifies a Diagnostic. Only SeverityError is produced today;
// SeverityWarning is reserved for future, non-fatal findings.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is one problem found in a source document, addressed by a
// 1-based line and 0-based column range.
type Diagnostic struct {
	Message  string
	Line     int
	StartCol int
	EndCol   int
	Severity Severity
}

var directivePattern = regexp.MustCompile(`^@track\s+(\S+)(?:\s+voice\s+(\S+))?$`)
var measureLinePattern = regexp.MustCompile(`^m(\d+):\s*\|(.*)\|\s*(#.*)?$`)
var durationPattern = regexp.MustCompile(`^([whqest])(\.{0,2})(?:/(\d+))?$`)
var noteBodyPattern = regexp.MustCompile(`^(\d+):(\d+)((?:(?:h|p|/|\\)\d+|~)*)$`)

// Validate scans src and returns every diagnostic it can find. It never
// returns an error; a document with no problems yields an empty slice.
func Validate(src string) []Diagnostic {
	var diags []Diagnostic

	normalized := strings.ReplaceAll(src, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	lines := strings.Split(normalized, "\n")

	delimiterIdx := -1
	for i, l := range lines {
		if strings.TrimSpace(l) == "---" {
			delimiterIdx = i
			break
		}
	}
	if delimiterIdx == -1 {
		diags = append(diags, Diagnostic{
			Message:  "missing \"---\" header delimiter",
			Line:     len(lines),
			Severity: SeverityError,
		})
		delimiterIdx = len(lines)
	}

	diags = append(diags, validateHeader(lines[:delimiterIdx])...)
	if delimiterIdx < len(lines) {
		diags = append(diags, validateBody(lines[delimiterIdx+1:], delimiterIdx+1)...)
	}
	return diags
}

func validateHeader(lines []string) []Diagnostic {
	var diags []Diagnostic
	sawFormat, sawVersion := false, false
	for _, l := range lines {
		trimmed := strings.TrimSpace(l)
		if strings.HasPrefix(trimmed, "format") && strings.Contains(trimmed, "=") {
			sawFormat = true
		}
		if strings.HasPrefix(trimmed, "version") && strings.Contains(trimmed, "=") {
			sawVersion = true
		}
	}
	if !sawFormat {
		diags = append(diags, Diagnostic{Message: "missing \"format\" key in header", Line: 1, Severity: SeverityError})
	}
	if !sawVersion {
		diags = append(diags, Diagnostic{Message: "missing \"version\" key in header", Line: 1, Severity: SeverityError})
	}
	return diags
}

func validateBody(lines []string, lineOffset int) []Diagnostic {
	var diags []Diagnostic
	haveDirective := false

	for i, l := range lines {
		lineNum := lineOffset + i + 1
		trimmed := strings.TrimSpace(l)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if directivePattern.MatchString(trimmed) {
			haveDirective = true
			continue
		}

		m := measureLinePattern.FindStringSubmatch(l)
		if m == nil {
			if strings.HasPrefix(trimmed, "m") {
				diags = append(diags, Diagnostic{
					Message:  fmt.Sprintf("malformed measure line %q", l),
					Line:     lineNum,
					Severity: SeverityError,
				})
			} else {
				diags = append(diags, Diagnostic{
					Message:  fmt.Sprintf("unrecognized line %q", l),
					Line:     lineNum,
					Severity: SeverityError,
				})
			}
			continue
		}

		if !haveDirective {
			diags = append(diags, Diagnostic{
				Message:  "Measure defined before selecting track/voice",
				Line:     lineNum,
				Severity: SeverityError,
			})
		}

		if _, convErr := strconv.Atoi(m[1]); convErr != nil {
			diags = append(diags, Diagnostic{
				Message:  fmt.Sprintf("invalid measure index %q", m[1]),
				Line:     lineNum,
				Severity: SeverityError,
			})
		}

		diags = append(diags, validateMeasureContent(m[2], lineNum)...)
	}
	return diags
}

// validateMeasureContent re-tokenizes a measure's content with the same
// bracket-aware rule the parser uses, and reports a diagnostic for the
// first structural problem it finds: unbalanced brackets, a malformed
// duration token, or a malformed note/chord/rest token.
func validateMeasureContent(content string, lineNum int) []Diagnostic {
	tokens, startCols, err := tokenizeWithColumns(content)
	if err != nil {
		return []Diagnostic{{
			Message:  "Unbalanced brackets",
			Line:     lineNum,
			Severity: SeverityError,
		}}
	}

	var diags []Diagnostic
	haveDuration := false
	for i, tok := range tokens {
		if durationPattern.MatchString(tok) {
			haveDuration = true
			continue
		}
		if !haveDuration {
			diags = append(diags, Diagnostic{
				Message:  fmt.Sprintf("event token %q appears before any duration is set", tok),
				Line:     lineNum,
				StartCol: startCols[i],
				EndCol:   startCols[i] + len(tok),
				Severity: SeverityError,
			})
			continue
		}
		if d := validateEventToken(tok, lineNum, startCols[i]); d != nil {
			diags = append(diags, *d)
		}
	}
	return diags
}

func validateEventToken(tok string, lineNum, col int) *Diagnostic {
	switch {
	case tok == "r" || strings.HasPrefix(tok, "r{"):
		return nil
	case strings.HasPrefix(tok, "("):
		body := stripBracesSuffix(trimOneLayer(tok, '(', ')'))
		if !noteBodyPattern.MatchString(body) {
			return &Diagnostic{
				Message:  fmt.Sprintf("malformed note token %q", tok),
				Line:     lineNum,
				StartCol: col,
				EndCol:   col + len(tok),
				Severity: SeverityError,
			}
		}
		return nil
	case strings.HasPrefix(tok, "["):
		return nil
	default:
		return &Diagnostic{
			Message:  fmt.Sprintf("unrecognized token %q", tok),
			Line:     lineNum,
			StartCol: col,
			EndCol:   col + len(tok),
			Severity: SeverityError,
		}
	}
}

func trimOneLayer(tok string, open, close byte) string {
	depth := 0
	end := -1
	for i := 0; i < len(tok); i++ {
		switch tok[i] {
		case open:
			depth++
		case close:
			depth--
		}
		if depth == 0 {
			end = i
			break
		}
	}
	if end == -1 || len(tok) == 0 {
		return tok
	}
	return tok[1:end]
}

func stripBracesSuffix(body string) string {
	if idx := strings.Index(body, "{"); idx >= 0 {
		return body[:idx]
	}
	return body
}

// tokenizeWithColumns is the same bracket-aware tokenizer the parser uses,
// but additionally reports each token's 0-based start column so diagnostics
// can be precisely addressed.
func tokenizeWithColumns(s string) ([]string, []int, error) {
	var tokens []string
	var cols []int
	var cur strings.Builder
	var closers []byte
	tokenStart := -1

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cols = append(cols, tokenStart)
			cur.Reset()
			tokenStart = -1
		}
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '[':
			closers = append(closers, ']')
		case '(':
			closers = append(closers, ')')
		case '{':
			closers = append(closers, '}')
		case ']', ')', '}':
			if len(closers) == 0 || closers[len(closers)-1] != c {
				return nil, nil, fmt.Errorf("unbalanced brackets")
			}
			closers = closers[:len(closers)-1]
		}
		if (c == ' ' || c == '\t') && len(closers) == 0 {
			flush()
			continue
		}
		if tokenStart == -1 {
			tokenStart = i
		}
		cur.WriteByte(c)
	}
	if len(closers) != 0 {
		return nil, nil, fmt.Errorf("unbalanced brackets")
	}
	flush()
	return tokens, cols, nil
}
