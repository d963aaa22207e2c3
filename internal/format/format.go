// Package format implements the OpenTab pretty-printer: a text-to-text
// canonicalizer that never builds a model.Document. It locates the "---"
// delimiter, trims and blank-line-normalizes the header block, and
// re-tokenizes each measure line with bracket-aware splitting so that
// duration-carry is expanded into an explicit token before every event.
package format

import (
	"fmt"
	"regexp"
	"strings"
)

var measureLinePattern = regexp.MustCompile(`^\s*m(\d+):\s*\|(.*)\|\s*(#.*)?$`)
var durationPattern = regexp.MustCompile(`^([whqest])(\.{0,2})(?:/(\d+))?$`)

// Format canonicalizes src. It returns an error only when the "---"
// delimiter is missing or a measure line's content cannot be tokenized
// (unbalanced brackets); anything else is passed through unchanged, which
// keeps Format safe to run on text the semantic validator has not yet
// approved.
func Format(src string) (string, error) {
	normalized := strings.ReplaceAll(src, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	lines := strings.Split(normalized, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		// A final newline terminates the last line; it is not an extra
		// empty line, and every emitted line gets its own newline below.
		lines = lines[:n-1]
	}

	delimiterIdx := -1
	for i, l := range lines {
		if strings.TrimSpace(l) == "---" {
			delimiterIdx = i
			break
		}
	}
	if delimiterIdx == -1 {
		return "", fmt.Errorf("missing \"---\" header delimiter")
	}

	headerOut := formatHeaderBlock(lines[:delimiterIdx])
	bodyOut, err := formatBodyBlock(lines[delimiterIdx+1:])
	if err != nil {
		return "", err
	}

	var out strings.Builder
	for _, l := range headerOut {
		out.WriteString(l)
		out.WriteByte('\n')
	}
	out.WriteString("---\n")
	out.WriteString(bodyOut)
	return out.String(), nil
}

// formatHeaderBlock trims trailing whitespace per line and drops leading and
// trailing blank lines, preserving everything else (including comments and
// unknown keys) verbatim.
func formatHeaderBlock(lines []string) []string {
	trimmed := make([]string, len(lines))
	for i, l := range lines {
		trimmed[i] = strings.TrimRight(l, " \t")
	}
	start := 0
	for start < len(trimmed) && trimmed[start] == "" {
		start++
	}
	end := len(trimmed)
	for end > start && trimmed[end-1] == "" {
		end--
	}
	return trimmed[start:end]
}

func formatBodyBlock(lines []string) (string, error) {
	var out strings.Builder
	for _, l := range lines {
		if m := measureLinePattern.FindStringSubmatch(l); m != nil {
			canonical, err := formatMeasureLine(m[1], m[2], m[3])
			if err != nil {
				return "", err
			}
			out.WriteString(canonical)
			out.WriteByte('\n')
			continue
		}
		out.WriteString(strings.TrimRight(l, " \t"))
		out.WriteByte('\n')
	}
	return out.String(), nil
}

// formatMeasureLine re-tokenizes a measure's content and expands
// duration-carry: each bare duration token is re-emitted immediately before
// every event token it covers, so the canonical form never relies on
// positional state.
func formatMeasureLine(index, content, comment string) (string, error) {
	tokens, err := tokenizeBracketAware(strings.TrimSpace(content))
	if err != nil {
		return "", fmt.Errorf("m%s: %w", index, err)
	}

	var out []string
	var currentDur string
	for _, tok := range tokens {
		if dm := durationPattern.FindStringSubmatch(tok); dm != nil {
			// Any dotted duration is re-emitted with exactly one dot.
			currentDur = dm[1]
			if dm[2] != "" {
				currentDur += "."
			}
			if dm[3] != "" {
				currentDur += "/" + dm[3]
			}
			continue
		}
		if currentDur != "" {
			out = append(out, currentDur)
		}
		out = append(out, tok)
	}

	line := fmt.Sprintf("m%s: | %s |", index, strings.Join(out, " "))
	if strings.Join(out, " ") == "" {
		line = fmt.Sprintf("m%s: | |", index)
	}
	if comment != "" {
		line += " " + comment
	}
	return line, nil
}

// tokenizeBracketAware splits s on runs of whitespace, except that
// whitespace inside an open '[', '(' or '{' does not split a token. Each
// closer must match the most recently opened bracket. This mirrors the
// parser's own tokenizer; the formatter keeps an independent copy so it
// never depends on a successful parse.
func tokenizeBracketAware(s string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	var closers []byte

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
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
				return nil, fmt.Errorf("unbalanced brackets")
			}
			closers = closers[:len(closers)-1]
		}
		if (c == ' ' || c == '\t') && len(closers) == 0 {
			flush()
			continue
		}
		cur.WriteByte(c)
	}
	if len(closers) != 0 {
		return nil, fmt.Errorf("unbalanced brackets")
	}
	flush()
	return tokens, nil
}
