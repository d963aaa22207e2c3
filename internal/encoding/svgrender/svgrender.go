// Package svgrender wraps the ASCII tab rendering (internal/encoding/asciitab)
// in an SVG document: one fixed-width monospaced <text> element per output
// line, with each string's label and row tinted a stable hue so a reader
// can track a string across measures at a glance.
package svgrender

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/homeputers/opentab/internal/encoding/asciitab"
	"github.com/homeputers/opentab/internal/model"
)

const (
	fontSize   = 14
	lineHeight = 18
	charWidth  = 8.4
	leftMargin = 10
	topMargin  = 20
)

// Render produces a complete SVG document for doc, reusing the ASCII
// encoder's text layout and coloring each string row by its position.
func Render(doc *model.Document) string {
	ascii := asciitab.Render(doc)
	lines := strings.Split(strings.TrimRight(ascii, "\n"), "\n")

	maxLen := 0
	for _, l := range lines {
		if len(l) > maxLen {
			maxLen = len(l)
		}
	}

	width := leftMargin*2 + int(float64(maxLen)*charWidth)
	height := topMargin + len(lines)*lineHeight + topMargin/2

	stringCount := maxStringCount(doc)
	hues := stringHues(stringCount)

	var out strings.Builder
	fmt.Fprintf(&out, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" font-family="monospace" font-size="%d">`, width, height, fontSize)
	out.WriteByte('\n')
	fmt.Fprintf(&out, `<rect width="100%%" height="100%%" fill="white"/>`)
	out.WriteByte('\n')

	stringRow := 0
	for i, l := range lines {
		color := "#000000"
		if isStringRow(l) {
			color = hues[stringRow%len(hues)]
			stringRow++
		}
		y := topMargin + i*lineHeight
		fmt.Fprintf(&out, `<text x="%d" y="%d" fill="%s" xml:space="preserve">%s</text>`, leftMargin, y, color, escapeXML(l))
		out.WriteByte('\n')
	}
	out.WriteString("</svg>\n")
	return out.String()
}

// isStringRow reports whether l looks like a rendered tab row (contains the
// "|...|" shape asciitab emits for string lines, as opposed to a "# Track"
// or "// mN" header line).
func isStringRow(l string) bool {
	return strings.Contains(l, "|") && !strings.HasPrefix(strings.TrimSpace(l), "#") && !strings.HasPrefix(strings.TrimSpace(l), "//")
}

func maxStringCount(doc *model.Document) int {
	max := 6
	for _, tr := range doc.Tracks {
		if n := doc.StringCount(tr.ID); n > max {
			max = n
		}
	}
	return max
}

// stringHues generates n evenly spaced, perceptually balanced hues via the
// HCL color space, the same approach schollz-221e's TUI uses for per-channel
// track coloring.
func stringHues(n int) []string {
	if n <= 0 {
		n = 1
	}
	hues := make([]string, n)
	for i := 0; i < n; i++ {
		hue := float64(i) * (360.0 / float64(n))
		hues[i] = colorful.Hcl(hue, 0.5, 0.6).Clamped().Hex()
	}
	return hues
}

func escapeXML(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
	)
	return replacer.Replace(s)
}
