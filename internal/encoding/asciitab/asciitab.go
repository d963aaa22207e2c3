// Package asciitab renders a model.Document as a fixed-width, multi-line
// monospaced tablature block, one per track. Rhythm is deliberately lost in
// this view; it exists to show fret positions, not timing.
package asciitab

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/homeputers/opentab/internal/model"
)

// Render writes one ASCII tab block per track in the document, in header
// declaration order.
func Render(doc *model.Document) string {
	var out strings.Builder
	for _, tr := range doc.Tracks {
		out.WriteString(renderTrack(doc, tr))
	}
	return out.String()
}

func renderTrack(doc *model.Document, tr model.Track) string {
	var out strings.Builder
	stringCount := doc.StringCount(tr.ID)
	labels := stringLabels(tr, stringCount)

	name := tr.Name
	if name == "" {
		name = tr.ID
	}
	fmt.Fprintf(&out, "# Track: %s\n", name)

	rows := make([]strings.Builder, stringCount)

	for _, m := range doc.SortedMeasures() {
		tm, ok := m.Tracks[tr.ID]
		if !ok {
			continue
		}
		voice := primaryVoice(tm)

		columns := make([][]string, len(voice))
		widths := make([]int, len(voice))
		for i, ev := range voice {
			columns[i] = eventColumn(ev, stringCount)
			w := 1
			for _, cell := range columns[i] {
				if len(cell) > w {
					w = len(cell)
				}
			}
			widths[i] = w
		}

		out.WriteString(fmt.Sprintf("// m%d\n", m.Index))
		for s := 0; s < stringCount; s++ {
			var row strings.Builder
			for i := range voice {
				cell := columns[i][s]
				row.WriteString(padDash(cell, widths[i]))
				if i != len(voice)-1 {
					row.WriteByte('-')
				}
			}
			fmt.Fprintf(&out, "%s |%s|\n", labels[s], row.String())
		}
		_ = rows
	}
	return out.String()
}

// eventColumn returns one cell per string for ev: the fret (left-aligned,
// later padded with dashes) for strings the event touches, "-" for the
// rest.
func eventColumn(ev model.Event, stringCount int) []string {
	cells := make([]string, stringCount)
	for i := range cells {
		cells[i] = "-"
	}
	switch e := ev.(type) {
	case model.NoteEvent:
		if e.Note.String >= 1 && e.Note.String <= stringCount {
			cells[e.Note.String-1] = strconv.Itoa(e.Note.Fret)
		}
	case model.ChordEvent:
		for _, n := range e.Notes {
			if n.String >= 1 && n.String <= stringCount {
				cells[n.String-1] = strconv.Itoa(n.Fret)
			}
		}
	case model.RestEvent:
		// every string already defaults to "-"
	}
	return cells
}

func padDash(cell string, width int) string {
	if len(cell) >= width {
		return cell
	}
	return cell + strings.Repeat("-", width-len(cell))
}

// primaryVoice picks the voice rendered for a track's measure: "v1" if
// present, otherwise the first voice in map order. The ASCII view shows one
// line per string, not one per voice; secondary voices are a future
// extension.
func primaryVoice(tm model.TrackMeasure) model.Voice {
	if v, ok := tm.Voices["v1"]; ok {
		return v
	}
	for _, v := range tm.Voices {
		return v
	}
	return nil
}

// stringLabels returns row labels ordered high string first: reversed
// tuning when declared, otherwise "S1".."SN" with S1 as the highest string.
func stringLabels(tr model.Track, stringCount int) []string {
	labels := make([]string, stringCount)
	if len(tr.Tuning) == stringCount {
		for i := 0; i < stringCount; i++ {
			labels[i] = tr.Tuning[stringCount-1-i]
		}
		return labels
	}
	for i := 0; i < stringCount; i++ {
		labels[i] = fmt.Sprintf("S%d", i+1)
	}
	return labels
}
