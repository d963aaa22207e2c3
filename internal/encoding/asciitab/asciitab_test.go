package asciitab

import (
	"strings"
	"testing"

	"github.com/homeputers/opentab/internal/model"
)

func scenario1Doc() *model.Document {
	return &model.Document{
		Header: model.Header{Format: "opentab", Version: "0.1", TempoBPM: 100, TimeSigNum: 4, TimeSigDenom: 4},
		Tracks: []model.Track{
			{ID: "gtr1", Tuning: []string{"E2", "A2", "D3", "G3", "B3", "E4"}},
		},
		Measures: []model.Measure{
			{Index: 1, Tracks: map[string]model.TrackMeasure{
				"gtr1": {Voices: map[string]model.Voice{
					"v1": {
						model.NoteEvent{Dur: model.Duration{Base: model.Quarter}, Note: model.NoteRef{String: 6, Fret: 3}},
						model.NoteEvent{Dur: model.Duration{Base: model.Quarter}, Note: model.NoteRef{String: 5, Fret: 5}},
						model.NoteEvent{Dur: model.Duration{Base: model.Quarter}, Note: model.NoteRef{String: 4, Fret: 5}},
						model.NoteEvent{Dur: model.Duration{Base: model.Quarter}, Note: model.NoteRef{String: 3, Fret: 3}},
					},
				}},
			}},
		},
	}
}

func TestRenderScenario1FirstAndLastRows(t *testing.T) {
	out := Render(scenario1Doc())
	lines := strings.Split(out, "\n")

	var rowLines []string
	for _, l := range lines {
		if strings.Contains(l, "|") {
			rowLines = append(rowLines, l)
		}
	}
	if len(rowLines) != 6 {
		t.Fatalf("expected 6 string rows, got %d: %v", len(rowLines), rowLines)
	}
	if rowLines[0] != "E4 |-------|" {
		t.Fatalf("expected first row %q, got %q", "E4 |-------|", rowLines[0])
	}
	if rowLines[5] != "E2 |3------|" {
		t.Fatalf("expected last row %q, got %q", "E2 |3------|", rowLines[5])
	}
}

func TestRenderFallsBackToNumberedStringLabels(t *testing.T) {
	doc := &model.Document{
		Tracks: []model.Track{{ID: "gtr1"}},
		Measures: []model.Measure{
			{Index: 1, Tracks: map[string]model.TrackMeasure{
				"gtr1": {Voices: map[string]model.Voice{
					"v1": {model.NoteEvent{Dur: model.Duration{Base: model.Quarter}, Note: model.NoteRef{String: 1, Fret: 0}}},
				}},
			}},
		},
	}
	out := Render(doc)
	if !strings.Contains(out, "S1 |") {
		t.Fatalf("expected fallback label S1, got:\n%s", out)
	}
}

func TestRenderChordColumnShowsEachStringFret(t *testing.T) {
	doc := &model.Document{
		Tracks: []model.Track{{ID: "gtr1", Tuning: []string{"E2", "A2", "D3", "G3", "B3", "E4"}}},
		Measures: []model.Measure{
			{Index: 1, Tracks: map[string]model.TrackMeasure{
				"gtr1": {Voices: map[string]model.Voice{
					"v1": {model.ChordEvent{Dur: model.Duration{Base: model.Quarter}, Notes: []model.NoteRef{
						{String: 4, Fret: 2}, {String: 3, Fret: 2}, {String: 2, Fret: 3},
					}}},
				}},
			}},
		},
	}
	out := Render(doc)
	for _, row := range []string{"B3 |3|", "G3 |2|", "D3 |2|"} {
		if !strings.Contains(out, row) {
			t.Fatalf("expected chord row %q, got:\n%s", row, out)
		}
	}
}

func TestRenderTrackHeaderUsesNameOrID(t *testing.T) {
	doc := &model.Document{
		Tracks:   []model.Track{{ID: "gtr1", Name: "Lead Guitar"}},
		Measures: nil,
	}
	out := Render(doc)
	if !strings.Contains(out, "# Track: Lead Guitar") {
		t.Fatalf("expected track name in header, got:\n%s", out)
	}
}
