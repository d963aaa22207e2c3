package svgrender

import (
	"strings"
	"testing"

	"github.com/homeputers/opentab/internal/model"
)

func sampleDoc() *model.Document {
	return &model.Document{
		Tracks: []model.Track{{ID: "gtr1", Tuning: []string{"E2", "A2", "D3", "G3", "B3", "E4"}}},
		Measures: []model.Measure{
			{Index: 1, Tracks: map[string]model.TrackMeasure{
				"gtr1": {Voices: map[string]model.Voice{
					"v1": {model.NoteEvent{Dur: model.Duration{Base: model.Quarter}, Note: model.NoteRef{String: 6, Fret: 3}}},
				}},
			}},
		},
	}
}

func TestRenderProducesWellFormedSVGRoot(t *testing.T) {
	out := Render(sampleDoc())
	if !strings.HasPrefix(out, "<svg ") {
		t.Fatalf("expected output to start with <svg, got: %q", out[:min(30, len(out))])
	}
	if !strings.HasSuffix(strings.TrimSpace(out), "</svg>") {
		t.Fatalf("expected output to end with </svg>, got: %q", out)
	}
}

func TestRenderIncludesEveryAsciiTextLine(t *testing.T) {
	out := Render(sampleDoc())
	if strings.Count(out, "<text") < 6 {
		t.Fatalf("expected at least 6 <text> lines for a 6-string track, got output:\n%s", out)
	}
}

func TestRenderColorsDifferByStringRow(t *testing.T) {
	out := Render(sampleDoc())
	colors := map[string]bool{}
	for _, l := range strings.Split(out, "\n") {
		if idx := strings.Index(l, `fill="`); idx >= 0 {
			rest := l[idx+len(`fill="`):]
			end := strings.Index(rest, `"`)
			if end > 0 {
				colors[rest[:end]] = true
			}
		}
	}
	if len(colors) < 2 {
		t.Fatalf("expected multiple distinct fill colors across rows, got %v", colors)
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
