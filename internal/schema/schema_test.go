package schema

import (
	"strings"
	"testing"

	"github.com/homeputers/opentab/internal/model"
)

func validDoc() *model.Document {
	return &model.Document{
		Header: model.Header{Format: "opentab", Version: "0.1", TempoBPM: 120, TimeSigNum: 4, TimeSigDenom: 4, Swing: model.SwingNone},
		Tracks: []model.Track{
			{ID: "gtr1", Tuning: []string{"E2", "A2", "D3", "G3", "B3", "E4"}},
		},
		Measures: []model.Measure{
			{Index: 1, Tracks: map[string]model.TrackMeasure{
				"gtr1": {Voices: map[string]model.Voice{
					"v1": {model.NoteEvent{Dur: model.Duration{Base: model.Quarter}, Note: model.NoteRef{String: 6, Fret: 0}}},
				}},
			}},
		},
	}
}

func TestValidateAcceptsWellFormedDocument(t *testing.T) {
	res := Validate(validDoc())
	if !res.OK {
		t.Fatalf("expected OK, got errors: %+v", res.Errors)
	}
}

func TestValidateRejectsWrongFormat(t *testing.T) {
	doc := validDoc()
	doc.Header.Format = "not-opentab"
	res := Validate(doc)
	if res.OK {
		t.Fatal("expected validation failure")
	}
	assertHasPath(t, res, "/header/format")
}

func TestValidateRejectsMalformedTuning(t *testing.T) {
	doc := validDoc()
	doc.Tracks[0].Tuning = []string{"E2", "nonsense"}
	res := Validate(doc)
	if res.OK {
		t.Fatal("expected validation failure")
	}
	assertHasPath(t, res, "/tracks/0/tuning/1")
}

func TestValidateRejectsDuplicateTrackIDs(t *testing.T) {
	doc := validDoc()
	doc.Tracks = append(doc.Tracks, model.Track{ID: "gtr1"})
	res := Validate(doc)
	if res.OK {
		t.Fatal("expected validation failure")
	}
}

func TestValidateRejectsNegativeCapo(t *testing.T) {
	doc := validDoc()
	doc.Tracks[0].Capo = -1
	res := Validate(doc)
	if res.OK {
		t.Fatal("expected validation failure")
	}
}

func TestValidateRejectsChordWithOneNote(t *testing.T) {
	doc := validDoc()
	doc.Measures[0].Tracks["gtr1"].Voices["v1"] = model.Voice{
		model.ChordEvent{Dur: model.Duration{Base: model.Quarter}, Notes: []model.NoteRef{{String: 1, Fret: 0}}},
	}
	res := Validate(doc)
	if res.OK {
		t.Fatal("expected validation failure for a single-note chord")
	}
}

func TestValidateRejectsMeasureReferencingUnknownTrack(t *testing.T) {
	doc := validDoc()
	doc.Measures[0].Tracks["ghost"] = model.TrackMeasure{Voices: map[string]model.Voice{}}
	res := Validate(doc)
	if res.OK {
		t.Fatal("expected validation failure for an unknown track reference")
	}
}

func TestResultMarshalsWithJSONKeys(t *testing.T) {
	res := Validate(validDoc())
	b, err := res.MarshalJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, `"ok"`) || !strings.Contains(s, `"errors"`) {
		t.Fatalf("expected ok/errors keys in JSON, got %s", s)
	}
}

func assertHasPath(t *testing.T, res Result, path string) {
	t.Helper()
	for _, e := range res.Errors {
		if e.Path == path {
			return
		}
	}
	t.Fatalf("expected an error at path %q, got %+v", path, res.Errors)
}
