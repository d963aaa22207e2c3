package parser

import (
	"strings"
	"testing"

	"github.com/homeputers/opentab/internal/model"
)

func TestParseMinimalDocument(t *testing.T) {
	src := `format = "opentab"
version = "0.1"
title = "Minimal"
tempo_bpm = 120
time_signature = "4/4"

[[tracks]]
id = "gtr1"
name = "Guitar"
tuning = ["E2", "A2", "D3", "G3", "B3", "E4"]
---
@track gtr1
m1: | q (6:0) q (5:0) q (4:0) q (3:0) |
`
	doc, err := Parse(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Header.Title != "Minimal" {
		t.Fatalf("expected title Minimal, got %q", doc.Header.Title)
	}
	if len(doc.Tracks) != 1 || doc.Tracks[0].ID != "gtr1" {
		t.Fatalf("expected single track gtr1, got %+v", doc.Tracks)
	}
	if len(doc.Measures) != 1 {
		t.Fatalf("expected 1 measure, got %d", len(doc.Measures))
	}
	voice := doc.Measures[0].Tracks["gtr1"].Voices["v1"]
	if len(voice) != 4 {
		t.Fatalf("expected 4 events, got %d", len(voice))
	}
	for i, ev := range voice {
		if ev.Kind() != model.KindNote {
			t.Fatalf("event %d: expected note, got %v", i, ev.Kind())
		}
		if ev.GetDuration().Base != model.Quarter {
			t.Fatalf("event %d: expected quarter duration, got %v", i, ev.GetDuration().Base)
		}
	}
	note0 := voice[0].(model.NoteEvent)
	if note0.Note.String != 6 || note0.Note.Fret != 0 {
		t.Fatalf("expected string 6 fret 0, got %+v", note0.Note)
	}
}

func TestParseDurationCarryAcrossTokens(t *testing.T) {
	src := `format = "opentab"
version = "0.1"
---
@track gtr1
m1: | q (6:0) (6:1) (6:2) (6:3) |
`
	doc, err := Parse(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	voice := doc.Measures[0].Tracks["gtr1"].Voices["v1"]
	if len(voice) != 4 {
		t.Fatalf("expected 4 events carrying the same duration, got %d", len(voice))
	}
	for i, ev := range voice {
		if ev.GetDuration().Base != model.Quarter {
			t.Fatalf("event %d: duration did not carry, got %v", i, ev.GetDuration().Base)
		}
	}
}

func TestParseChordAndRestWithTechniqueChain(t *testing.T) {
	src := `format = "opentab"
version = "0.1"
---
@track gtr1
m1: | h [ (6:3) (5:5) ] q (4:2h4p2) q r |
`
	doc, err := Parse(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	voice := doc.Measures[0].Tracks["gtr1"].Voices["v1"]
	if len(voice) != 3 {
		t.Fatalf("expected 3 events, got %d", len(voice))
	}

	chord, ok := voice[0].(model.ChordEvent)
	if !ok {
		t.Fatalf("expected first event to be a chord, got %T", voice[0])
	}
	if len(chord.Notes) != 2 {
		t.Fatalf("expected 2 notes in chord, got %d", len(chord.Notes))
	}
	if chord.Dur.Base != model.Half {
		t.Fatalf("expected half-note chord duration, got %v", chord.Dur.Base)
	}

	note, ok := voice[1].(model.NoteEvent)
	if !ok {
		t.Fatalf("expected second event to be a note, got %T", voice[1])
	}
	if len(note.Note.Techniques) != 2 {
		t.Fatalf("expected 2 chained techniques, got %d", len(note.Note.Techniques))
	}
	if note.Note.Techniques[0].Kind != model.TechHammerOn || note.Note.Techniques[0].FromFret != 2 || note.Note.Techniques[0].ToFret != 4 {
		t.Fatalf("unexpected first technique: %+v", note.Note.Techniques[0])
	}
	if note.Note.Techniques[1].Kind != model.TechPullOff || note.Note.Techniques[1].FromFret != 4 || note.Note.Techniques[1].ToFret != 2 {
		t.Fatalf("unexpected second technique: %+v", note.Note.Techniques[1])
	}

	if voice[2].Kind() != model.KindRest {
		t.Fatalf("expected third event to be a rest, got %v", voice[2].Kind())
	}
}

func TestParseMeasureBeforeDirectiveReportsExactMessage(t *testing.T) {
	src := `format = "opentab"
version = "0.1"
---
m1: | q (6:0) |
`
	_, err := Parse(src)
	if err == nil {
		t.Fatal("expected an error")
	}
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if pe.Message != "Measure defined before selecting track/voice" {
		t.Fatalf("unexpected message: %q", pe.Message)
	}
}

func TestParseMissingDelimiter(t *testing.T) {
	src := "format = \"opentab\"\nversion = \"0.1\"\n"
	_, err := Parse(src)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "---") {
		t.Fatalf("expected error to mention the delimiter, got %q", err.Error())
	}
}

func TestParseUnbalancedBracketsReported(t *testing.T) {
	src := `format = "opentab"
version = "0.1"
---
@track gtr1
m1: | q (6:3 ] |
`
	_, err := Parse(src)
	if err == nil {
		t.Fatal("expected an error")
	}
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if pe.Kind != "unbalanced_brackets" {
		t.Fatalf("expected unbalanced_brackets kind, got %q", pe.Kind)
	}
}

func TestParseMultipleMeasuresSortedByIndex(t *testing.T) {
	src := `format = "opentab"
version = "0.1"
---
@track gtr1
m2: | q (6:0) |
m1: | q (6:1) |
`
	doc, err := Parse(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Measures) != 2 {
		t.Fatalf("expected 2 measures, got %d", len(doc.Measures))
	}
	if doc.Measures[0].Index != 1 || doc.Measures[1].Index != 2 {
		t.Fatalf("expected measures sorted by index, got %d then %d", doc.Measures[0].Index, doc.Measures[1].Index)
	}
}

func TestParseSecondVoiceTracksIndependently(t *testing.T) {
	src := `format = "opentab"
version = "0.1"
---
@track gtr1
m1: | q (6:0) q (6:1) q (6:2) q (6:3) |
@track gtr1 voice v2
m1: | h (1:0) h (1:2) |
`
	doc, err := Parse(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tm := doc.Measures[0].Tracks["gtr1"]
	if len(tm.Voices["v1"]) != 4 {
		t.Fatalf("expected 4 events in v1, got %d", len(tm.Voices["v1"]))
	}
	if len(tm.Voices["v2"]) != 2 {
		t.Fatalf("expected 2 events in v2, got %d", len(tm.Voices["v2"]))
	}
}

func TestParseLastWriterWinsPerMeasureTrackVoice(t *testing.T) {
	src := `format = "opentab"
version = "0.1"
---
@track gtr1
m1: | q (6:0) |
m1: | q (6:5) |
`
	doc, err := Parse(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	voice := doc.Measures[0].Tracks["gtr1"].Voices["v1"]
	if len(voice) != 1 {
		t.Fatalf("expected the second measure line to replace the first, got %d events", len(voice))
	}
	note := voice[0].(model.NoteEvent)
	if note.Note.Fret != 5 {
		t.Fatalf("expected last-writer-wins fret 5, got %d", note.Note.Fret)
	}
}

func TestParseRejectsDuplicateTrackIDs(t *testing.T) {
	src := `format = "opentab"
version = "0.1"

[[tracks]]
id = "gtr1"

[[tracks]]
id = "gtr1"
---
@track gtr1
m1: | q r |
`
	_, err := Parse(src)
	if err == nil {
		t.Fatal("expected an error for duplicate track ids")
	}
	pe, ok := err.(*ParseError)
	if !ok || pe.Kind != "duplicate_track_id" {
		t.Fatalf("expected duplicate_track_id ParseError, got %v", err)
	}
}

func TestParseRejectsNonConformingTimeSigDenominator(t *testing.T) {
	src := `format = "opentab"
version = "0.1"
time_signature = "4/6"
---
@track gtr1
m1: | q r |
`
	_, err := Parse(src)
	if err == nil {
		t.Fatal("expected an error for a non-conforming time signature denominator")
	}
}

func TestParseCRLFNormalized(t *testing.T) {
	src := "format = \"opentab\"\r\nversion = \"0.1\"\r\n---\r\n@track gtr1\r\nm1: | q r |\r\n"
	doc, err := Parse(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Measures) != 1 {
		t.Fatalf("expected 1 measure, got %d", len(doc.Measures))
	}
}
