// Package musicxml renders a model.Document as score-partwise MusicXML
// 3.1, with TAB-clef staff details and fret/string notations per note.
//
// The element hierarchy is adapted from the teacher pack's reference
// musicxml_generator.go (ScorePartwise/PartList/ScorePart/Part/Measure/
// Attributes/Key/Time/Clef/NoteXML/Pitch), extended with the TAB-specific
// staff-tuning and technical-notation elements that file omits. The
// document-level Marshal entry point follows the teacher's own tonelib.go
// idiom instead: manual xml.Header prologue plus a post-pass that turns
// empty elements used as booleans (<chord></chord>, <dot></dot>) into
// self-closing tags, since encoding/xml never emits those on its own.
package musicxml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/homeputers/opentab/internal/model"
	"github.com/homeputers/opentab/internal/pitch"
)

const divisionsPerQuarter = 480

// ScorePartwise is the document root.
type ScorePartwise struct {
	XMLName  xml.Name   `xml:"score-partwise"`
	Version  string     `xml:"version,attr"`
	PartList PartList   `xml:"part-list"`
	Parts    []XMLPart  `xml:"part"`
}

type PartList struct {
	ScoreParts []ScorePart `xml:"score-part"`
}

type ScorePart struct {
	ID       string   `xml:"id,attr"`
	PartName PartName `xml:"part-name"`
}

type PartName struct {
	Text string `xml:",chardata"`
}

type XMLPart struct {
	ID       string      `xml:"id,attr"`
	Measures []XMLMeasure `xml:"measure"`
}

type XMLMeasure struct {
	Number     int          `xml:"number,attr"`
	Attributes *Attributes  `xml:"attributes,omitempty"`
	Notes      []NoteOrBackup
}

// NoteOrBackup lets a measure interleave <note> and <backup> elements in
// emission order, which a plain []NoteXML field cannot express.
type NoteOrBackup struct {
	Note   *NoteXML
	Backup *Backup
}

func (m XMLMeasure) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Attr = []xml.Attr{{Name: xml.Name{Local: "number"}, Value: fmt.Sprintf("%d", m.Number)}}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if m.Attributes != nil {
		if err := e.EncodeElement(m.Attributes, xml.StartElement{Name: xml.Name{Local: "attributes"}}); err != nil {
			return err
		}
	}
	for _, nb := range m.Notes {
		if nb.Backup != nil {
			if err := e.EncodeElement(nb.Backup, xml.StartElement{Name: xml.Name{Local: "backup"}}); err != nil {
				return err
			}
		}
		if nb.Note != nil {
			if err := e.EncodeElement(nb.Note, xml.StartElement{Name: xml.Name{Local: "note"}}); err != nil {
				return err
			}
		}
	}
	return e.EncodeToken(start.End())
}

type Backup struct {
	Duration int `xml:"duration"`
}

type Attributes struct {
	Divisions    int           `xml:"divisions"`
	Key          Key           `xml:"key"`
	Time         Time          `xml:"time"`
	Clef         Clef          `xml:"clef"`
	StaffDetails *StaffDetails `xml:"staff-details,omitempty"`
}

type Key struct {
	Fifths int `xml:"fifths"`
}

type Time struct {
	Beats    string `xml:"beats"`
	BeatType string `xml:"beat-type"`
}

type Clef struct {
	Sign string `xml:"sign"`
	Line int    `xml:"line"`
}

type StaffDetails struct {
	StaffLines   int            `xml:"staff-lines"`
	StaffTunings []StaffTuning  `xml:"staff-tuning"`
}

type StaffTuning struct {
	Line          int    `xml:"line,attr"`
	TuningStep    string `xml:"tuning-step"`
	TuningAlter   *int   `xml:"tuning-alter,omitempty"`
	TuningOctave  int    `xml:"tuning-octave"`
}

type NoteXML struct {
	Chord           *struct{}        `xml:"chord,omitempty"`
	Rest            *struct{}        `xml:"rest,omitempty"`
	Pitch           *Pitch           `xml:"pitch,omitempty"`
	Duration        int              `xml:"duration"`
	Voice           string           `xml:"voice,omitempty"`
	Type            string           `xml:"type,omitempty"`
	Dots            []struct{}       `xml:"dot,omitempty"`
	TimeModification *TimeModification `xml:"time-modification,omitempty"`
	Staff           int              `xml:"staff,omitempty"`
	Notations       *Notations       `xml:"notations,omitempty"`
}

type Pitch struct {
	Step   string `xml:"step"`
	Alter  *int   `xml:"alter,omitempty"`
	Octave int    `xml:"octave"`
}

type TimeModification struct {
	ActualNotes int `xml:"actual-notes"`
	NormalNotes int `xml:"normal-notes"`
}

type Notations struct {
	Technical Technical `xml:"technical"`
}

type Technical struct {
	String int `xml:"string"`
	Fret   int `xml:"fret"`
}

var stepNames = []string{"C", "D", "E", "F", "G", "A", "B"}
var typeNames = map[model.DurationBase]string{
	model.Whole:        "whole",
	model.Half:         "half",
	model.Quarter:      "quarter",
	model.Eighth:       "eighth",
	model.Sixteenth:    "16th",
	model.ThirtySecond: "32nd",
}

// Encode renders doc as a complete MusicXML document, including the XML
// prologue.
func Encode(doc *model.Document) ([]byte, error) {
	score := ScorePartwise{Version: "3.1"}

	for i, tr := range doc.Tracks {
		partID := fmt.Sprintf("P%d", i+1)
		name := tr.Name
		if name == "" {
			name = tr.ID
		}
		score.PartList.ScoreParts = append(score.PartList.ScoreParts, ScorePart{ID: partID, PartName: PartName{Text: name}})
		score.Parts = append(score.Parts, buildPart(doc, tr, partID, i == 0))
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	encoder := xml.NewEncoder(&buf)
	encoder.Indent("", "  ")
	if err := encoder.Encode(score); err != nil {
		return nil, fmt.Errorf("encoding MusicXML: %w", err)
	}
	buf.WriteString("\n")

	return postProcessSelfClosing(buf.Bytes()), nil
}

func buildPart(doc *model.Document, tr model.Track, partID string, first bool) XMLPart {
	part := XMLPart{ID: partID}
	stringCount := doc.StringCount(tr.ID)

	for mi, m := range doc.SortedMeasures() {
		measure := XMLMeasure{Number: m.Index}
		if mi == 0 {
			measure.Attributes = buildAttributes(doc, tr, stringCount)
		}

		tm, ok := m.Tracks[tr.ID]
		if !ok {
			part.Measures = append(part.Measures, measure)
			continue
		}

		measureDuration := int(math.Round(float64(divisionsPerQuarter) * float64(doc.Header.TimeSigNum) * 4.0 / float64(doc.Header.TimeSigDenom)))

		voiceNames := sortedVoiceNames(tm.Voices)
		for vi, voiceName := range voiceNames {
			if vi > 0 {
				measure.Notes = append(measure.Notes, NoteOrBackup{Backup: &Backup{Duration: measureDuration}})
			}
			used := 0
			for _, ev := range tm.Voices[voiceName] {
				notes, dur := eventToNotes(ev, tr, voiceName)
				measure.Notes = append(measure.Notes, notes...)
				used += dur
			}
			if used < measureDuration {
				measure.Notes = append(measure.Notes, NoteOrBackup{Note: &NoteXML{
					Rest:     &struct{}{},
					Duration: measureDuration - used,
					Voice:    voiceName,
				}})
			}
		}

		part.Measures = append(part.Measures, measure)
	}
	return part
}

func buildAttributes(doc *model.Document, tr model.Track, stringCount int) *Attributes {
	attrs := &Attributes{
		Divisions: divisionsPerQuarter,
		Key:       Key{Fifths: 0},
		Time:      Time{Beats: fmt.Sprintf("%d", doc.Header.TimeSigNum), BeatType: fmt.Sprintf("%d", doc.Header.TimeSigDenom)},
		Clef:      Clef{Sign: "TAB", Line: 5},
	}

	if len(tr.Tuning) == stringCount {
		sd := &StaffDetails{StaffLines: stringCount}
		for i := 0; i < stringCount; i++ {
			// Staff line 1 is the bottom (lowest) line; string 1 (highest
			// pitch) is conventionally drawn on the top line.
			tuning := tr.Tuning[stringCount-1-i]
			midi, err := pitch.ParseScientific(tuning)
			if err != nil {
				continue
			}
			step, alter, octave := stepFromMIDI(midi)
			sd.StaffTunings = append(sd.StaffTunings, StaffTuning{
				Line:         stringCount - i,
				TuningStep:   step,
				TuningAlter:  alter,
				TuningOctave: octave,
			})
		}
		attrs.StaffDetails = sd
	}
	return attrs
}

// eventToNotes converts one Model event into its MusicXML note(s) plus the
// divisions it consumes. A chord emits one regular note followed by
// <chord/>-marked notes for the remaining pitches.
func eventToNotes(ev model.Event, tr model.Track, voiceName string) ([]NoteOrBackup, int) {
	dur := durationDivisions(ev.GetDuration())
	typeName := typeNames[ev.GetDuration().Base]
	var dots []struct{}
	for i := 0; i < ev.GetDuration().Dots; i++ {
		dots = append(dots, struct{}{})
	}
	var timeMod *TimeModification
	if ev.GetDuration().Tuplet > 0 {
		timeMod = &TimeModification{ActualNotes: ev.GetDuration().Tuplet, NormalNotes: 2}
	}

	switch e := ev.(type) {
	case model.RestEvent:
		return []NoteOrBackup{{Note: &NoteXML{
			Rest: &struct{}{}, Duration: dur, Voice: voiceName, Type: typeName, Dots: dots, TimeModification: timeMod, Staff: 1,
		}}}, dur
	case model.NoteEvent:
		return []NoteOrBackup{{Note: noteFromRef(e.Note, tr, dur, voiceName, typeName, dots, timeMod, false)}}, dur
	case model.ChordEvent:
		var out []NoteOrBackup
		for i, ref := range e.Notes {
			out = append(out, NoteOrBackup{Note: noteFromRef(ref, tr, dur, voiceName, typeName, dots, timeMod, i > 0)})
		}
		return out, dur
	}
	return nil, dur
}

func noteFromRef(ref model.NoteRef, tr model.Track, dur int, voiceName, typeName string, dots []struct{}, timeMod *TimeModification, chord bool) *NoteXML {
	n := &NoteXML{
		Duration:         dur,
		Voice:            voiceName,
		Type:             typeName,
		Dots:             dots,
		TimeModification: timeMod,
		Staff:            1,
		Notations:        &Notations{Technical: Technical{String: ref.String, Fret: ref.Fret}},
	}
	if chord {
		n.Chord = &struct{}{}
	}
	if midi, ok := pitch.FromTuning(tr.Tuning, ref.String, ref.Fret, tr.Capo); ok {
		step, alter, octave := stepFromMIDI(midi)
		n.Pitch = &Pitch{Step: step, Alter: alter, Octave: octave}
	}
	return n
}

func durationDivisions(d model.Duration) int {
	base := map[model.DurationBase]int{
		model.Whole: 4 * divisionsPerQuarter, model.Half: 2 * divisionsPerQuarter,
		model.Quarter: divisionsPerQuarter, model.Eighth: divisionsPerQuarter / 2,
		model.Sixteenth: divisionsPerQuarter / 4, model.ThirtySecond: divisionsPerQuarter / 8,
	}[d.Base]
	if base == 0 {
		base = divisionsPerQuarter
	}
	factor := 1.0
	add := 1.0
	for i := 0; i < d.Dots; i++ {
		add /= 2
		factor += add
	}
	total := float64(base) * factor
	if d.Tuplet > 0 {
		total *= 2.0 / float64(d.Tuplet)
	}
	result := int(math.Round(total))
	if result < 1 {
		result = 1
	}
	return result
}

func stepFromMIDI(midiNote int) (step string, alter *int, octave int) {
	pc := ((midiNote % 12) + 12) % 12
	octave = midiNote/12 - 1
	naturals := map[int]int{0: 0, 2: 1, 4: 2, 5: 3, 7: 4, 9: 5, 11: 6}
	if idx, ok := naturals[pc]; ok {
		return stepNames[idx], nil, octave
	}
	one := 1
	return stepNames[naturals[pc-1]], &one, octave
}

func sortedVoiceNames(voices map[string]model.Voice) []string {
	names := make([]string, 0, len(voices))
	for name := range voices {
		names = append(names, name)
	}
	// "v1" first when present, then the rest in lexical order, so the
	// backup-padding layout is the same on every run.
	sort.Slice(names, func(i, j int) bool {
		if names[i] == "v1" || names[j] == "v1" {
			return names[i] == "v1" && names[j] != "v1"
		}
		return names[i] < names[j]
	})
	return names
}

var emptyTagPattern = regexp.MustCompile(`<(\w[\w-]*)([^>]*?)></\w[\w-]*>`)

// postProcessSelfClosing turns the empty boolean-marker elements
// (<chord></chord>, <dot></dot>, <rest></rest>) that encoding/xml emits for
// zero-value struct{} fields into the self-closing form MusicXML readers
// expect.
func postProcessSelfClosing(b []byte) []byte {
	s := emptyTagPattern.ReplaceAllStringFunc(string(b), func(match string) string {
		m := emptyTagPattern.FindStringSubmatch(match)
		tag, attrs := m[1], m[2]
		if strings.Contains(match, "</"+tag+">") {
			return "<" + tag + attrs + "/>"
		}
		return match
	})
	return []byte(s)
}
