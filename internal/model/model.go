// Package model defines the OpenTab document tree: header, tracks,
// measures, events, durations and annotations. Values in this package are
// built once by a parser or importer and never mutated afterward; encoders
// read them, they never write them.
package model

import "sort"

// Document is the root of a parsed or imported OpenTab source.
type Document struct {
	Header   Header
	Tracks   []Track
	Measures []Measure
}

// TrackByID returns the track with the given id, if any.
func (d *Document) TrackByID(id string) (*Track, bool) {
	for i := range d.Tracks {
		if d.Tracks[i].ID == id {
			return &d.Tracks[i], true
		}
	}
	return nil, false
}

// StringCount returns the number of strings to assume for trackID: the
// declared tuning length if the track has one, otherwise the highest
// NoteRef.String observed anywhere in the document for that track, otherwise
// 6.
func (d *Document) StringCount(trackID string) int {
	if t, ok := d.TrackByID(trackID); ok && len(t.Tuning) > 0 {
		return len(t.Tuning)
	}
	max := 0
	for _, m := range d.Measures {
		tm, ok := m.Tracks[trackID]
		if !ok {
			continue
		}
		for _, voice := range tm.Voices {
			for _, ev := range voice {
				switch e := ev.(type) {
				case NoteEvent:
					if e.Note.String > max {
						max = e.Note.String
					}
				case ChordEvent:
					for _, n := range e.Notes {
						if n.String > max {
							max = n.String
						}
					}
				}
			}
		}
	}
	if max == 0 {
		return 6
	}
	return max
}

// SortedMeasures returns the document's measures ordered by index.
func (d *Document) SortedMeasures() []*Measure {
	out := make([]*Measure, len(d.Measures))
	for i := range d.Measures {
		out[i] = &d.Measures[i]
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Header carries document metadata. Unknown carries any key not recognized
// by this spec's fixed header schema; it is round-tripped verbatim and is
// never a validation error.
type Header struct {
	Format    string
	Version   string
	Title     string
	Artist    string
	Album     string
	Composer  string
	Source    string
	Copyright string

	TempoBPM     int
	TimeSigNum   int
	TimeSigDenom int
	Swing        SwingMode

	Unknown map[string]any
}

// SwingMode is the header's swing setting.
type SwingMode string

const (
	SwingNone   SwingMode = "none"
	SwingEighth SwingMode = "eighth"
)

// Track describes one instrument line in the document.
type Track struct {
	ID         string
	Name       string
	Instrument string
	Tuning     []string // low to high, scientific pitch, e.g. "E2"
	Capo       int
}

// Measure is one unit of musical time, shared across all tracks at the
// same index.
type Measure struct {
	Index  int
	Tracks map[string]TrackMeasure
}

// TrackMeasure is one track's content within a measure, split by voice.
type TrackMeasure struct {
	Voices map[string]Voice
}

// Voice is an ordered, independent stream of events.
type Voice []Event

// EventKind identifies which concrete Event variant a value holds.
type EventKind int

const (
	KindNote EventKind = iota
	KindChord
	KindRest
)

func (k EventKind) String() string {
	switch k {
	case KindNote:
		return "note"
	case KindChord:
		return "chord"
	case KindRest:
		return "rest"
	default:
		return "unknown"
	}
}

// Event is the tagged sum of Note, Chord and Rest. The set of
// implementations is closed to this package (isEvent is unexported) so
// every consumer's type switch can treat NoteEvent/ChordEvent/RestEvent as
// exhaustive.
type Event interface {
	Kind() EventKind
	GetDuration() Duration
	GetAnnotations() Annotations
	isEvent()
}

// NoteEvent is a single plucked/fretted note.
type NoteEvent struct {
	Dur  Duration
	Note NoteRef
	Anns Annotations
}

func (e NoteEvent) Kind() EventKind             { return KindNote }
func (e NoteEvent) GetDuration() Duration       { return e.Dur }
func (e NoteEvent) GetAnnotations() Annotations { return nonNil(e.Anns) }
func (NoteEvent) isEvent()                      {}

// ChordEvent is two or more notes struck together.
type ChordEvent struct {
	Dur   Duration
	Notes []NoteRef
	Anns  Annotations
}

func (e ChordEvent) Kind() EventKind             { return KindChord }
func (e ChordEvent) GetDuration() Duration       { return e.Dur }
func (e ChordEvent) GetAnnotations() Annotations { return nonNil(e.Anns) }
func (ChordEvent) isEvent()                      {}

// RestEvent is silence for the duration of the event.
type RestEvent struct {
	Dur  Duration
	Anns Annotations
}

func (e RestEvent) Kind() EventKind             { return KindRest }
func (e RestEvent) GetDuration() Duration       { return e.Dur }
func (e RestEvent) GetAnnotations() Annotations { return nonNil(e.Anns) }
func (RestEvent) isEvent()                      {}

func nonNil(a Annotations) Annotations {
	if a == nil {
		return Annotations{}
	}
	return a
}

// DurationBase is the base note value, independent of dots or tuplets.
type DurationBase string

const (
	Whole        DurationBase = "w"
	Half         DurationBase = "h"
	Quarter      DurationBase = "q"
	Eighth       DurationBase = "e"
	Sixteenth    DurationBase = "s"
	ThirtySecond DurationBase = "t"
)

// Duration is a fully-resolved note value: base, dot count and tuplet
// denominator. The formatter, not this package, decides how many dots to
// print; the Model preserves whatever the parser read.
type Duration struct {
	Base   DurationBase
	Dots   int
	Tuplet int // 0 means "no tuplet"
}

// NoteRef is a single fretted position on a string, with its inline
// technique chain and its own annotation bag (distinct from the owning
// Event's annotation bag, which applies to the whole Note/Chord/Rest).
type NoteRef struct {
	String      int // 1-based; string 1 is the highest-pitched string, so string N is tuning[len(tuning)-N]
	Fret        int
	Techniques  []Technique
	Annotations Annotations
}

// TechniqueKind identifies an inline technique in a note's chain.
type TechniqueKind int

const (
	TechHammerOn TechniqueKind = iota
	TechPullOff
	TechSlide
	TechVibrato
)

// SlideDirection distinguishes slide-up from slide-down.
type SlideDirection string

const (
	SlideUp   SlideDirection = "up"
	SlideDown SlideDirection = "down"
)

// Technique is one link in a note's left-to-right technique chain: the
// target fret of one technique is the source fret of the next.
type Technique struct {
	Kind      TechniqueKind
	FromFret  int
	ToFret    int            // meaningful for HammerOn/PullOff/Slide
	Direction SlideDirection // meaningful for Slide
}

// Annotations is an open, string-keyed bag of string/float64/bool values.
// Unknown keys are never rejected by any component in this module.
type Annotations map[string]any
