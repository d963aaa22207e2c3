// Package pitch resolves scientific pitch names ("E2", "A#3", "Bb4") and
// fretted positions to MIDI note numbers. Tuning and pitch resolution are
// an encoder concern, never part of the Model itself.
package pitch

import (
	"fmt"
	"regexp"
	"strconv"
)

var pitchPattern = regexp.MustCompile(`^([A-Ga-g])([#b]?)(-?\d+)$`)

// semitoneFromC maps a natural letter name to its semitone offset from C.
var semitoneFromC = map[byte]int{
	'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11,
}

// ParseScientific converts a scientific pitch name such as "E2" or "A#3"
// into an absolute MIDI note number, where C4 (middle C) is 60.
func ParseScientific(name string) (int, error) {
	m := pitchPattern.FindStringSubmatch(name)
	if m == nil {
		return 0, fmt.Errorf("pitch: invalid scientific pitch name %q", name)
	}
	letter := byte(m[1][0])
	if letter >= 'a' && letter <= 'z' {
		letter -= 'a' - 'A'
	}
	semitone, ok := semitoneFromC[letter]
	if !ok {
		return 0, fmt.Errorf("pitch: unknown note letter in %q", name)
	}
	switch m[2] {
	case "#":
		semitone++
	case "b":
		semitone--
	}
	octave, err := strconv.Atoi(m[3])
	if err != nil {
		return 0, fmt.Errorf("pitch: invalid octave in %q: %w", name, err)
	}
	// MIDI note 0 is C-1 in scientific pitch notation.
	midi := (octave+1)*12 + semitone
	return midi, nil
}

// FromTuning resolves a fretted note to a MIDI note number given the
// track's declared tuning and the 1-based string number, fret and capo
// offset. The tuning slice is declared low-to-high pitch (tuning[0] is the
// lowest-pitched string); NoteRef.String follows conventional tab string
// numbering where string 1 is the highest-pitched string, so string N maps
// to tuning[len(tuning)-N]. This mapping is fixed by the worked example in
// the spec's testable properties (standard tuning, (6:0) -> MIDI 40 i.e.
// the lowest string, (1:0) -> MIDI 64 i.e. the highest). ok is false when
// the string number is out of range for the tuning or the resulting note
// falls outside 0..127.
func FromTuning(tuning []string, stringNum, fret, capo int) (midiNote int, ok bool) {
	if stringNum < 1 || stringNum > len(tuning) {
		return 0, false
	}
	open, err := ParseScientific(tuning[len(tuning)-stringNum])
	if err != nil {
		return 0, false
	}
	n := open + fret + capo
	if n < 0 || n > 127 {
		return 0, false
	}
	return n, true
}
