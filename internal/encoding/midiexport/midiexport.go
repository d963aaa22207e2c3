// Package midiexport renders a model.Document as a Standard MIDI File:
// Format 0 for single-track documents, Format 1 for multi-track ones, at
// 480 ticks per quarter note.
//
// The track construction adapts the teacher pack's GeneralMidiExporter
// idiom directly: accumulate absolute-time events per track, sort with the
// meta-then-off-then-on tie-break, then convert to relative deltas before
// appending an end-of-track meta event.
package midiexport

import (
	"io"
	"math"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/homeputers/opentab/internal/model"
	"github.com/homeputers/opentab/internal/pitch"
)

const ticksPerQuarter = 480
const defaultVelocity = 64

var baseTicks = map[model.DurationBase]uint32{
	model.Whole:        4 * ticksPerQuarter,
	model.Half:         2 * ticksPerQuarter,
	model.Quarter:      ticksPerQuarter,
	model.Eighth:       ticksPerQuarter / 2,
	model.Sixteenth:    ticksPerQuarter / 4,
	model.ThirtySecond: ticksPerQuarter / 8,
}

// midiEvent is a MIDI message with absolute timing, exactly as the teacher
// pack's exporter represents a scheduled event before delta conversion.
type midiEvent struct {
	time    uint32
	message smf.Message
}

// Encode renders doc as Standard MIDI File bytes.
func Encode(doc *model.Document) ([]byte, error) {
	var buf writerBuffer

	var s *smf.SMF
	if len(doc.Tracks) <= 1 {
		s = smf.NewSMF0()
	} else {
		s = smf.NewSMF1()
	}
	s.TimeFormat = smf.MetricTicks(ticksPerQuarter)

	tempo := buildTempoTrack(doc)
	if len(doc.Tracks) != 1 {
		s.Add(tempo)
	}
	for i, tr := range doc.Tracks {
		channel := uint8(i % 16)
		events := scheduleTrack(doc, tr, channel)
		track := buildEventTrack(tr, channel, events)
		if len(doc.Tracks) == 1 {
			// Format 0 holds a single track chunk, so the tempo and
			// time-signature meta events lead the event track.
			track = append(append(smf.Track{}, tempo[:len(tempo)-1]...), track...)
		}
		s.Add(track)
	}

	if _, err := s.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.data, nil
}

// WriteTo encodes doc and writes the bytes to w, mirroring the teacher
// exporter's WriteTo signature for callers that stream directly to a file.
func WriteTo(doc *model.Document, w io.Writer) error {
	b, err := Encode(doc)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

type writerBuffer struct {
	data []byte
}

func (b *writerBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func buildTempoTrack(doc *model.Document) smf.Track {
	track := smf.Track{}
	track = append(track, smf.Event{Delta: 0, Message: smf.Message(smf.MetaTempo(float64(doc.Header.TempoBPM)))})
	track = append(track, smf.Event{Delta: 0, Message: smf.Message(smf.MetaTimeSig(
		uint8(doc.Header.TimeSigNum), uint8(doc.Header.TimeSigDenom), 24, 8))})
	track = append(track, smf.Event{Delta: 0, Message: smf.EOT})
	return track
}

// scheduleTrack computes absolute-time note-on/note-off events for one
// track across every measure, advancing the measure-start cursor by
// max(expected_ticks, longest voice span) per measure.
func scheduleTrack(doc *model.Document, tr model.Track, channel uint8) []midiEvent {
	var events []midiEvent
	measureStart := uint32(0)

	for _, m := range doc.SortedMeasures() {
		tm, ok := m.Tracks[tr.ID]
		expectedTicks := uint32(math.Round(float64(ticksPerQuarter) * float64(doc.Header.TimeSigNum) * 4.0 / float64(doc.Header.TimeSigDenom)))
		span := expectedTicks

		if ok {
			for _, voice := range tm.Voices {
				cursor := measureStart
				for _, ev := range voice {
					ticks := durationTicks(ev.GetDuration())
					events = append(events, noteEvents(tr, ev, channel, cursor, ticks)...)
					cursor += ticks
				}
				if voiceSpan := cursor - measureStart; voiceSpan > span {
					span = voiceSpan
				}
			}
		}

		measureStart += span
	}
	return events
}

func noteEvents(tr model.Track, ev model.Event, channel uint8, start, ticks uint32) []midiEvent {
	var out []midiEvent

	emit := func(ref model.NoteRef) {
		note, ok := pitch.FromTuning(tr.Tuning, ref.String, ref.Fret, tr.Capo)
		if !ok {
			return
		}
		out = append(out, midiEvent{time: start, message: smf.Message(midi.NoteOn(channel, uint8(note), defaultVelocity))})
		out = append(out, midiEvent{time: start + ticks, message: smf.Message(midi.NoteOff(channel, uint8(note)))})
	}

	switch e := ev.(type) {
	case model.NoteEvent:
		emit(e.Note)
	case model.ChordEvent:
		for _, n := range e.Notes {
			emit(n)
		}
	case model.RestEvent:
		// no MIDI events
	}
	return out
}

// durationTicks converts a fully-resolved Duration to ticks: base ticks
// scaled by the dotted-note factor and, when set, the tuplet factor.
func durationTicks(d model.Duration) uint32 {
	base, ok := baseTicks[d.Base]
	if !ok {
		base = ticksPerQuarter
	}
	factor := 1.0
	add := 1.0
	for i := 0; i < d.Dots; i++ {
		add /= 2
		factor += add
	}
	ticks := float64(base) * factor
	if d.Tuplet > 0 {
		ticks *= 2.0 / float64(d.Tuplet)
	}
	rounded := uint32(math.Round(ticks))
	if rounded < 1 {
		rounded = 1
	}
	return rounded
}

// buildEventTrack assembles one smf.Track from a track's absolute-time
// events: track name, accumulated events sorted with a meta-first,
// note-off-before-note-on tie-break at equal tick, converted to relative
// deltas, terminated by a single end-of-track event.
func buildEventTrack(tr model.Track, channel uint8, events []midiEvent) smf.Track {
	track := smf.Track{}
	name := tr.Name
	if name == "" {
		name = tr.ID
	}
	track = append(track, smf.Event{Delta: 0, Message: smf.Message(smf.MetaTrackSequenceName(name))})

	sorted := make([]midiEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].time != sorted[j].time {
			return sorted[i].time < sorted[j].time
		}
		iOff := isNoteOff(sorted[i].message)
		jOff := isNoteOff(sorted[j].message)
		return iOff && !jOff
	})

	var lastTime uint32
	for _, ev := range sorted {
		delta := ev.time - lastTime
		track = append(track, smf.Event{Delta: delta, Message: ev.message})
		lastTime = ev.time
	}
	track = append(track, smf.Event{Delta: 0, Message: smf.EOT})
	return track
}

func isNoteOff(msg smf.Message) bool {
	var ch, note, vel uint8
	if msg.GetNoteOff(&ch, &note, &vel) {
		return true
	}
	if msg.GetNoteOn(&ch, &note, &vel) && vel == 0 {
		return true
	}
	return false
}
