// Package schema runs a pure structural check over a model.Document:
// required fields present, enums in range, integers non-negative, tuning
// strings well-formed. It never re-runs grammar checks — those are the
// parser's job — and trusts that anything reaching it is a fully-formed
// Model.
package schema

import (
	"fmt"
	"regexp"

	jsoniter "github.com/json-iterator/go"

	"github.com/homeputers/opentab/internal/model"
)

var tuningPattern = regexp.MustCompile(`^[A-Ga-g][#b]?-?\d+$`)

// FieldError is one structural violation, addressed by a JSON-pointer-style
// path into the Document.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Result is the outcome of validating a Document.
type Result struct {
	OK     bool         `json:"ok"`
	Errors []FieldError `json:"errors"`
}

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// MarshalJSON encodes r with jsoniter rather than encoding/json, matching
// the encoder used everywhere else this module round-trips Model-adjacent
// values to JSON.
func (r Result) MarshalJSON() ([]byte, error) {
	return jsonAPI.Marshal(struct {
		OK     bool         `json:"ok"`
		Errors []FieldError `json:"errors"`
	}{OK: r.OK, Errors: r.Errors})
}

// Validate checks doc's structural well-formedness.
func Validate(doc *model.Document) Result {
	var errs []FieldError

	if doc.Header.Format != "opentab" {
		errs = append(errs, FieldError{Path: "/header/format", Message: fmt.Sprintf("expected \"opentab\", got %q", doc.Header.Format)})
	}
	if doc.Header.Version == "" {
		errs = append(errs, FieldError{Path: "/header/version", Message: "version is required"})
	}
	if doc.Header.TempoBPM <= 0 {
		errs = append(errs, FieldError{Path: "/header/tempo_bpm", Message: "tempo_bpm must be a positive integer"})
	}
	if doc.Header.TimeSigNum <= 0 {
		errs = append(errs, FieldError{Path: "/header/time_signature", Message: "time signature numerator must be positive"})
	}
	switch doc.Header.Swing {
	case model.SwingNone, model.SwingEighth, "":
	default:
		errs = append(errs, FieldError{Path: "/header/swing", Message: fmt.Sprintf("swing %q is not a recognized value", doc.Header.Swing)})
	}

	seenTrackIDs := map[string]bool{}
	for i, tr := range doc.Tracks {
		path := fmt.Sprintf("/tracks/%d", i)
		if tr.ID == "" {
			errs = append(errs, FieldError{Path: path + "/id", Message: "track id is required"})
		} else if seenTrackIDs[tr.ID] {
			errs = append(errs, FieldError{Path: path + "/id", Message: fmt.Sprintf("duplicate track id %q", tr.ID)})
		}
		seenTrackIDs[tr.ID] = true

		if tr.Capo < 0 {
			errs = append(errs, FieldError{Path: path + "/capo", Message: "capo must be non-negative"})
		}
		for j, s := range tr.Tuning {
			if !tuningPattern.MatchString(s) {
				errs = append(errs, FieldError{Path: fmt.Sprintf("%s/tuning/%d", path, j), Message: fmt.Sprintf("%q does not match the tuning grammar", s)})
			}
		}
	}

	for mi, m := range doc.Measures {
		mPath := fmt.Sprintf("/measures/%d", mi)
		if m.Index <= 0 {
			errs = append(errs, FieldError{Path: mPath + "/index", Message: "measure index must be positive"})
		}
		for trackID, tm := range m.Tracks {
			if !seenTrackIDs[trackID] {
				errs = append(errs, FieldError{Path: fmt.Sprintf("%s/tracks/%s", mPath, trackID), Message: fmt.Sprintf("references unknown track %q", trackID)})
			}
			for voiceID, voice := range tm.Voices {
				for ei, ev := range voice {
					evPath := fmt.Sprintf("%s/tracks/%s/voices/%s/%d", mPath, trackID, voiceID, ei)
					errs = append(errs, validateEvent(evPath, ev)...)
				}
			}
		}
	}

	return Result{OK: len(errs) == 0, Errors: errs}
}

func validateEvent(path string, ev model.Event) []FieldError {
	var errs []FieldError
	if err := validateDuration(path+"/duration", ev.GetDuration()); err != nil {
		errs = append(errs, *err)
	}
	switch e := ev.(type) {
	case model.NoteEvent:
		errs = append(errs, validateNoteRef(path+"/note", e.Note)...)
	case model.ChordEvent:
		if len(e.Notes) < 2 {
			errs = append(errs, FieldError{Path: path + "/notes", Message: "a chord must have at least two notes"})
		}
		for i, n := range e.Notes {
			errs = append(errs, validateNoteRef(fmt.Sprintf("%s/notes/%d", path, i), n)...)
		}
	case model.RestEvent:
		// no further structural constraints
	}
	return errs
}

func validateDuration(path string, d model.Duration) *FieldError {
	switch d.Base {
	case model.Whole, model.Half, model.Quarter, model.Eighth, model.Sixteenth, model.ThirtySecond:
	default:
		return &FieldError{Path: path + "/base", Message: fmt.Sprintf("%q is not a recognized duration base", d.Base)}
	}
	if d.Dots < 0 || d.Dots > 2 {
		return &FieldError{Path: path + "/dots", Message: "dots must be between 0 and 2"}
	}
	if d.Tuplet < 0 {
		return &FieldError{Path: path + "/tuplet", Message: "tuplet must be non-negative"}
	}
	return nil
}

func validateNoteRef(path string, n model.NoteRef) []FieldError {
	var errs []FieldError
	if n.String <= 0 {
		errs = append(errs, FieldError{Path: path + "/string", Message: "string must be a positive integer"})
	}
	if n.Fret < 0 {
		errs = append(errs, FieldError{Path: path + "/fret", Message: "fret must be non-negative"})
	}
	return errs
}
