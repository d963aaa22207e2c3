package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/homeputers/opentab/internal/model"
)

var durationPattern = regexp.MustCompile(`^([whqest])(\.{0,2})(?:/(\d+))?$`)
var noteBodyPattern = regexp.MustCompile(`^(\d+):(\d+)((?:(?:h|p|/|\\)\d+|~)*)$`)
var techniqueStepPattern = regexp.MustCompile(`(h|p|/|\\)(\d+)|(~)`)

// parseMeasureTokens tokenizes the content between a measure line's pipes
// and resolves it to a voice of fully-dated events, applying the
// duration-carry rule: a bare duration token sets the current duration and
// emits no event; every subsequent event token consumes it until the next
// duration token. Duration never carries in from outside this call.
func parseMeasureTokens(content string, lineNum int) (model.Voice, error) {
	tokens, err := tokenizeBracketAware(strings.TrimSpace(content))
	if err != nil {
		return nil, &ParseError{Line: lineNum, Kind: "unbalanced_brackets", Message: err.Error()}
	}

	var voice model.Voice
	var current *model.Duration

	for _, tok := range tokens {
		if m := durationPattern.FindStringSubmatch(tok); m != nil {
			tuplet := 0
			if m[3] != "" {
				tuplet, _ = strconv.Atoi(m[3])
			}
			d := model.Duration{Base: model.DurationBase(m[1]), Dots: len(m[2]), Tuplet: tuplet}
			current = &d
			continue
		}

		if current == nil {
			return nil, &ParseError{Line: lineNum, Kind: "event_before_duration", Message: fmt.Sprintf("event token %q appears before any duration is set", tok)}
		}

		ev, err := parseEventToken(tok, *current, lineNum)
		if err != nil {
			return nil, err
		}
		voice = append(voice, ev)
	}
	return voice, nil
}

func parseEventToken(tok string, dur model.Duration, lineNum int) (model.Event, error) {
	switch {
	case tok == "r" || strings.HasPrefix(tok, "r{"):
		return parseRestToken(tok, dur, lineNum)
	case strings.HasPrefix(tok, "("):
		return parseNoteToken(tok, dur, lineNum)
	case strings.HasPrefix(tok, "["):
		return parseChordToken(tok, dur, lineNum)
	default:
		return nil, &ParseError{Line: lineNum, Kind: "unknown_token", Message: fmt.Sprintf("unrecognized token %q inside measure", tok)}
	}
}

func parseRestToken(tok string, dur model.Duration, lineNum int) (model.Event, error) {
	rest := model.RestEvent{Dur: dur}
	if tok == "r" {
		return rest, nil
	}
	anns, err := parseAnnotations(tok[1:])
	if err != nil {
		return nil, &ParseError{Line: lineNum, Kind: "malformed_annotation", Message: err.Error()}
	}
	rest.Anns = anns
	return rest, nil
}

func parseNoteToken(tok string, dur model.Duration, lineNum int) (model.Event, error) {
	body, annSuffix, err := splitEventAndAnnotations(tok, '(', ')')
	if err != nil {
		return nil, &ParseError{Line: lineNum, Kind: "malformed_note", Message: err.Error()}
	}
	ref, err := parseNoteRefBody(body)
	if err != nil {
		return nil, &ParseError{Line: lineNum, Kind: "malformed_note", Message: err.Error()}
	}
	note := model.NoteEvent{Dur: dur, Note: ref}
	if annSuffix != "" {
		anns, err := parseAnnotations(annSuffix)
		if err != nil {
			return nil, &ParseError{Line: lineNum, Kind: "malformed_annotation", Message: err.Error()}
		}
		note.Anns = anns
	}
	return note, nil
}

func parseChordToken(tok string, dur model.Duration, lineNum int) (model.Event, error) {
	body, annSuffix, err := splitEventAndAnnotations(tok, '[', ']')
	if err != nil {
		return nil, &ParseError{Line: lineNum, Kind: "malformed_chord", Message: err.Error()}
	}
	noteTokens, err := tokenizeBracketAware(strings.TrimSpace(body))
	if err != nil {
		return nil, &ParseError{Line: lineNum, Kind: "malformed_chord", Message: err.Error()}
	}
	if len(noteTokens) == 0 {
		return nil, &ParseError{Line: lineNum, Kind: "empty_chord", Message: "chord must contain at least one note"}
	}

	notes := make([]model.NoteRef, 0, len(noteTokens))
	for _, nt := range noteTokens {
		nBody, nAnnSuffix, err := splitEventAndAnnotations(nt, '(', ')')
		if err != nil {
			return nil, &ParseError{Line: lineNum, Kind: "malformed_chord", Message: err.Error()}
		}
		ref, err := parseNoteRefBody(nBody)
		if err != nil {
			return nil, &ParseError{Line: lineNum, Kind: "malformed_chord", Message: err.Error()}
		}
		if nAnnSuffix != "" {
			anns, err := parseAnnotations(nAnnSuffix)
			if err != nil {
				return nil, &ParseError{Line: lineNum, Kind: "malformed_annotation", Message: err.Error()}
			}
			ref.Annotations = anns
		}
		notes = append(notes, ref)
	}

	chord := model.ChordEvent{Dur: dur, Notes: notes}
	if annSuffix != "" {
		anns, err := parseAnnotations(annSuffix)
		if err != nil {
			return nil, &ParseError{Line: lineNum, Kind: "malformed_annotation", Message: err.Error()}
		}
		chord.Anns = anns
	}
	return chord, nil
}

func parseNoteRefBody(body string) (model.NoteRef, error) {
	m := noteBodyPattern.FindStringSubmatch(body)
	if m == nil {
		return model.NoteRef{}, fmt.Errorf("malformed note %q", body)
	}
	stringNum, _ := strconv.Atoi(m[1])
	fret, _ := strconv.Atoi(m[2])
	techs, err := parseTechniqueChain(m[3], fret)
	if err != nil {
		return model.NoteRef{}, err
	}
	return model.NoteRef{String: stringNum, Fret: fret, Techniques: techs}, nil
}

// parseTechniqueChain walks a left-to-right technique chain such as
// "h4p2": the target fret of one technique becomes the source fret of the
// next.
func parseTechniqueChain(chain string, fromFret int) ([]model.Technique, error) {
	if chain == "" {
		return nil, nil
	}
	var techs []model.Technique
	cur := fromFret
	pos := 0
	for pos < len(chain) {
		loc := techniqueStepPattern.FindStringSubmatchIndex(chain[pos:])
		if loc == nil || loc[0] != 0 {
			return nil, fmt.Errorf("malformed technique chain %q", chain)
		}
		m := techniqueStepPattern.FindStringSubmatch(chain[pos:])
		if m[3] == "~" {
			techs = append(techs, model.Technique{Kind: model.TechVibrato, FromFret: cur, ToFret: cur})
			pos += len(m[0])
			continue
		}
		toFret, _ := strconv.Atoi(m[2])
		var kind model.TechniqueKind
		var dir model.SlideDirection
		switch m[1] {
		case "h":
			kind = model.TechHammerOn
		case "p":
			kind = model.TechPullOff
		case "/":
			kind = model.TechSlide
			dir = model.SlideUp
		case "\\":
			kind = model.TechSlide
			dir = model.SlideDown
		}
		techs = append(techs, model.Technique{Kind: kind, FromFret: cur, ToFret: toFret, Direction: dir})
		cur = toFret
		pos += len(m[0])
	}
	return techs, nil
}

// parseAnnotations parses a "{key=value, ...}" block, including its
// enclosing braces.
func parseAnnotations(raw string) (model.Annotations, error) {
	if len(raw) < 2 || raw[0] != '{' || raw[len(raw)-1] != '}' {
		return nil, fmt.Errorf("malformed annotation block %q", raw)
	}
	inner := strings.TrimSpace(raw[1 : len(raw)-1])
	if inner == "" {
		return model.Annotations{}, nil
	}
	anns := model.Annotations{}
	for _, pair := range splitTopLevel(inner, ',') {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		idx := strings.Index(pair, "=")
		if idx < 0 {
			return nil, fmt.Errorf("malformed annotation entry %q", pair)
		}
		key := strings.TrimSpace(pair[:idx])
		rawVal := strings.TrimSpace(pair[idx+1:])
		val, err := parseAnnotationValue(rawVal)
		if err != nil {
			return nil, err
		}
		anns[key] = val // later duplicate keys overwrite earlier ones
	}
	return anns, nil
}

func parseAnnotationValue(raw string) (any, error) {
	switch {
	case raw == "true":
		return true, nil
	case raw == "false":
		return false, nil
	case strings.HasPrefix(raw, "\""):
		return parseQuotedString(raw)
	default:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f, nil
		}
		// A bare identifier is treated as a string literal.
		return raw, nil
	}
}
