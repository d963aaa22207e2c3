package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/homeputers/opentab/internal/model"
)

var validTimeSigDenominators = map[int]bool{1: true, 2: true, 4: true, 8: true, 16: true, 32: true}

type headerBuilder struct {
	header       model.Header
	tracks       []model.Track
	currentTrack *model.Track
	sawFormat    bool
	sawVersion   bool
}

func newHeaderBuilder() *headerBuilder {
	return &headerBuilder{
		header: model.Header{
			TempoBPM:     120,
			TimeSigNum:   4,
			TimeSigDenom: 4,
			Swing:        model.SwingNone,
			Unknown:      map[string]any{},
		},
	}
}

// parseHeader consumes the header lines preceding the "---" delimiter and
// returns the document Header plus any [[tracks]] entries declared there.
func parseHeader(lines []rawLine) (model.Header, []model.Track, error) {
	b := newHeaderBuilder()

	for _, rl := range lines {
		trimmed := strings.TrimSpace(rl.text)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if trimmed == "[[tracks]]" {
			b.tracks = append(b.tracks, model.Track{})
			b.currentTrack = &b.tracks[len(b.tracks)-1]
			continue
		}

		key, rawValue, err := splitKeyValue(trimmed)
		if err != nil {
			return model.Header{}, nil, &ParseError{Line: rl.num, Kind: "invalid_header_line", Message: err.Error()}
		}
		value, err := parseHeaderValue(rawValue)
		if err != nil {
			return model.Header{}, nil, &ParseError{Line: rl.num, Kind: "invalid_header_value", Message: err.Error()}
		}

		if b.currentTrack != nil {
			if err := b.applyTrackKey(key, value); err != nil {
				return model.Header{}, nil, &ParseError{Line: rl.num, Kind: "invalid_header_value", Message: err.Error()}
			}
			continue
		}
		if err := b.applyHeaderKey(key, value); err != nil {
			return model.Header{}, nil, &ParseError{Line: rl.num, Kind: "invalid_header_value", Message: err.Error()}
		}
	}

	if !b.sawFormat || b.header.Format != "opentab" {
		return model.Header{}, nil, &ParseError{Kind: "unsupported_format", Message: "missing or unsupported format (expected \"opentab\")"}
	}
	if !b.sawVersion || b.header.Version != "0.1" {
		return model.Header{}, nil, &ParseError{Kind: "unsupported_version", Message: "missing or unsupported version (expected \"0.1\")"}
	}
	return b.header, b.tracks, nil
}

func (b *headerBuilder) applyHeaderKey(key string, value any) error {
	switch key {
	case "format":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("format must be a string")
		}
		b.header.Format = s
		b.sawFormat = true
	case "version":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("version must be a string")
		}
		b.header.Version = s
		b.sawVersion = true
	case "title":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("title must be a string")
		}
		b.header.Title = s
	case "artist":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("artist must be a string")
		}
		b.header.Artist = s
	case "album":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("album must be a string")
		}
		b.header.Album = s
	case "composer":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("composer must be a string")
		}
		b.header.Composer = s
	case "source":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("source must be a string")
		}
		b.header.Source = s
	case "copyright":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("copyright must be a string")
		}
		b.header.Copyright = s
	case "tempo_bpm":
		n, ok := value.(float64)
		if !ok || n <= 0 || n != math.Trunc(n) {
			return fmt.Errorf("tempo_bpm must be a positive integer")
		}
		b.header.TempoBPM = int(n)
	case "time_signature":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("time_signature must be a string")
		}
		num, denom, err := parseTimeSignature(s)
		if err != nil {
			return err
		}
		b.header.TimeSigNum = num
		b.header.TimeSigDenom = denom
	case "swing":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("swing must be a string")
		}
		switch s {
		case "none":
			b.header.Swing = model.SwingNone
		case "eighth":
			b.header.Swing = model.SwingEighth
		default:
			return fmt.Errorf("swing must be \"none\" or \"eighth\", got %q", s)
		}
	default:
		b.header.Unknown[key] = value
	}
	return nil
}

// applyTrackKey handles keys inside the most recent [[tracks]] block.
// Keys outside the documented track field set are accepted and ignored:
// the track schema has no unknown-key bag (only the document header
// preserves unrecognized keys), and rejecting forward-compatible track
// metadata would make the grammar needlessly brittle.
func (b *headerBuilder) applyTrackKey(key string, value any) error {
	t := b.currentTrack
	switch key {
	case "id":
		s, ok := value.(string)
		if !ok || s == "" {
			return fmt.Errorf("track id must be a non-empty string")
		}
		t.ID = s
	case "name":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("track name must be a string")
		}
		t.Name = s
	case "instrument":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("track instrument must be a string")
		}
		t.Instrument = s
	case "tuning":
		arr, ok := value.([]any)
		if !ok {
			return fmt.Errorf("tuning must be an array of strings")
		}
		tuning := make([]string, 0, len(arr))
		for _, v := range arr {
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("tuning entries must be strings")
			}
			tuning = append(tuning, s)
		}
		t.Tuning = tuning
	case "capo":
		n, ok := value.(float64)
		if !ok || n < 0 || n != math.Trunc(n) {
			return fmt.Errorf("capo must be a non-negative integer")
		}
		t.Capo = int(n)
	}
	return nil
}

func parseTimeSignature(s string) (num, denom int, err error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("time_signature must be \"N/D\", got %q", s)
	}
	num, numErr := strconv.Atoi(strings.TrimSpace(parts[0]))
	denom, denomErr := strconv.Atoi(strings.TrimSpace(parts[1]))
	if numErr != nil || denomErr != nil || num < 1 {
		return 0, 0, fmt.Errorf("invalid time_signature %q", s)
	}
	if !validTimeSigDenominators[denom] {
		return 0, 0, fmt.Errorf("time_signature denominator %d is not one of 1, 2, 4, 8, 16, 32", denom)
	}
	return num, denom, nil
}

func splitKeyValue(line string) (key, value string, err error) {
	idx := strings.Index(line, "=")
	if idx < 0 {
		return "", "", fmt.Errorf("expected key=value, got %q", line)
	}
	key = strings.TrimSpace(line[:idx])
	value = strings.TrimSpace(line[idx+1:])
	if key == "" {
		return "", "", fmt.Errorf("empty key in %q", line)
	}
	return key, value, nil
}

// parseHeaderValue parses one TOML-subset scalar or array value: quoted
// string, boolean, number, or a bracketed array of the same.
func parseHeaderValue(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "true":
		return true, nil
	case raw == "false":
		return false, nil
	case strings.HasPrefix(raw, "\""):
		return parseQuotedString(raw)
	case strings.HasPrefix(raw, "["):
		return parseArrayValue(raw)
	default:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f, nil
		}
		return nil, fmt.Errorf("unrecognized header value %q", raw)
	}
}

func parseQuotedString(raw string) (string, error) {
	if len(raw) < 2 || raw[0] != '"' || raw[len(raw)-1] != '"' {
		return "", fmt.Errorf("malformed quoted string %q", raw)
	}
	inner := raw[1 : len(raw)-1]
	var b strings.Builder
	escaped := false
	for _, r := range inner {
		if escaped {
			switch r {
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			default:
				b.WriteRune(r)
			}
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		b.WriteRune(r)
	}
	return b.String(), nil
}

func parseArrayValue(raw string) ([]any, error) {
	if len(raw) < 2 || raw[0] != '[' || raw[len(raw)-1] != ']' {
		return nil, fmt.Errorf("malformed array %q", raw)
	}
	inner := strings.TrimSpace(raw[1 : len(raw)-1])
	if inner == "" {
		return []any{}, nil
	}
	parts := splitTopLevel(inner, ',')
	out := make([]any, 0, len(parts))
	for _, p := range parts {
		v, err := parseHeaderValue(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
