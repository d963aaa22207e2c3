// Package parser converts OpenTab source text into a model.Document. It is
// strict: any grammar violation is reported as a positioned *ParseError and
// nothing is returned.
package parser

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/homeputers/opentab/internal/model"
)

var measureLinePattern = regexp.MustCompile(`^m(\d+):\s*\|(.*)\|\s*(#.*)?$`)
var directivePattern = regexp.MustCompile(`^@track\s+(\S+)(?:\s+voice\s+(\S+))?$`)

type rawLine struct {
	num  int
	text string
}

// Parse converts OpenTab source text into a Document. CRLF and lone-CR line
// endings are normalized to LF before scanning.
func Parse(src string) (*model.Document, error) {
	normalized := strings.ReplaceAll(src, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	lines := strings.Split(normalized, "\n")

	delimiterIdx := -1
	for i, l := range lines {
		if strings.TrimSpace(l) == "---" {
			delimiterIdx = i
			break
		}
	}
	if delimiterIdx == -1 {
		return nil, &ParseError{Kind: "missing_delimiter", Message: "missing \"---\" header delimiter"}
	}

	headerLines := make([]rawLine, 0, delimiterIdx)
	for i := 0; i < delimiterIdx; i++ {
		headerLines = append(headerLines, rawLine{num: i + 1, text: lines[i]})
	}
	bodyLines := make([]rawLine, 0, len(lines)-delimiterIdx-1)
	for i := delimiterIdx + 1; i < len(lines); i++ {
		bodyLines = append(bodyLines, rawLine{num: i + 1, text: lines[i]})
	}

	header, tracks, err := parseHeader(headerLines)
	if err != nil {
		return nil, err
	}
	if err := checkTrackIDs(tracks); err != nil {
		return nil, err
	}

	measures, err := parseBody(bodyLines)
	if err != nil {
		return nil, err
	}

	return &model.Document{Header: header, Tracks: tracks, Measures: measures}, nil
}

func checkTrackIDs(tracks []model.Track) error {
	seen := make(map[string]bool, len(tracks))
	for _, t := range tracks {
		if t.ID == "" {
			return &ParseError{Kind: "invalid_track", Message: "track is missing a required id"}
		}
		if seen[t.ID] {
			return &ParseError{Kind: "duplicate_track_id", Message: fmt.Sprintf("duplicate track id %q", t.ID)}
		}
		seen[t.ID] = true
	}
	return nil
}

func parseBody(lines []rawLine) ([]model.Measure, error) {
	activeTrack := ""
	activeVoice := ""
	haveDirective := false

	byIndex := map[int]*model.Measure{}
	var order []int

	getMeasure := func(idx int) *model.Measure {
		if m, ok := byIndex[idx]; ok {
			return m
		}
		m := &model.Measure{Index: idx, Tracks: map[string]model.TrackMeasure{}}
		byIndex[idx] = m
		order = append(order, idx)
		return m
	}

	for _, rl := range lines {
		trimmed := strings.TrimSpace(rl.text)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if m := directivePattern.FindStringSubmatch(trimmed); m != nil {
			activeTrack = m[1]
			if m[2] != "" {
				activeVoice = m[2]
			} else {
				activeVoice = "v1"
			}
			haveDirective = true
			continue
		}

		if m := measureLinePattern.FindStringSubmatch(rl.text); m != nil {
			if !haveDirective {
				return nil, &ParseError{Line: rl.num, Kind: "missing_directive", Message: "Measure defined before selecting track/voice"}
			}
			idx, convErr := strconv.Atoi(m[1])
			if convErr != nil || idx <= 0 {
				return nil, &ParseError{Line: rl.num, Kind: "invalid_measure_index", Message: fmt.Sprintf("invalid measure index %q", m[1])}
			}
			events, err := parseMeasureTokens(m[2], rl.num)
			if err != nil {
				return nil, err
			}

			measure := getMeasure(idx)
			tm, ok := measure.Tracks[activeTrack]
			if !ok {
				tm = model.TrackMeasure{Voices: map[string]model.Voice{}}
			}
			// Last-writer-wins within the same (index, track, voice): a
			// second measure line for the same triple replaces the first
			// wholesale rather than merging event lists.
			tm.Voices[activeVoice] = events
			measure.Tracks[activeTrack] = tm
			continue
		}

		return nil, &ParseError{Line: rl.num, Kind: "unknown_body_line", Message: fmt.Sprintf("unrecognized body line %q", rl.text)}
	}

	sort.Ints(order)
	out := make([]model.Measure, 0, len(order))
	for _, idx := range order {
		out = append(out, *byIndex[idx])
	}
	return out, nil
}
