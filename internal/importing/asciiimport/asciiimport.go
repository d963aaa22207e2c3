// Package asciiimport recovers OpenTab structure from unstructured
// "internet tab" text: a best-effort, warning-producing pipeline that never
// fails outright. Its line-by-line scan with section state is grounded on
// the teacher pack's ParseChartFile (chart.go), adapted from a bracketed
// [Section]{...} grammar to plain metadata lines and pipe-delimited tab
// rows.
package asciiimport

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"
	"golang.org/x/text/cases"

	"github.com/homeputers/opentab/internal/format"
)

// RhythmStrategy selects how note timing is inferred from column position.
type RhythmStrategy string

const (
	RhythmUnknown     RhythmStrategy = "unknown"
	RhythmFixedEighth RhythmStrategy = "fixed-eighth"
	RhythmColumnGrid  RhythmStrategy = "column-grid"
)

// Result is the outcome of importing one ASCII tab document.
type Result struct {
	Source   string
	Warnings []string
}

var foldCase = cases.Fold()

var tabRowPattern = regexp.MustCompile(`^\S{1,4}\s*\|`)
var sectionPattern = regexp.MustCompile(`^\[(.+)\]$`)
var noteHitPattern = regexp.MustCompile(`(\(?)(\d+)(\)?)((?:(?:h|p|/|\\)\d+|~)*)(?:(b)(\d*))?`)

type tabBlock struct {
	section string
	rows    []string
}

// Import converts raw ASCII tab text to canonical OpenTab source text. It
// never returns an error: anything it cannot confidently interpret is
// recorded as a warning instead.
func Import(text string, rhythm RhythmStrategy) Result {
	if rhythm == "" {
		rhythm = RhythmUnknown
	}

	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(normalized, "\n")

	var warnings []string
	var blocks []tabBlock
	meta := metadata{}
	titleFallback := ""
	currentSection := ""
	sawTabRow := false

	i := 0
	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			i++
			continue
		}

		if tabRowPattern.MatchString(trimmed) {
			var rows []string
			for i < len(lines) && tabRowPattern.MatchString(strings.TrimSpace(lines[i])) {
				rows = append(rows, lines[i])
				i++
			}
			if len(rows) != 6 {
				warnings = append(warnings, fmt.Sprintf("tab block has %d rows, expected 6", len(rows)))
			}
			blocks = append(blocks, tabBlock{section: currentSection, rows: rows})
			currentSection = ""
			sawTabRow = true
			continue
		}

		if m := sectionPattern.FindStringSubmatch(trimmed); m != nil {
			currentSection = m[1]
			i++
			continue
		}

		if !sawTabRow {
			if v, ok := matchMetaKey(trimmed, "title"); ok {
				meta.title = v
			} else if v, ok := matchMetaKey(trimmed, "tuning"); ok {
				meta.tuning = parseTuningList(v)
			} else if v, ok := matchMetaKey(trimmed, "capo"); ok {
				meta.capo = parseCapo(v)
			} else if v, ok := matchMetaKey(trimmed, "key"); ok {
				meta.key = v
			} else if titleFallback == "" && !looksLikeChordLine(trimmed) {
				titleFallback = trimmed
			}
		}
		i++
	}

	if meta.title == "" {
		meta.title = titleFallback
	}

	var bodyLines []string
	measureIndex := 1
	for _, blk := range blocks {
		if blk.section != "" {
			bodyLines = append(bodyLines, fmt.Sprintf("# [%s]", blk.section))
		}
		measures, blockWarnings := processBlock(blk.rows, rhythm)
		warnings = append(warnings, blockWarnings...)
		for _, tokens := range measures {
			bodyLines = append(bodyLines, fmt.Sprintf("m%d: | %s |", measureIndex, strings.Join(tokens, " ")))
			measureIndex++
		}
	}

	src := buildSource(meta, len(warnings), bodyLines)
	formatted, err := format.Format(src)
	if err != nil {
		// The emitted body is always well-formed, but fall back to the raw
		// source rather than fail the importer if something slipped
		// through unformatted.
		formatted = src
		warnings = append(warnings, fmt.Sprintf("could not canonicalize emitted source: %v", err))
	}

	return Result{Source: formatted, Warnings: warnings}
}

type metadata struct {
	title  string
	tuning []string
	capo   int
	key    string
}

func matchMetaKey(line, key string) (string, bool) {
	folded := foldCase.String(line)
	foldedKey := foldCase.String(key) + ":"
	if !strings.HasPrefix(folded, foldedKey) {
		return "", false
	}
	return strings.TrimSpace(line[len(foldedKey):]), true
}

func parseTuningList(v string) []string {
	v = strings.Trim(v, "[]")
	var out []string
	for _, part := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' }) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseCapo(v string) int {
	folded := foldCase.String(strings.TrimSpace(v))
	if folded == "no capo" || folded == "none" || folded == "" {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return n
}

var chordLinePattern = regexp.MustCompile(`^([A-G][#b]?(m|maj|min|sus|dim|aug|add)?\d*(/[A-G][#b]?)?\s*)+$`)

func looksLikeChordLine(line string) bool {
	return chordLinePattern.MatchString(line)
}

// noteHit is one fretted position found by scanning a single tab row.
type noteHit struct {
	row        int
	col        int
	fret       int
	ghost      bool
	techniques string
	bend       bool
	bendTo     *int
}

// processBlock splits a 6-row tab block into measures by bar position and
// converts each measure slice into a sequence of OpenTab event tokens.
func processBlock(rows []string, rhythm RhythmStrategy) ([][]string, []string) {
	var warnings []string
	if len(rows) == 0 {
		return nil, warnings
	}

	reference := longestRow(rows)
	barCols := pipeColumns(reference)
	if len(barCols) < 2 {
		warnings = append(warnings, "tab block has no usable bar positions; treating as a single measure")
		barCols = []int{0, len(reference)}
	}

	totalStrings := len(rows)
	var measures [][]string

	for mi := 0; mi+1 < len(barCols); mi++ {
		start, end := barCols[mi]+1, barCols[mi+1]
		var hits []noteHit
		for rowIdx, row := range rows {
			if end > len(row) {
				if start < len(row) {
					warnings = append(warnings, fmt.Sprintf("row %d is shorter than the reference row; measure may be misaligned", rowIdx+1))
				}
				continue
			}
			slice := row[start:end]
			hits = append(hits, scanRow(rowIdx, slice)...)
		}

		tokens, warns := hitsToTokens(hits, totalStrings, end-start, rhythm)
		warnings = append(warnings, warns...)
		measures = append(measures, tokens)
	}

	return measures, warnings
}

func longestRow(rows []string) string {
	longest := rows[0]
	for _, r := range rows {
		if len(r) > len(longest) {
			longest = r
		}
	}
	return longest
}

func pipeColumns(row string) []int {
	var cols []int
	for i, c := range row {
		if c == '|' {
			cols = append(cols, i)
		}
	}
	return cols
}

func scanRow(rowIdx int, slice string) []noteHit {
	var hits []noteHit
	for _, m := range noteHitPattern.FindAllStringSubmatchIndex(slice, -1) {
		fretStr := slice[m[4]:m[5]]
		fret, err := strconv.Atoi(fretStr)
		if err != nil {
			continue
		}
		ghost := m[2] != m[3]
		techniques := slice[m[8]:m[9]]
		hit := noteHit{row: rowIdx, col: m[0], fret: fret, ghost: ghost, techniques: techniques}
		if m[10] != -1 {
			hit.bend = true
			if bendDigits := slice[m[12]:m[13]]; bendDigits != "" {
				n, err := strconv.Atoi(bendDigits)
				if err == nil {
					hit.bend = false
					hit.bendTo = &n
				}
			}
		}
		hits = append(hits, hit)
	}
	return hits
}

// hitsToTokens groups hits within column distance 1 into chords, assigns
// rhythm per the chosen strategy, and renders OpenTab event tokens.
func hitsToTokens(hits []noteHit, totalStrings, measureWidth int, rhythm RhythmStrategy) ([]string, []string) {
	var warnings []string
	if len(hits) == 0 {
		return []string{"q", "r"}, warnings
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].col < hits[j].col })

	var groups [][]noteHit
	for _, h := range hits {
		if len(groups) > 0 {
			last := groups[len(groups)-1]
			if h.col-last[len(last)-1].col <= 1 {
				groups[len(groups)-1] = append(last, h)
				continue
			}
		}
		groups = append(groups, []noteHit{h})
	}

	durations, durWarnings := assignDurations(groups, measureWidth, rhythm)
	warnings = append(warnings, durWarnings...)

	var tokens []string
	lastDur := ""
	for gi, group := range groups {
		dur := durations[gi]
		if dur != lastDur {
			tokens = append(tokens, dur)
			lastDur = dur
		}
		tokens = append(tokens, groupToken(group, totalStrings, rhythm))
	}
	return tokens, warnings
}

func groupToken(group []noteHit, totalStrings int, rhythm RhythmStrategy) string {
	// A lone note IS the event: its annotations (ghost/bend) and the
	// event-level rhythm annotation share a single trailing {...} block.
	// A chord's notes carry their own annotations inside the brackets, and
	// the chord as a whole carries rhythm in its own outer block.
	if len(group) == 1 {
		h := group[0]
		entries := noteAnnotationEntries(h)
		if rhythm == RhythmUnknown {
			entries = append(entries, `rhythm="unknown"`)
		}
		note := fmt.Sprintf("(%d:%d%s)", totalStrings-h.row, h.fret, h.techniques)
		if len(entries) > 0 {
			note += "{" + strings.Join(entries, ", ") + "}"
		}
		return note
	}

	var parts []string
	for _, h := range group {
		note := fmt.Sprintf("(%d:%d%s)", totalStrings-h.row, h.fret, h.techniques)
		if entries := noteAnnotationEntries(h); len(entries) > 0 {
			note += "{" + strings.Join(entries, ", ") + "}"
		}
		parts = append(parts, note)
	}
	chord := "[ " + strings.Join(parts, " ") + " ]"
	if rhythm == RhythmUnknown {
		chord += `{rhythm="unknown"}`
	}
	return chord
}

// noteAnnotationEntries returns the "key=value" entries describing a
// fretted note's ghost/bend markers, or nil if it has neither.
func noteAnnotationEntries(h noteHit) []string {
	var entries []string
	if h.ghost {
		entries = append(entries, "ghost=true")
	}
	if h.bendTo != nil {
		entries = append(entries, fmt.Sprintf("bend_to=%d", *h.bendTo))
	} else if h.bend {
		entries = append(entries, "bend=true")
	}
	return entries
}

// assignDurations picks a Duration token per group. "unknown" and
// "fixed-eighth" both use a flat eighth-note grid; "column-grid" estimates
// a grid size from the modal inter-event column gap.
func assignDurations(groups [][]noteHit, measureWidth int, rhythm RhythmStrategy) ([]string, []string) {
	durations := make([]string, len(groups))
	if rhythm != RhythmColumnGrid {
		for i := range durations {
			durations[i] = "e"
		}
		return durations, nil
	}

	var warnings []string
	if len(groups) < 2 || measureWidth <= 0 {
		for i := range durations {
			durations[i] = "e"
		}
		return durations, warnings
	}

	gaps := make([]float64, 0, len(groups)-1)
	for i := 1; i < len(groups); i++ {
		gaps = append(gaps, float64(groups[i][0].col-groups[i-1][0].col))
	}
	modalGap, err := stats.Mode(gaps)
	if err != nil || len(modalGap) == 0 {
		for i := range durations {
			durations[i] = "e"
		}
		return durations, warnings
	}

	gridSizes := []int{4, 8, 16, 32}
	gridBases := map[int]string{4: "q", 8: "e", 16: "s", 32: "t"}
	best := gridSizes[0]
	bestDiff := -1.0
	for _, g := range gridSizes {
		stepWidth := float64(measureWidth) / float64(g)
		diff := stepWidth - modalGap[0]
		if diff < 0 {
			diff = -diff
		}
		if bestDiff < 0 || diff < bestDiff {
			bestDiff = diff
			best = g
		}
	}

	warnings = append(warnings, "column-grid rhythm assignment is approximate")
	for i := range durations {
		durations[i] = gridBases[best]
	}
	return durations, warnings
}

func buildSource(meta metadata, warningCount int, bodyLines []string) string {
	var header strings.Builder
	header.WriteString("format = \"opentab\"\n")
	header.WriteString("version = \"0.1\"\n")
	if meta.title != "" {
		fmt.Fprintf(&header, "title = %q\n", meta.title)
	}
	header.WriteString("tempo_bpm = 120\n")
	header.WriteString("time_signature = \"4/4\"\n")
	if meta.key != "" {
		fmt.Fprintf(&header, "key = %q\n", meta.key)
	}
	header.WriteString("imported_from = \"ascii\"\n")
	fmt.Fprintf(&header, "import_warnings = %d\n", warningCount)
	header.WriteString("\n[[tracks]]\n")
	header.WriteString("id = \"gtr1\"\n")
	if len(meta.tuning) > 0 {
		var quoted []string
		for _, s := range meta.tuning {
			quoted = append(quoted, fmt.Sprintf("%q", s))
		}
		fmt.Fprintf(&header, "tuning = [%s]\n", strings.Join(quoted, ", "))
	}
	if meta.capo > 0 {
		fmt.Fprintf(&header, "capo = %d\n", meta.capo)
	}

	var out strings.Builder
	out.WriteString(header.String())
	out.WriteString("---\n")
	out.WriteString("@track gtr1\n")
	for _, l := range bodyLines {
		out.WriteString(l)
		out.WriteByte('\n')
	}
	return out.String()
}
