// =============================================================================
// FEWS-RORB Adapter - RORB Report Section Parser
// =============================================================================
//
// This module recovers structured tables from the free-form text report
// (.out file) RORB writes after a run. The report has no schema; section
// boundaries exist only as literal marker phrases printed by the model.
// Those phrases are bit-exact contract points and must not be altered:
//
//   "Input of parameters:"
//   "Routing results:"
//   "Rainfall, mm, in time inc. following time shown"
//   "Pluvi. ref. no."
//   "Incs"
//   "Tot."
//   "Hyd001"
//
// PARSING MODEL:
//   ExtractSection runs a two-state line machine (OUTSIDE/INSIDE) over the
//   report and yields a Section: a working copy of the matched lines. The
//   Section is then consumed by a single forward pass; repeated sub-blocks
//   are cut out of it one at a time, and every deletion strictly shrinks
//   the working copy, so forward progress is guaranteed.
//
// FAILURE SEMANTICS:
//   A marker that never occurs is a hard error. The adapter is a batch tool
//   with no partial-success mode; callers abort the whole translation.
//
// =============================================================================

package outparser

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

var (
	// dateRangeRe matches the "<start> - <end>" timestamp pair RORB prints
	// in the storm description lines.
	dateRangeRe = regexp.MustCompile(`(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}) - (\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})`)

	// stepHoursRe matches the "<N> hours" time increment phrase.
	stepHoursRe = regexp.MustCompile(`([\d.]+) hours`)
)

// Section is a contiguous run of report lines bounded by marker phrases.
// It is progressively consumed: sub-sections are deleted as parsing walks
// forward, and the remaining unparsed range only ever shrinks.
type Section struct {
	lines []string
}

// NewSection wraps a line slice as a working section. Used by tests and by
// callers that already hold lines.
func NewSection(lines []string) *Section {
	return &Section{lines: append([]string(nil), lines...)}
}

// Lines returns the remaining lines of the section.
func (s *Section) Lines() []string {
	return s.lines
}

// Len returns the number of remaining lines.
func (s *Section) Len() int {
	return len(s.lines)
}

// Contains reports whether any remaining line contains the phrase.
func (s *Section) Contains(phrase string) bool {
	for _, line := range s.lines {
		if strings.Contains(line, phrase) {
			return true
		}
	}
	return false
}

// =============================================================================
// SECTION EXTRACTION
// =============================================================================

// ExtractSection scans the report for the section delimited by the marker
// phrases.
//
// The scan transitions OUTSIDE -> INSIDE on the first line containing
// startMarker (that line is included) and stops, excluding the end line, on
// the first later line containing endMarker. An empty endMarker collects
// everything to the end of input. Lines are whitespace-trimmed as the
// original report pads columns with spaces.
//
// ExtractSection fails when no lines were collected, i.e. the start marker
// never occurred.
func ExtractSection(r io.Reader, startMarker, endMarker string) (*Section, error) {
	var collected []string
	inside := false

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if strings.Contains(line, startMarker) && !inside {
			inside = true
			collected = append(collected, strings.TrimSpace(line))
			continue
		}
		if inside && endMarker != "" && strings.Contains(line, endMarker) {
			break
		}
		if inside {
			collected = append(collected, strings.TrimSpace(line))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan report: %w", err)
	}

	if len(collected) == 0 {
		return nil, fmt.Errorf("marker %q not found in report", startMarker)
	}
	return &Section{lines: collected}, nil
}

// =============================================================================
// SUB-SECTION REMOVAL
// =============================================================================

// DeleteSubsection removes the first sub-block delimited by the phrases,
// inclusive of both boundary lines.
//
// The model embeds an unbounded number of repeated boilerplate blocks inside
// the parameter section; callers strip them by looping while
// Contains(startPhrase) holds. Every call strictly shrinks the section.
func (s *Section) DeleteSubsection(startPhrase, endPhrase string) error {
	start := s.indexOf(startPhrase, 0)
	if start < 0 {
		return fmt.Errorf("sub-section start %q not found", startPhrase)
	}
	end := s.indexOf(endPhrase, start+1)
	if end < 0 {
		return fmt.Errorf("sub-section end %q not found after %q", endPhrase, startPhrase)
	}

	s.deleteRange(start, end+1)
	return nil
}

// indexOf returns the index of the first line at or after from containing
// the phrase, or -1.
func (s *Section) indexOf(phrase string, from int) int {
	for i := from; i < len(s.lines); i++ {
		if strings.Contains(s.lines[i], phrase) {
			return i
		}
	}
	return -1
}

// deleteRange removes lines [start, end). The section must shrink.
func (s *Section) deleteRange(start, end int) {
	if end <= start {
		// Forward-progress invariant: a deletion always removes at least
		// one line. Callers guarantee end > start.
		panic("outparser: empty section deletion")
	}
	s.lines = append(s.lines[:start], s.lines[end:]...)
}

// =============================================================================
// RAINFALL EXCESS TABLES
// =============================================================================

// ExtractRainfallExcess pulls the next rainfall-excess sub-table out of the
// section and deletes the consumed span, so repeated calls walk forward
// through the homogeneous sub-tables of the parameter section.
//
// The span runs from the first line containing "Incs" to the first later
// line containing "Tot.". The first span line supplies the header tokens;
// the first two and the last span lines are non-data (column header rail,
// units line, and the separator before the totals) and are dropped. A data
// row narrower than the header is right-padded with empty cells; a row
// wider than the header is a structural error.
func (s *Section) ExtractRainfallExcess() (*Table, error) {
	start := s.indexOf("Incs", 0)
	if start < 0 {
		return nil, fmt.Errorf("rainfall excess label %q not found", "Incs")
	}
	end := s.indexOf("Tot.", start+1)
	if end < 0 {
		return nil, fmt.Errorf("rainfall excess terminator %q not found", "Tot.")
	}

	span := s.lines[start:end]
	if len(span) < 3 {
		return nil, fmt.Errorf("rainfall excess block too short (%d lines)", len(span))
	}

	header := strings.Fields(span[0])
	dataLines := span[2 : len(span)-1]

	rows := make([][]string, 0, len(dataLines))
	for _, line := range dataLines {
		row := strings.Fields(line)
		if len(row) > len(header) {
			return nil, fmt.Errorf("rainfall excess row has %d cells, header has %d", len(row), len(header))
		}
		for len(row) < len(header) {
			row = append(row, "")
		}
		rows = append(rows, row)
	}

	s.deleteRange(start, end+1)
	return &Table{Header: header, Rows: rows}, nil
}

// =============================================================================
// CALCULATION ORDER MAPPING
// =============================================================================

// MapCalcOrder maps the model's anonymous numeric sub-area references to the
// stable identifiers of the calculation order.
//
// For every line containing the keyword, the keyword is stripped, the
// remainder split into 1-based reference tokens, and each token mapped to
// orderedNames[token-1]. One label list is returned per matching line, in
// line order.
func MapCalcOrder(lines []string, keyword string, orderedNames []string) ([][]string, error) {
	var mapped [][]string
	for _, line := range lines {
		if !strings.Contains(line, keyword) {
			continue
		}

		tokens := strings.Fields(strings.ReplaceAll(line, keyword, ""))
		labels := make([]string, 0, len(tokens))
		for _, tok := range tokens {
			ref, err := strconv.Atoi(tok)
			if err != nil {
				return nil, fmt.Errorf("invalid reference %q after %q: %w", tok, keyword, err)
			}
			if ref < 1 || ref > len(orderedNames) {
				return nil, fmt.Errorf("reference %d outside calculation order of length %d", ref, len(orderedNames))
			}
			labels = append(labels, orderedNames[ref-1])
		}
		mapped = append(mapped, labels)
	}
	return mapped, nil
}

// =============================================================================
// DATE RANGE AND TIME INCREMENT
// =============================================================================

// DateRangeAndStep scans every remaining line with two independent pattern
// searches: a "<start> - <end>" timestamp pair and a "<N> hours" duration.
// The last match of each across the section wins, yielding one
// (start, end, stepHours) triple for the whole section.
func (s *Section) DateRangeAndStep() (start, end string, stepHours float64, err error) {
	foundRange := false
	foundStep := false

	for _, line := range s.lines {
		if m := dateRangeRe.FindStringSubmatch(line); m != nil {
			start, end = m[1], m[2]
			foundRange = true
		}
		if m := stepHoursRe.FindStringSubmatch(line); m != nil {
			v, perr := strconv.ParseFloat(m[1], 64)
			if perr == nil {
				stepHours = v
				foundStep = true
			}
		}
	}

	if !foundRange {
		return "", "", 0, fmt.Errorf("no timestamp range found in section")
	}
	if !foundStep {
		return "", "", 0, fmt.Errorf("no time increment found in section")
	}
	return start, end, stepHours, nil
}
