// =============================================================================
// FEWS-RORB Adapter - RORB Numeric Layout
// =============================================================================
//
// This module renders sequences of numbers and strings into the fixed-width,
// line-wrapped text blocks that the RORB command-line model expects in its
// input files (.stm, .par, .dat).
//
// LAYOUT RULES:
//   - Values are split into consecutive chunks of a fixed item count.
//   - Each chunk becomes one line, items joined with ", ".
//   - Lines are joined with "\n".
//   - A terminator (commonly the literal ", -99" end-of-block sentinel RORB
//     requires) is appended once to the final joined text, never per line.
//   - Floats are rendered fixed-point with an exact number of fractional
//     digits and a period decimal separator regardless of locale; integers
//     and strings are rendered literally.
//
// These rules encode undocumented positional contracts of the RORB parser
// and must not be changed without re-testing against the model itself.
//
// =============================================================================

package rorbfmt

import (
	"strconv"
	"strings"
)

// =============================================================================
// VALUE TOKENS
// =============================================================================

// Value is a single token of a RORB numeric block: a float (formatted to the
// block's decimal precision), an int (rendered literally), or a string
// (rendered verbatim, used for pre-formatted or non-numeric entries).
type Value struct {
	f float64
	i int
	s string
	k kind
}

type kind int

const (
	kindFloat kind = iota
	kindInt
	kindString
)

// Float wraps a float64 token.
func Float(v float64) Value { return Value{f: v, k: kindFloat} }

// Int wraps an int token.
func Int(v int) Value { return Value{i: v, k: kindInt} }

// Str wraps a literal string token.
func Str(v string) Value { return Value{s: v, k: kindString} }

// Floats wraps a float64 slice as a token sequence.
func Floats(vs []float64) []Value {
	out := make([]Value, len(vs))
	for i, v := range vs {
		out[i] = Float(v)
	}
	return out
}

// Ints wraps an int slice as a token sequence.
func Ints(vs []int) []Value {
	out := make([]Value, len(vs))
	for i, v := range vs {
		out[i] = Int(v)
	}
	return out
}

// render formats one token with the given fractional precision.
func (v Value) render(decimals int) string {
	switch v.k {
	case kindFloat:
		return strconv.FormatFloat(v.f, 'f', decimals, 64)
	case kindInt:
		return strconv.Itoa(v.i)
	default:
		return v.s
	}
}

// =============================================================================
// BLOCK FORMATTING
// =============================================================================

// EndSentinel is the ", -99" block terminator most RORB numeric blocks need.
const EndSentinel = ", -99"

// FormatSeries renders values into a fixed-width, line-wrapped RORB block.
//
// PARAMETERS:
//   - values: the ordered tokens of the block.
//   - decimals: exact fractional digit count applied to float tokens.
//   - itemsPerLine: number of tokens per line; every line except possibly
//     the last carries exactly this many tokens.
//   - terminator: appended verbatim once at the very end of the whole block.
//
// An empty input produces the terminator alone.
func FormatSeries(values []Value, decimals, itemsPerLine int, terminator string) string {
	if itemsPerLine < 1 {
		itemsPerLine = 1
	}

	var lines []string
	for start := 0; start < len(values); start += itemsPerLine {
		end := start + itemsPerLine
		if end > len(values) {
			end = len(values)
		}

		items := make([]string, 0, end-start)
		for _, v := range values[start:end] {
			items = append(items, v.render(decimals))
		}
		lines = append(lines, strings.Join(items, ", "))
	}

	return strings.Join(lines, "\n") + terminator
}

// FormatFloatSeries is FormatSeries for a plain float64 sequence.
func FormatFloatSeries(values []float64, decimals, itemsPerLine int, terminator string) string {
	return FormatSeries(Floats(values), decimals, itemsPerLine, terminator)
}

// JoinLines joins pre-rendered entries one per line. Used for the file and
// storage lists of the multi-gate template.
func JoinLines(entries []string) string {
	return strings.Join(entries, "\n")
}
