package rorbfmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatSeries_WrapsAtItemsPerLine(t *testing.T) {
	values := Ints([]int{1, 2, 3, 4, 5})
	got := FormatSeries(values, 0, 2, EndSentinel)
	assert.Equal(t, "1, 2\n3, 4\n5, -99", got)
}

func TestFormatSeries_TerminatorAppendedOnce(t *testing.T) {
	got := FormatSeries(Ints([]int{1, 2, 3, 4}), 0, 2, EndSentinel)
	assert.Equal(t, "1, 2\n3, 4, -99", got)
}

func TestFormatSeries_EmptyInputYieldsTerminatorAlone(t *testing.T) {
	assert.Equal(t, EndSentinel, FormatSeries(nil, 0, 10, EndSentinel))
	assert.Equal(t, "", FormatSeries(nil, 0, 10, ""))
}

func TestFormatSeries_MixedValueKinds(t *testing.T) {
	values := []Value{Str("0.25"), Int(13), Float(1.5)}
	got := FormatSeries(values, 0, 10, EndSentinel)
	assert.Equal(t, "0.25, 13, 2, -99", got)
}

func TestFormatSeries_ItemsPerLineBelowOne(t *testing.T) {
	got := FormatSeries(Ints([]int{1, 2}), 0, 0, "")
	assert.Equal(t, "1\n2", got)
}

func TestFormatFloatSeries_FixedDecimals(t *testing.T) {
	got := FormatFloatSeries([]float64{1.005, 2, 3.14159}, 2, 10, EndSentinel)
	assert.Equal(t, "1.00, 2.00, 3.14, -99", got)
}

func TestFormatFloatSeries_OnePerLine(t *testing.T) {
	got := FormatFloatSeries([]float64{10, 20}, 0, 1, "")
	assert.Equal(t, "10\n20", got)
}

func TestJoinLines(t *testing.T) {
	assert.Equal(t, "a\nb\nc", JoinLines([]string{"a", "b", "c"}))
	assert.Equal(t, "", JoinLines(nil))
}
