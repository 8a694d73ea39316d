package outparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToTable_PadsHeaderWithSyntheticNames(t *testing.T) {
	lines := []string{
		"Time Hyd001",
		"0.25 1.2 9.9",
		"0.50 1.4 8.8",
	}

	table, err := ToTable(lines)
	require.NoError(t, err)
	assert.Equal(t, []string{"Time", "Hyd001", "Extra_0"}, table.Header)
	assert.Equal(t, [][]string{{"0.25", "1.2", "9.9"}, {"0.50", "1.4", "8.8"}}, table.Rows)
}

func TestToTable_KeepsEmptySeparatorRows(t *testing.T) {
	table, err := ToTable([]string{"A B", "1 2", "", "3 4"})
	require.NoError(t, err)
	require.Len(t, table.Rows, 3)
	assert.Empty(t, table.Rows[1])
}

func TestToTable_HeaderWiderThanEveryRow(t *testing.T) {
	_, err := ToTable([]string{"A B C", "1 2", "3"})
	assert.ErrorContains(t, err, "header has 3 columns but widest row has 2")
}

func TestToTable_NoLines(t *testing.T) {
	_, err := ToTable(nil)
	assert.ErrorContains(t, err, "zero lines")
}

func TestColumn(t *testing.T) {
	table := &Table{
		Header: []string{"Time", "Hyd001"},
		Rows:   [][]string{{"0.25", "1.2"}, {"0.50"}},
	}

	got, err := table.Column("Hyd001")
	require.NoError(t, err)
	assert.Equal(t, []string{"1.2", ""}, got)
}

func TestColumn_NotFound(t *testing.T) {
	table := &Table{Header: []string{"Time"}}
	_, err := table.Column("Hyd099")
	assert.ErrorContains(t, err, `column "Hyd099" not found`)
}

func TestDropColumns(t *testing.T) {
	table := &Table{
		Header: []string{"Incs", "A", "ment", "B", "area"},
		Rows:   [][]string{{"1", "10", "x", "20", "y"}, {"2", "11", "x"}},
	}

	got := table.DropColumns("Incs", "ment", "area")
	assert.Equal(t, []string{"A", "B"}, got.Header)
	assert.Equal(t, [][]string{{"10", "20"}, {"11", ""}}, got.Rows)

	// Original table untouched.
	assert.Equal(t, []string{"Incs", "A", "ment", "B", "area"}, table.Header)
}

func TestSplitSummaryTable_MergesStackedBlocks(t *testing.T) {
	table := &Table{
		Header: []string{"Time", "Hyd001", "Hyd002"},
		Rows: [][]string{
			{"0.25", "1.2", "2.2"},
			{"0.50", "1.4", "2.4"},
			{},
			{"Time", "Hyd003"},
			{"0.25", "3.2"},
			{"0.50", "3.4"},
		},
	}

	got, err := SplitSummaryTable(table)
	require.NoError(t, err)
	assert.Equal(t, []string{"Time", "Hyd001", "Hyd002", "Hyd003"}, got.Header)
	assert.Equal(t, [][]string{
		{"0.25", "1.2", "2.2", "3.2"},
		{"0.50", "1.4", "2.4", "3.4"},
	}, got.Rows)
}

func TestSplitSummaryTable_NoSeparator(t *testing.T) {
	table := &Table{Header: []string{"Time"}, Rows: [][]string{{"0.25"}}}
	_, err := SplitSummaryTable(table)
	assert.ErrorContains(t, err, "no separator row")
}

func TestSplitSummaryTable_TrailingBlankLineAfterSecondBlock(t *testing.T) {
	table := &Table{
		Header: []string{"Time", "Hyd001"},
		Rows: [][]string{
			{"0.25", "1.2"},
			{"0.50", "1.4"},
			{},
			{"Time", "Hyd002"},
			{"0.25", "2.2"},
			{"0.50", "2.4"},
			{},
		},
	}

	got, err := SplitSummaryTable(table)
	require.NoError(t, err)
	assert.Equal(t, []string{"Time", "Hyd001", "Hyd002"}, got.Header)
	assert.Equal(t, [][]string{
		{"0.25", "1.2", "2.2"},
		{"0.50", "1.4", "2.4"},
	}, got.Rows)
}

func TestSplitSummaryTable_PadsShorterBlock(t *testing.T) {
	table := &Table{
		Header: []string{"Time", "Hyd001"},
		Rows: [][]string{
			{"0.25", "1.2"},
			{"0.50", "1.4"},
			{},
			{"Time", "Hyd002"},
			{"0.25", "2.2"},
		},
	}

	got, err := SplitSummaryTable(table)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"0.25", "1.2", "2.2"},
		{"0.50", "1.4", ""},
	}, got.Rows)
}

func TestSplitSummaryTable_EndsAtSeparator(t *testing.T) {
	table := &Table{Header: []string{"Time"}, Rows: [][]string{{"0.25"}, {}}}
	_, err := SplitSummaryTable(table)
	assert.ErrorContains(t, err, "ends at the separator row")
}
