package dataset

import (
	"testing"
	"time"

	"civicprofile/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsDuplicateAndRaggedColumns(t *testing.T) {
	_, err := New("dup",
		NewColumn("a", []Value{NewInteger(1)}),
		NewColumn("a", []Value{NewInteger(2)}),
	)
	assert.ErrorIs(t, err, core.ErrDuplicateName)

	_, err = New("ragged",
		NewColumn("a", []Value{NewInteger(1), NewInteger(2)}),
		NewColumn("b", []Value{NewInteger(1)}),
	)
	assert.ErrorIs(t, err, core.ErrRaggedColumns)
	assert.True(t, core.IsSchemaError(err))
}

func TestColumnLookup(t *testing.T) {
	ds, err := New("calls",
		NewColumn("SR_TYPE", []Value{NewText("Pothole"), Missing()}),
		NewColumn("WARD", []Value{NewInteger(3), NewInteger(4)}),
	)
	require.NoError(t, err)

	assert.Equal(t, 2, ds.RowCount())
	assert.Equal(t, []string{"SR_TYPE", "WARD"}, ds.ColumnNames())

	col, err := ds.Column("SR_TYPE")
	require.NoError(t, err)
	assert.Equal(t, 1, col.MissingCount())

	_, err = ds.Column("LATITUDE")
	assert.True(t, core.IsSchemaError(err))

	row := ds.Row(0)
	assert.Equal(t, "Pothole", row.Get("SR_TYPE").Label())
	assert.True(t, row.Get("nope").IsMissing())
}

func TestColumnsAreImmutable(t *testing.T) {
	values := []Value{NewText("a"), NewText("b")}
	col := NewColumn("x", values)
	values[0] = Missing()
	assert.Equal(t, "a", col.Value(0).Label())

	out := col.Values()
	out[1] = Missing()
	assert.Equal(t, "b", col.Value(1).Label())
}

func TestBuilderPadsShortRows(t *testing.T) {
	b := NewBuilder("violations", []string{"ID", "ORDINANCE", "DATE"})
	b.AppendRow([]Value{NewInteger(1), NewText("13-12-100")})
	b.AppendRow([]Value{NewInteger(2), NewText("13-12-100"), NewDate(time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)), NewText("extra")})

	ds, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, 2, ds.RowCount())
	assert.True(t, ds.Row(0).Get("DATE").IsMissing())
	assert.Equal(t, "2020-01-02", ds.Row(1).Get("DATE").Label())
}

func TestValueLabels(t *testing.T) {
	tests := []struct {
		value    Value
		expected string
	}{
		{NewInteger(42), "42"},
		{NewFloat(41.88), "41.88"},
		{NewText("NO PERMIT"), "NO PERMIT"},
		{NewBoolean(true), "true"},
		{NewDate(time.Date(2021, 6, 15, 0, 0, 0, 0, time.UTC)), "2021-06-15"},
		{NewDate(time.Date(2021, 6, 15, 13, 5, 0, 0, time.UTC)), "2021-06-15 13:05:00"},
		{Missing(), ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.value.Label())
	}
	assert.Equal(t, "<missing>", Missing().String())
	assert.True(t, Value{}.IsMissing())
}

func TestValueEqual(t *testing.T) {
	assert.True(t, NewInteger(1).Equal(NewInteger(1)))
	assert.False(t, NewInteger(1).Equal(NewFloat(1)))
	assert.True(t, Missing().Equal(Value{}))
}
