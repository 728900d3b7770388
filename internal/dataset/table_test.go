package dataset

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_AppendAndColumn(t *testing.T) {
	tbl := NewTable("t1", "RSSI", "DISTANCE")
	require.NoError(t, tbl.Append(-60, 1.5))
	require.NoError(t, tbl.Append(-70, 3.0))

	err := tbl.Append(-80)
	var se *SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "t1", se.Source)

	col, err := tbl.Column("DISTANCE")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 3.0}, col)

	_, err = tbl.Column("HUMIDITY")
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "HUMIDITY", se.Column)
}

func TestTable_Drop(t *testing.T) {
	tbl := NewTable("t", "MAJOR", "RSSI", "DISTANCE", "SCAN")
	require.NoError(t, tbl.Append(1, -60, 2.5, 9))

	out := tbl.Drop("MAJOR", "SCAN", "NOT_PRESENT")
	assert.Equal(t, []string{"RSSI", "DISTANCE"}, out.Columns)
	assert.Equal(t, [][]float64{{-60, 2.5}}, out.Rows)

	// Original is untouched.
	assert.Len(t, tbl.Columns, 4)
	assert.Equal(t, []float64{1, -60, 2.5, 9}, tbl.Rows[0])

	// Nothing to drop returns the same table.
	assert.Same(t, out, out.Drop("ADDRESS"))
}

func TestTable_ColumnOrder(t *testing.T) {
	tbl := NewTable("b.csv", "DISTANCE", "RSSI")

	order, err := tbl.columnOrder([]string{"RSSI", "DISTANCE"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, order)

	var se *SchemaError
	_, err = tbl.columnOrder([]string{"RSSI", "DISTANCE", "HUMIDITY"})
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "HUMIDITY", se.Column)
	assert.Equal(t, "b.csv", se.Source)

	_, err = tbl.columnOrder([]string{"RSSI"})
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "DISTANCE", se.Column)
	assert.Contains(t, se.Error(), "unexpected column")
}
