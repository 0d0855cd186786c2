package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetHeadersAssignsStableOrdinals(t *testing.T) {
	m := NewModel()
	m.SetHeaders([]Header{
		{Name: "id", Label: "ID"},
		{Name: "name", Label: "Name"},
		{Name: "amount", Label: "Amount"},
	})

	headers := m.Headers()
	assert.Len(t, headers, 3)
	for i, h := range headers {
		assert.Equal(t, i, h.Ordinal)
	}
	assert.True(t, m.HeadersDefined())
}

func TestReRegisterHeaderKeepsOrdinal(t *testing.T) {
	m := NewModel()
	m.SetHeaders([]Header{{Name: "a", Label: "A"}, {Name: "b", Label: "B"}})

	// First registration wins the ordinal; only the label updates.
	m.SetHeaders([]Header{{Name: "a", Label: "Renamed"}})

	headers := m.Headers()
	assert.Len(t, headers, 2)
	assert.Equal(t, 0, headers[0].Ordinal)
	assert.Equal(t, "Renamed", headers[0].Label)
}

func TestAddRowDerivesHeadersFromFirstRow(t *testing.T) {
	m := NewModel()
	assert.False(t, m.HeadersDefined())

	m.AddRow(map[string]any{"b": 2, "a": 1})

	assert.True(t, m.HeadersDefined())
	headers := m.Headers()
	assert.Len(t, headers, 2)
	// Keys are registered in sorted order for determinism.
	assert.Equal(t, "a", headers[0].Name)
	assert.Equal(t, "b", headers[1].Name)
}

func TestAddRowUnknownKeyBecomesFailedCell(t *testing.T) {
	m := NewModel()
	m.SetHeaders([]Header{{Name: "a", Label: "A"}})

	m.AddRow(map[string]any{"a": 1, "ghost": 42})

	assert.Equal(t, 1, m.RowCount())
	failed := m.FailedCells()
	assert.Len(t, failed, 1)
	assert.Equal(t, "ghost", failed[0].Name)
	assert.Equal(t, 42, failed[0].Value)
	assert.Equal(t, 0, failed[0].RowIndex)

	// Diagnostics accumulate and are never cleared.
	m.AddRow(map[string]any{"ghost": 43})
	assert.Len(t, m.FailedCells(), 2)
}

func TestToArrayRowCounts(t *testing.T) {
	m := NewModel()
	m.SetHeaders([]Header{{Name: "a", Label: "A"}, {Name: "b", Label: "B"}})

	m.AddRow(map[string]any{"a": 1})
	m.AddRow(map[string]any{"b": 2})
	m.AddRow(map[string]any{"a": 3, "b": 4})

	assert.Len(t, m.ToArray(), 3)

	m.ShowHeaders()
	rows := m.ToArray()
	assert.Len(t, rows, 4)
	assert.Equal(t, []any{"A", "B"}, rows[0])

	m.HideHeaders()
	assert.Len(t, m.ToArray(), 3)
}

func TestToArrayIsDense(t *testing.T) {
	m := NewModel()
	m.SetHeaders([]Header{{Name: "a", Label: "A"}, {Name: "b", Label: "B"}, {Name: "c", Label: "C"}})
	m.AddRow(map[string]any{"b": "x"})

	rows := m.ToArray()
	assert.Len(t, rows[0], 3)
	assert.Equal(t, []any{"", "x", ""}, rows[0])
}

func TestAddRowValuesPositional(t *testing.T) {
	m := NewModel()
	m.SetHeaders([]Header{{Name: "a", Label: "A"}, {Name: "b", Label: "B"}})

	m.AddRowValues([]any{1, 2})
	m.AddRowValues([]any{3, 4, 5})

	assert.Equal(t, 2, m.RowCount())
	// The surplus positional value lands in diagnostics.
	failed := m.FailedCells()
	assert.Len(t, failed, 1)
	assert.Equal(t, 5, failed[0].Value)
}

func TestToCsv(t *testing.T) {
	m := NewModel()
	m.SetHeaders([]Header{{Name: "0", Label: "0"}, {Name: "1", Label: "1"}, {Name: "2", Label: "2"}})
	m.AddRowValues([]any{1, 2, 3})
	m.AddRowValues([]any{4, 5, 6})

	assert.Equal(t, "1,2,3\n4,5,6", m.ToCsv(",", "", "\n"))
	assert.Equal(t, `"1";"2";"3"`+"\r\n"+`"4";"5";"6"`, m.ToCsv(";", `"`, "\r\n"))
}
