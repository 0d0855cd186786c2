package sheetml

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEscapeXML(t *testing.T) {
	assert.Equal(t, "a&amp;b&lt;c&gt;d&quot;e&apos;f", EscapeXML(`a&b<c>d"e'f`))
	// Nothing else is touched.
	assert.Equal(t, "линия\nперевода", EscapeXML("линия\nперевода"))
}

func TestToXMLEnvelope(t *testing.T) {
	ser := NewSerializer()
	ser.AddRow([]any{"a", "b", "c"})

	xml := ser.ToXML()
	assert.True(t, strings.HasPrefix(xml, `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`))
	assert.Contains(t, xml, `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">`)
	assert.Contains(t, xml, `<row r="1">`)
	assert.Equal(t, 3, strings.Count(xml, `t="inlineStr"`))
	assert.Contains(t, xml, "<is><t>a</t></is>")
	assert.Contains(t, xml, "<is><t>b</t></is>")
	assert.Contains(t, xml, "<is><t>c</t></is>")
	assert.True(t, strings.HasSuffix(xml, "</sheetData></worksheet>"))
}

func TestSerializeCellKinds(t *testing.T) {
	ser := NewSerializer()
	ser.SetDateStyle(7)
	ser.AddRow([]any{
		12,
		3.5,
		time.Date(2013, 4, 5, 0, 0, 0, 0, time.UTC),
		Formula("B1*2"),
		"x<y",
	})

	data := ser.SheetData()
	assert.Contains(t, data, `<c r="A1"><v>12</v></c>`)
	assert.Contains(t, data, `<c r="B1"><v>3.5</v></c>`)
	assert.Contains(t, data, `<c r="C1" s="7"><v>41369</v></c>`)
	assert.Contains(t, data, `<c r="D1"><f>B1*2</f></c>`)
	assert.Contains(t, data, `<c r="E1" t="inlineStr"><is><t>x&lt;y</t></is></c>`)
}

func TestRowNumbersAreOneBased(t *testing.T) {
	ser := NewSerializer()
	ser.AddRow([]any{"first"})
	ser.AddRow([]any{"second"})

	data := ser.SheetData()
	assert.Contains(t, data, `<row r="1">`)
	assert.Contains(t, data, `<row r="2">`)
}

func TestSerializerCachesUntilDirty(t *testing.T) {
	ser := NewSerializer()
	ser.AddRow([]any{"a"})

	first := ser.SheetData()
	assert.Equal(t, first, ser.SheetData())

	ser.AddRow([]any{"b"})
	second := ser.SheetData()
	assert.NotEqual(t, first, second)
	assert.Contains(t, second, `<row r="2">`)
}

func TestAddRowsSplicesCalculatedColumns(t *testing.T) {
	ser := NewSerializer()
	cols := []CalculatedColumn{{Index: 1, Label: "Total", Formula: "A2*2"}}
	ser.AddRows([][]any{
		{"Name", "Qty"},
		{"widget", 2},
		{"gadget", 3},
	}, cols)

	data := ser.SheetData()
	// The header row receives the column label, data rows the formula.
	assert.Contains(t, data, "<is><t>Total</t></is>")
	assert.Equal(t, 2, strings.Count(data, "<f>A2*2</f>"))

	// The spliced cell sits between the original columns.
	firstRow := data[strings.Index(data, `<row r="1">`):strings.Index(data, `</row>`)]
	assert.Less(t, strings.Index(firstRow, "Name"), strings.Index(firstRow, "Total"))
	assert.Less(t, strings.Index(firstRow, "Total"), strings.Index(firstRow, "Qty"))
}

func TestAddRowsAppendsWhenIndexBeyondWidth(t *testing.T) {
	ser := NewSerializer()
	cols := []CalculatedColumn{{Index: 5, Label: "T", Formula: "X"}}
	ser.AddRows([][]any{{"only"}}, cols)

	data := ser.SheetData()
	assert.Contains(t, data, "<is><t>only</t></is>")
	assert.Contains(t, data, "<is><t>T</t></is>")
}

func TestSerializedIdempotence(t *testing.T) {
	build := func() string {
		ser := NewSerializer()
		ser.SetDateStyle(3)
		ser.AddRows([][]any{{"a", 1}, {"b", 2}}, nil)
		return ser.SheetData()
	}
	assert.Equal(t, build(), build())
}
