package xlsxpkg

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const fixtureWorkbook = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><sheets><sheet name="Data" sheetId="1" r:id="rId1"/><sheet name="Charts" sheetId="4" r:id="rId2"/></sheets></workbook>`

const fixtureRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet1.xml"/><Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet4.xml"/></Relationships>`

const fixtureSheet = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><cols><col min="1" max="3" width="12"/></cols><sheetData><row r="1"><c t="inlineStr"><is><t>old</t></is></c></row></sheetData><pageMargins left="0.7" right="0.7"/></worksheet>`

const fixtureStylesPlain = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<styleSheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><fonts count="1"><font><sz val="11"/><name val="Calibri"/></font></fonts><fills count="1"><fill><patternFill patternType="none"/></fill></fills><borders count="1"><border/></borders><cellStyleXfs count="1"><xf numFmtId="0" fontId="0" fillId="0" borderId="0"/></cellStyleXfs><cellXfs count="2"><xf numFmtId="0" fontId="0" fillId="0" borderId="0" xfId="0"/><xf numFmtId="2" fontId="0" fillId="0" borderId="0" xfId="0"/></cellXfs></styleSheet>`

const fixtureStylesExact = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<styleSheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><numFmts count="1"><numFmt numFmtId="164" formatCode="yyyy-mm-dd hh:mm:ss"/></numFmts><fonts count="1"><font/></fonts><cellStyleXfs count="1"><xf numFmtId="0"/></cellStyleXfs><cellXfs count="3"><xf numFmtId="0" fontId="0" fillId="0" borderId="0" xfId="0"/><xf numFmtId="2" fontId="0" fillId="0" borderId="0" xfId="0"/><xf numFmtId="164" fontId="0" fillId="0" borderId="0" xfId="0" applyNumberFormat="1"/></cellXfs></styleSheet>`

const fixtureStylesHeuristic = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<styleSheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><numFmts count="1"><numFmt numFmtId="165" formatCode="dd/mm/yyyy hh:mm"/></numFmts><fonts count="1"><font/></fonts><cellStyleXfs count="1"><xf numFmtId="0"/></cellStyleXfs><cellXfs count="2"><xf numFmtId="0" fontId="0" fillId="0" borderId="0" xfId="0"/><xf numFmtId="165" fontId="0" fillId="0" borderId="0" xfId="0" applyNumberFormat="1"/></cellXfs></styleSheet>`

const fixtureTable = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<table xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" id="1" name="Sales" displayName="Sales" ref="A1:C10"><autoFilter ref="A1:C10"/><tableColumns count="3"><tableColumn id="1" name="Name"/><tableColumn id="2" name="Qty"/><tableColumn id="3" name="Total"><calculatedColumnFormula>Sales[[#This Row],[Qty]]*2</calculatedColumnFormula></tableColumn></tableColumns></table>`

const fixtureContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Override PartName="/xl/workbook.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"/><Override PartName="/xl/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.styles+xml"/><Override PartName="/xl/worksheets/sheet1.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"/><Override PartName="/xl/worksheets/sheet4.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"/></Types>`

const fixtureRootRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="xl/workbook.xml"/></Relationships>`

// writeFixture collects the parts of a minimal workbook into a zip
// archive and returns its path.
func writeFixture(t *testing.T, styles string, withTable bool) string {
	t.Helper()

	parts := []struct{ name, data string }{
		{"[Content_Types].xml", fixtureContentTypes},
		{"_rels/.rels", fixtureRootRels},
		{"xl/workbook.xml", fixtureWorkbook},
		{"xl/_rels/workbook.xml.rels", fixtureRels},
		{"xl/styles.xml", styles},
		{"xl/worksheets/sheet1.xml", fixtureSheet},
		{"xl/worksheets/sheet4.xml", fixtureSheet},
	}
	if withTable {
		parts = append(parts, struct{ name, data string }{"xl/tables/table1.xml", fixtureTable})
	}

	path := filepath.Join(t.TempDir(), "fixture.xlsx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for _, p := range parts {
		w, err := zw.Create(p.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(p.data))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.xlsx"))
	var missing *MissingResourceError
	assert.ErrorAs(t, err, &missing)
}

func TestOpenCorruptArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	_, err := Open(path)
	var format *FormatError
	assert.ErrorAs(t, err, &format)
}

func TestSheetPartResolution(t *testing.T) {
	pkg, err := Open(writeFixture(t, fixtureStylesPlain, false))
	require.NoError(t, err)
	defer pkg.Close()

	part, err := pkg.SheetPartByName("Data")
	require.NoError(t, err)
	assert.Equal(t, "xl/worksheets/sheet1.xml", part)

	// Sparse sheet numbering resolves through the directory, not by
	// probing part names.
	part, err = pkg.SheetPartByID(4)
	require.NoError(t, err)
	assert.Equal(t, "xl/worksheets/sheet4.xml", part)

	_, err = pkg.SheetPartByName("Ghost")
	var missing *MissingResourceError
	assert.ErrorAs(t, err, &missing)

	_, err = pkg.SheetPartByID(2)
	assert.ErrorAs(t, err, &missing)
}

func TestReplaceSheetDataPreservesRest(t *testing.T) {
	pkg, err := Open(writeFixture(t, fixtureStylesPlain, false))
	require.NoError(t, err)
	defer pkg.Close()

	fragment := `<sheetData><row r="1"><c><v>7</v></c></row></sheetData>`
	require.NoError(t, pkg.ReplaceSheetData("xl/worksheets/sheet1.xml", fragment))

	data, err := pkg.Part("xl/worksheets/sheet1.xml")
	require.NoError(t, err)
	assert.Contains(t, string(data), fragment)
	assert.NotContains(t, string(data), "old")
	// Siblings of sheetData survive byte for byte.
	assert.Contains(t, string(data), `<cols><col min="1" max="3" width="12"/></cols>`)
	assert.Contains(t, string(data), `<pageMargins left="0.7" right="0.7"/>`)

	// Untouched sheets stay identical.
	other, err := pkg.Part("xl/worksheets/sheet4.xml")
	require.NoError(t, err)
	assert.Equal(t, fixtureSheet, string(other))
}

func TestReplaceSheetDataRejectsBadFragment(t *testing.T) {
	pkg, err := Open(writeFixture(t, fixtureStylesPlain, false))
	require.NoError(t, err)
	defer pkg.Close()

	err = pkg.ReplaceSheetData("xl/worksheets/sheet1.xml", "<sheetData><row></sheetData>")
	var format *FormatError
	assert.ErrorAs(t, err, &format)
}

func TestReplaceSheetDataMissingPart(t *testing.T) {
	pkg, err := Open(writeFixture(t, fixtureStylesPlain, false))
	require.NoError(t, err)
	defer pkg.Close()

	err = pkg.ReplaceSheetData("xl/worksheets/sheet9.xml", "<sheetData/>")
	var missing *MissingResourceError
	assert.ErrorAs(t, err, &missing)
}

func TestResolveDateTimeStyleExactMatch(t *testing.T) {
	pkg, err := Open(writeFixture(t, fixtureStylesExact, false))
	require.NoError(t, err)
	defer pkg.Close()

	idx, err := pkg.ResolveDateTimeStyle()
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
}

func TestResolveDateTimeStyleHeuristic(t *testing.T) {
	pkg, err := Open(writeFixture(t, fixtureStylesHeuristic, false))
	require.NoError(t, err)
	defer pkg.Close()

	idx, err := pkg.ResolveDateTimeStyle()
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
}

func TestResolveDateTimeStyleSynthesizes(t *testing.T) {
	pkg, err := Open(writeFixture(t, fixtureStylesPlain, false))
	require.NoError(t, err)
	defer pkg.Close()

	idx, err := pkg.ResolveDateTimeStyle()
	require.NoError(t, err)
	// New xf is appended after the two existing entries.
	assert.Equal(t, 2, idx)

	data, err := pkg.Part("xl/styles.xml")
	require.NoError(t, err)
	assert.Contains(t, string(data), `formatCode="yyyy-mm-dd hh:mm:ss"`)
	assert.Contains(t, string(data), `numFmtId="164"`)
	assert.Contains(t, string(data), `<cellXfs count="3">`)

	// Resolved once per patch: the second call reuses the result.
	again, err := pkg.ResolveDateTimeStyle()
	require.NoError(t, err)
	assert.Equal(t, idx, again)
}

func TestRefreshTableRange(t *testing.T) {
	pkg, err := Open(writeFixture(t, fixtureStylesPlain, true))
	require.NoError(t, err)
	defer pkg.Close()

	require.NoError(t, pkg.RefreshTableRange("Sales", 5))

	data, err := pkg.Part("xl/tables/table1.xml")
	require.NoError(t, err)
	assert.Contains(t, string(data), `ref="A1:C5"`)
	// Only the table ref is rewritten; the autoFilter keeps its own.
	assert.Contains(t, string(data), `<autoFilter ref="A1:C10"/>`)
}

func TestRefreshTableRangeMissingTable(t *testing.T) {
	pkg, err := Open(writeFixture(t, fixtureStylesPlain, true))
	require.NoError(t, err)
	defer pkg.Close()

	err = pkg.RefreshTableRange("Nowhere", 5)
	var missing *MissingResourceError
	assert.ErrorAs(t, err, &missing)
}

func TestCalculatedColumns(t *testing.T) {
	pkg, err := Open(writeFixture(t, fixtureStylesPlain, true))
	require.NoError(t, err)
	defer pkg.Close()

	cols, err := pkg.CalculatedColumns("Sales")
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, 2, cols[0].Index)
	assert.Equal(t, "Total", cols[0].Label)
	assert.Equal(t, "Sales[[#This Row],[Qty]]*2", cols[0].Formula)
}

func TestEnableAutoCalculation(t *testing.T) {
	pkg, err := Open(writeFixture(t, fixtureStylesPlain, false))
	require.NoError(t, err)
	defer pkg.Close()

	require.NoError(t, pkg.EnableAutoCalculation(true))
	data, err := pkg.Part(partWorkbook)
	require.NoError(t, err)
	assert.Contains(t, string(data), `<calcPr fullCalcOnLoad="1"/>`)

	// A second call rewrites the existing attribute.
	require.NoError(t, pkg.EnableAutoCalculation(false))
	data, err = pkg.Part(partWorkbook)
	require.NoError(t, err)
	assert.Contains(t, string(data), `fullCalcOnLoad="0"`)
	assert.Equal(t, 1, strings.Count(string(data), "<calcPr"))
}

func TestSaveReopensCommittedState(t *testing.T) {
	path := writeFixture(t, fixtureStylesPlain, false)
	pkg, err := Open(path)
	require.NoError(t, err)
	defer pkg.Close()

	fragment := `<sheetData><row r="1"><c><v>1</v></c></row></sheetData>`
	require.NoError(t, pkg.ReplaceSheetData("xl/worksheets/sheet1.xml", fragment))
	require.NoError(t, pkg.Save())

	// The handle now reflects what a clean reader sees on disk.
	data, err := pkg.Part("xl/worksheets/sheet1.xml")
	require.NoError(t, err)
	assert.Contains(t, string(data), fragment)

	reread, err := Open(path)
	require.NoError(t, err)
	defer reread.Close()
	again, err := reread.Part("xl/worksheets/sheet1.xml")
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))

	// The saved package still opens in a regular xlsx reader.
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Data")
}

func TestAutoSaveFlushesEachMutation(t *testing.T) {
	path := writeFixture(t, fixtureStylesPlain, false)
	pkg, err := Open(path)
	require.NoError(t, err)
	defer pkg.Close()
	pkg.SetAutoSave(true)

	fragment := `<sheetData><row r="1"><c><v>2</v></c></row></sheetData>`
	require.NoError(t, pkg.ReplaceSheetData("xl/worksheets/sheet1.xml", fragment))

	// No explicit Save, yet the mutation is already on disk.
	clean, err := Open(path)
	require.NoError(t, err)
	defer clean.Close()
	data, err := clean.Part("xl/worksheets/sheet1.xml")
	require.NoError(t, err)
	assert.Contains(t, string(data), fragment)
}
