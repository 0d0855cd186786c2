package sheetml

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Константы разметки SpreadsheetML.
const (
	xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`

	worksheetOpen = `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">`

	worksheetClose = `</worksheet>`
)

// Ровно пять сущностей; ничего больше не экранируется.
var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// EscapeXML экранирует пять символов & < > " ' именованными
// сущностями. Набор фиксирован контрактом формата.
func EscapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

// CalculatedColumn описывает вычисляемую колонку таблицы шаблона,
// которую нужно вернуть в тело листа после замены данных.
type CalculatedColumn struct {
	Index   int
	Label   string
	Formula string
}

// Serializer накапливает типизированные строки и превращает их во
// фрагмент SpreadsheetML. Результат кэшируется и сбрасывается при
// каждом новом добавлении.
type Serializer struct {
	rows      [][]Cell
	dateStyle int
	cached    string
	dirty     bool
}

// NewSerializer возвращает пустой сериализатор.
func NewSerializer() *Serializer {
	return &Serializer{dirty: true}
}

// SetDateStyle задаёт индекс ячеечного стиля для дат. Значение
// подставляется в каждую ячейку DateTime текущей сериализации.
func (s *Serializer) SetDateStyle(styleID int) {
	if s.dateStyle != styleID {
		s.dateStyle = styleID
		s.dirty = true
	}
}

// AddRow классифицирует значения и добавляет строку в буфер.
func (s *Serializer) AddRow(values []any) {
	cells := make([]Cell, len(values))
	for i, v := range values {
		cells[i] = Classify(v)
	}
	s.rows = append(s.rows, cells)
	s.dirty = true
}

// AddRows добавляет строки по порядку, при необходимости вставляя
// вычисляемые колонки: первая строка получает подпись колонки,
// остальные — формулу, чтобы формулы шаблона не терялись при
// замене тела листа.
func (s *Serializer) AddRows(rows [][]any, calculated []CalculatedColumn) {
	for rowIdx, values := range rows {
		spliced := make([]any, len(values))
		copy(spliced, values)
		for _, col := range calculated {
			var cell any
			if rowIdx == 0 {
				cell = col.Label
			} else {
				cell = Formula(col.Formula)
			}
			spliced = insertAt(spliced, col.Index, cell)
		}
		s.AddRow(spliced)
	}
}

func insertAt(values []any, index int, value any) []any {
	if index < 0 {
		index = 0
	}
	if index >= len(values) {
		return append(values, value)
	}
	out := make([]any, 0, len(values)+1)
	out = append(out, values[:index]...)
	out = append(out, value)
	out = append(out, values[index:]...)
	return out
}

// RowCount возвращает число строк в буфере.
func (s *Serializer) RowCount() int { return len(s.rows) }

// SheetData возвращает элемент sheetData с буферизованными строками.
func (s *Serializer) SheetData() string {
	if !s.dirty && s.cached != "" {
		return s.cached
	}

	var b strings.Builder
	b.WriteString("<sheetData>")
	for i, row := range s.rows {
		b.WriteString(fmt.Sprintf(`<row r="%d">`, i+1))
		for j, cell := range row {
			s.writeCell(&b, cellRef(i, j), cell)
		}
		b.WriteString("</row>")
	}
	b.WriteString("</sheetData>")

	s.cached = b.String()
	s.dirty = false
	return s.cached
}

// ToXML возвращает полный документ листа: декларацию, корневой
// worksheet в пространстве имён SpreadsheetML и sheetData.
func (s *Serializer) ToXML() string {
	return xmlHeader + worksheetOpen + s.SheetData() + worksheetClose
}

func (s *Serializer) writeCell(b *strings.Builder, ref string, cell Cell) {
	switch cell.Type {
	case TypeNumber:
		b.WriteString(fmt.Sprintf(`<c r="%s"><v>%s</v></c>`, ref, formatNumber(cell.Value)))
	case TypeDateTime:
		serial := cellSerial(cell.Value)
		b.WriteString(fmt.Sprintf(`<c r="%s" s="%d"><v>%s</v></c>`, ref, s.dateStyle, formatFloat(serial)))
	case TypeFormula:
		b.WriteString(fmt.Sprintf(`<c r="%s"><f>%s</f></c>`, ref, EscapeXML(fmt.Sprint(cell.Value))))
	default:
		b.WriteString(fmt.Sprintf(`<c r="%s" t="inlineStr"><is><t>%s</t></is></c>`, ref, EscapeXML(fmt.Sprint(cell.Value))))
	}
}

// columnName переводит нулевой индекс колонки в буквенное имя
// (A, B, ..., Z, AA, AB, ...).
func columnName(col int) string {
	name := ""
	for col >= 0 {
		name = string(rune('A'+col%26)) + name
		col = col/26 - 1
	}
	return name
}

// cellRef возвращает ссылку ячейки вида A1 по нулевым индексам.
func cellRef(row, col int) string {
	return fmt.Sprintf("%s%d", columnName(col), row+1)
}

func cellSerial(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case time.Time:
		return DateToSerial(v)
	default:
		return 0
	}
}

func formatNumber(value any) string {
	switch v := value.(type) {
	case float64:
		return formatFloat(v)
	case float32:
		return formatFloat(float64(v))
	default:
		return fmt.Sprint(v)
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
