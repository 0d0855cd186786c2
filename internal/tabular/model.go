package tabular

import (
	"fmt"
	"sort"
	"strings"
)

// Header описывает один зарегистрированный заголовок таблицы.
// Порядковый номер назначается при первой регистрации имени и
// больше никогда не меняется.
type Header struct {
	Name    string
	Label   string
	Ordinal int
}

// FailedCell фиксирует значение строки, для которого не нашлось
// заголовка. Это диагностика, а не ошибка: добавление строки
// никогда не прерывается из-за лишнего ключа.
type FailedCell struct {
	RowIndex int
	Name     string
	Value    any
}

// Model хранит заголовки и строки таблицы в памяти.
// Никакого ввода-вывода: только регистрация заголовков,
// накопление строк и плотная выгрузка.
type Model struct {
	headers        []Header
	ordinals       map[string]int
	headersDefined bool
	headersVisible bool
	rows           [][]any
	failed         []FailedCell
}

// NewModel возвращает пустую модель без заголовков.
func NewModel() *Model {
	return &Model{ordinals: make(map[string]int)}
}

// SetHeaders регистрирует заголовки в переданном порядке.
// Повторная регистрация имени обновляет только подпись:
// порядковый номер закреплён за первой регистрацией.
func (m *Model) SetHeaders(headers []Header) {
	for _, h := range headers {
		m.registerHeader(h.Name, h.Label)
	}
}

func (m *Model) registerHeader(name, label string) int {
	if ord, ok := m.ordinals[name]; ok {
		m.headers[ord].Label = label
		return ord
	}
	ord := len(m.headers)
	m.headers = append(m.headers, Header{Name: name, Label: label, Ordinal: ord})
	m.ordinals[name] = ord
	m.headersDefined = true
	return ord
}

// Headers возвращает копию списка заголовков в порядке номеров.
func (m *Model) Headers() []Header {
	out := make([]Header, len(m.headers))
	copy(out, m.headers)
	return out
}

// HeaderCount возвращает число зарегистрированных заголовков.
func (m *Model) HeaderCount() int { return len(m.headers) }

// HeadersDefined сообщает, были ли заголовки зарегистрированы.
// Флаг взводится при первой регистрации и не сбрасывается.
func (m *Model) HeadersDefined() bool { return m.headersDefined }

// ShowHeaders включает строку подписей в выгрузку.
func (m *Model) ShowHeaders() { m.headersVisible = true }

// HideHeaders исключает строку подписей из выгрузки.
func (m *Model) HideHeaders() { m.headersVisible = false }

// HeadersVisible сообщает, попадёт ли строка подписей в выгрузку.
func (m *Model) HeadersVisible() bool { return m.headersVisible }

// AddRow добавляет строку по именам колонок. Если заголовки ещё не
// определены, они выводятся из ключей этой строки (имя = подпись),
// в отсортированном порядке ключей: порядок обхода map в Go
// недетерминирован, а номера колонок обязаны быть стабильными.
// Ключи без заголовка попадают в список FailedCell.
func (m *Model) AddRow(row map[string]any) {
	if !m.headersDefined {
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			m.registerHeader(k, k)
		}
	}

	cells := make([]any, len(m.headers))
	rowIndex := len(m.rows)
	for name, value := range row {
		ord, ok := m.ordinals[name]
		if !ok {
			m.failed = append(m.failed, FailedCell{RowIndex: rowIndex, Name: name, Value: value})
			continue
		}
		cells[ord] = value
	}
	m.rows = append(m.rows, cells)
}

// AddRowValues добавляет позиционную строку: индекс значения и есть
// номер колонки, поиск по имени не выполняется. Если заголовки ещё
// не определены, они выводятся из позиций этой строки. Лишние
// значения за пределами заголовков попадают в FailedCell.
func (m *Model) AddRowValues(values []any) {
	if !m.headersDefined {
		for i := range values {
			name := fmt.Sprintf("%d", i)
			m.registerHeader(name, name)
		}
	}

	cells := make([]any, len(m.headers))
	rowIndex := len(m.rows)
	for i, v := range values {
		if i >= len(m.headers) {
			m.failed = append(m.failed, FailedCell{RowIndex: rowIndex, Name: fmt.Sprintf("%d", i), Value: v})
			continue
		}
		cells[i] = v
	}
	m.rows = append(m.rows, cells)
}

// AddRows добавляет строки по порядку.
func (m *Model) AddRows(rows []map[string]any) {
	for _, r := range rows {
		m.AddRow(r)
	}
}

// RowCount возвращает число добавленных строк данных,
// без учёта строки подписей.
func (m *Model) RowCount() int { return len(m.rows) }

// ToArray возвращает плотную выгрузку: каждая строка имеет ровно
// HeaderCount ячеек, отсутствующие значения — пустая строка.
// Строка подписей добавляется первой, если заголовки видимы.
func (m *Model) ToArray() [][]any {
	var out [][]any
	if m.headersVisible {
		labels := make([]any, len(m.headers))
		for i, h := range m.headers {
			labels[i] = h.Label
		}
		out = append(out, labels)
	}
	for _, row := range m.rows {
		dense := make([]any, len(m.headers))
		for i := range dense {
			if i < len(row) && row[i] != nil {
				dense[i] = row[i]
			} else {
				dense[i] = ""
			}
		}
		out = append(out, dense)
	}
	return out
}

// ToCsv сериализует выгрузку в CSV с разделителем, обёрткой и
// терминатором строк на выбор вызывающего. Экранирование
// разделителя и кавычек внутри значений не выполняется:
// это ответственность вызывающего.
func (m *Model) ToCsv(separator, quote, lineEnding string) string {
	rows := m.ToArray()
	lines := make([]string, len(rows))
	for i, row := range rows {
		fields := make([]string, len(row))
		for j, v := range row {
			fields[j] = quote + fmt.Sprint(v) + quote
		}
		lines[i] = strings.Join(fields, separator)
	}
	return strings.Join(lines, lineEnding)
}

// FailedCells возвращает накопленную диагностику несопоставленных
// значений. Список не очищается автоматически.
func (m *Model) FailedCells() []FailedCell {
	out := make([]FailedCell, len(m.failed))
	copy(out, m.failed)
	return out
}
