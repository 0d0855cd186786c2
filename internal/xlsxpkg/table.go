package xlsxpkg

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"

	"xlsxfill_srv/internal/sheetml"
)

type xmlTable struct {
	XMLName     xml.Name `xml:"table"`
	Name        string   `xml:"name,attr"`
	DisplayName string   `xml:"displayName,attr"`
	Ref         string   `xml:"ref,attr"`
	Columns     []struct {
		Name    string `xml:"name,attr"`
		Formula string `xml:"calculatedColumnFormula"`
	} `xml:"tableColumns>tableColumn"`
}

// findTable ищет часть таблицы по отображаемому имени среди
// xl/tables/*.xml.
func (p *Package) findTable(displayName string) (string, *xmlTable, error) {
	for _, name := range p.order {
		if !strings.HasPrefix(name, tablePartPrefix) || !strings.HasSuffix(name, ".xml") {
			continue
		}
		var t xmlTable
		if err := xml.Unmarshal(p.parts[name], &t); err != nil {
			return "", nil, &FormatError{Path: p.path, Part: name, Err: err}
		}
		if t.DisplayName == displayName || t.Name == displayName {
			return name, &t, nil
		}
	}
	return "", nil, &MissingResourceError{Path: p.path, Part: tablePartPrefix + "*", Name: displayName}
}

// Диапазон вида A1:C10; переписывается только замыкающий номер строки.
var tableRefRe = regexp.MustCompile(`^([A-Z]+[0-9]+:[A-Z]+)[0-9]+$`)

// RefreshTableRange переписывает замыкающий номер строки в
// диапазоне таблицы с указанным отображаемым именем.
// Отсутствие таблицы — ошибка.
func (p *Package) RefreshTableRange(displayName string, rowCount int) error {
	part, t, err := p.findTable(displayName)
	if err != nil {
		return err
	}

	m := tableRefRe.FindStringSubmatch(t.Ref)
	if m == nil {
		return &FormatError{Path: p.path, Part: part, Err: fmt.Errorf("неразбираемый диапазон таблицы %q", t.Ref)}
	}
	newRef := fmt.Sprintf("%s%d", m[1], rowCount)

	data := p.parts[part]
	old := []byte(`ref="` + t.Ref + `"`)
	idx := bytes.Index(data, old)
	if idx < 0 {
		return &FormatError{Path: p.path, Part: part, Err: fmt.Errorf("атрибут ref %q не найден в части", t.Ref)}
	}
	p.setPart(part, splice(data, idx, idx+len(old), `ref="`+newRef+`"`))
	return p.commit()
}

// CalculatedColumns возвращает вычисляемые колонки таблицы:
// позицию вставки, подпись и сохранённую формулу. Именно эти
// данные возвращаются в тело листа при замене данных.
func (p *Package) CalculatedColumns(displayName string) ([]sheetml.CalculatedColumn, error) {
	_, t, err := p.findTable(displayName)
	if err != nil {
		return nil, err
	}

	var cols []sheetml.CalculatedColumn
	for i, c := range t.Columns {
		if strings.TrimSpace(c.Formula) == "" {
			continue
		}
		cols = append(cols, sheetml.CalculatedColumn{
			Index:   i,
			Label:   c.Name,
			Formula: strings.TrimSpace(c.Formula),
		})
	}
	return cols, nil
}
