package xlsxpkg

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"
)

// sheetEntry — строка каталога листов из workbook.xml.
type sheetEntry struct {
	Name    string
	SheetID string
	RelID   string
}

type xmlWorkbook struct {
	XMLName xml.Name   `xml:"workbook"`
	Sheets  []xmlSheet `xml:"sheets>sheet"`
}

type xmlSheet struct {
	Name    string `xml:"name,attr"`
	SheetID string `xml:"sheetId,attr"`
	RelID   string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
}

type xmlRelationships struct {
	XMLName       xml.Name `xml:"Relationships"`
	Relationships []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

// sheetDirectory лениво разбирает каталог листов из workbook.xml и,
// если есть, таблицу связей workbook.xml.rels.
func (p *Package) sheetDirectory() ([]sheetEntry, error) {
	if p.sheets != nil {
		return p.sheets, nil
	}

	data, err := p.Part(partWorkbook)
	if err != nil {
		return nil, err
	}

	var wb xmlWorkbook
	if err := xml.Unmarshal(data, &wb); err != nil {
		return nil, &FormatError{Path: p.path, Part: partWorkbook, Err: err}
	}

	sheets := make([]sheetEntry, len(wb.Sheets))
	for i, s := range wb.Sheets {
		sheets[i] = sheetEntry{Name: s.Name, SheetID: s.SheetID, RelID: s.RelID}
	}

	rels := make(map[string]string)
	if relData, ok := p.parts[partWorkbookRels]; ok {
		var rel xmlRelationships
		if err := xml.Unmarshal(relData, &rel); err != nil {
			return nil, &FormatError{Path: p.path, Part: partWorkbookRels, Err: err}
		}
		for _, r := range rel.Relationships {
			rels[r.ID] = r.Target
		}
	}

	p.sheets = sheets
	p.relTarget = rels
	return sheets, nil
}

// SheetPartByName возвращает имя части листа по его объявленному
// имени в каталоге. Поиск по каталогу, а не перебором номеров
// частей: нумерация листов бывает разреженной.
func (p *Package) SheetPartByName(name string) (string, error) {
	sheets, err := p.sheetDirectory()
	if err != nil {
		return "", err
	}
	for _, s := range sheets {
		if s.Name == name {
			return p.sheetTarget(s)
		}
	}
	return "", &MissingResourceError{Path: p.path, Part: partWorkbook, Name: name}
}

// SheetPartByID возвращает имя части листа по объявленному sheetId.
func (p *Package) SheetPartByID(id int) (string, error) {
	sheets, err := p.sheetDirectory()
	if err != nil {
		return "", err
	}
	want := fmt.Sprintf("%d", id)
	for _, s := range sheets {
		if s.SheetID == want {
			return p.sheetTarget(s)
		}
	}
	return "", &MissingResourceError{Path: p.path, Part: partWorkbook, Name: "sheetId=" + want}
}

func (p *Package) sheetTarget(s sheetEntry) (string, error) {
	if target, ok := p.relTarget[s.RelID]; ok {
		target = strings.TrimPrefix(target, "/")
		if !strings.HasPrefix(target, "xl/") {
			target = "xl/" + target
		}
		if !p.HasPart(target) {
			return "", &MissingResourceError{Path: p.path, Part: target, Name: s.Name}
		}
		return target, nil
	}

	// Связи опциональны; без них часть выводится из sheetId.
	part := fmt.Sprintf("xl/worksheets/sheet%s.xml", s.SheetID)
	if !p.HasPart(part) {
		return "", &MissingResourceError{Path: p.path, Part: part, Name: s.Name}
	}
	return part, nil
}

var (
	calcPrRe         = regexp.MustCompile(`<calcPr[^>]*/?>`)
	fullCalcOnLoadRe = regexp.MustCompile(`fullCalcOnLoad="[^"]*"`)
)

// EnableAutoCalculation выставляет (или создаёт) в workbook.xml
// флаг полного пересчёта при открытии файла.
func (p *Package) EnableAutoCalculation(on bool) error {
	data, err := p.Part(partWorkbook)
	if err != nil {
		return err
	}

	flag := "0"
	if on {
		flag = "1"
	}
	attr := `fullCalcOnLoad="` + flag + `"`

	if loc := calcPrRe.FindIndex(data); loc != nil {
		elem := data[loc[0]:loc[1]]
		var patched []byte
		if fullCalcOnLoadRe.Match(elem) {
			patched = fullCalcOnLoadRe.ReplaceAll(elem, []byte(attr))
		} else {
			patched = bytes.Replace(elem, []byte("<calcPr"), []byte("<calcPr "+attr), 1)
		}
		out := append([]byte{}, data[:loc[0]]...)
		out = append(out, patched...)
		out = append(out, data[loc[1]:]...)
		p.setPart(partWorkbook, out)
		return p.commit()
	}

	end := bytes.LastIndex(data, []byte("</workbook>"))
	if end < 0 {
		return &FormatError{Path: p.path, Part: partWorkbook, Err: fmt.Errorf("нет закрывающего элемента workbook")}
	}
	elem := []byte(`<calcPr ` + attr + `/>`)
	out := append([]byte{}, data[:end]...)
	out = append(out, elem...)
	out = append(out, data[end:]...)
	p.setPart(partWorkbook, out)
	return p.commit()
}
