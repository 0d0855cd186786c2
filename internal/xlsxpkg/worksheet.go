package xlsxpkg

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// validateFragment проверяет, что фрагмент — корректный XML.
// Сгенерированная разметка, которая не разбирается, не должна
// попасть в пакет.
func (p *Package) validateFragment(part, fragment string) error {
	dec := xml.NewDecoder(strings.NewReader(fragment))
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return &FormatError{Path: p.path, Part: part, Err: err}
		}
	}
}

// ReplaceSheetData целиком заменяет элемент sheetData указанной
// части листа на переданный фрагмент. Всё остальное содержимое
// части сохраняется байт в байт. Отсутствующая часть — ошибка:
// новые листы не создаются.
func (p *Package) ReplaceSheetData(part, sheetData string) error {
	data, err := p.Part(part)
	if err != nil {
		return err
	}
	if err := p.validateFragment(part, sheetData); err != nil {
		return err
	}

	start := bytes.Index(data, []byte("<sheetData"))
	if start < 0 {
		return &FormatError{Path: p.path, Part: part, Err: fmt.Errorf("в части нет элемента sheetData")}
	}

	end := bytes.Index(data, []byte("</sheetData>"))
	if end >= 0 {
		end += len("</sheetData>")
	} else {
		// Пустой лист хранит sheetData самозакрытым элементом.
		selfClose := bytes.Index(data[start:], []byte("/>"))
		if selfClose < 0 {
			return &FormatError{Path: p.path, Part: part, Err: fmt.Errorf("незакрытый элемент sheetData")}
		}
		end = start + selfClose + len("/>")
	}

	out := make([]byte, 0, len(data)-(end-start)+len(sheetData))
	out = append(out, data[:start]...)
	out = append(out, sheetData...)
	out = append(out, data[end:]...)
	p.setPart(part, out)
	return p.commit()
}
