package xlsxpkg

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Имена обязательных частей пакета.
const (
	partWorkbook     = "xl/workbook.xml"
	partStyles       = "xl/styles.xml"
	partWorkbookRels = "xl/_rels/workbook.xml.rels"
	tablePartPrefix  = "xl/tables/"
)

// Package — дескриптор OOXML-пакета поверх zip-архива. Все части
// читаются в память при открытии; workbook.xml и styles.xml
// разбираются лениво при первом обращении, и между открытием и
// сохранением разобранное состояние — единственный источник истины.
// Нетронутые части записываются обратно байт в байт.
//
// Один дескриптор владеет архивом монопольно; параллельный доступ
// к одному файлу из нескольких процессов не координируется и
// должен сериализоваться вызывающим.
type Package struct {
	path     string
	parts    map[string][]byte
	order    []string
	autoSave bool

	sheets    []sheetEntry
	relTarget map[string]string
	dateStyle int
}

// Open читает пакет в память. Отсутствующий файл — это
// MissingResourceError, неразбираемый архив — FormatError.
func Open(path string) (*Package, error) {
	p := &Package{path: path, dateStyle: -1}
	if err := p.load(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Package) load() error {
	f, err := os.Open(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &MissingResourceError{Path: p.path}
		}
		return fmt.Errorf("открытие пакета %s: %w", p.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("чтение пакета %s: %w", p.path, err)
	}

	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return &FormatError{Path: p.path, Err: err}
	}

	parts := make(map[string][]byte, len(zr.File))
	order := make([]string, 0, len(zr.File))
	for _, zf := range zr.File {
		rc, err := zf.Open()
		if err != nil {
			return &FormatError{Path: p.path, Part: zf.Name, Err: err}
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return &FormatError{Path: p.path, Part: zf.Name, Err: err}
		}
		parts[zf.Name] = data
		order = append(order, zf.Name)
	}

	p.parts = parts
	p.order = order
	p.sheets = nil
	p.relTarget = nil
	return nil
}

// SetAutoSave включает режим, в котором каждая мутация немедленно
// сбрасывается на диск с переоткрытием архива. Пропускная
// способность обменивается на отсутствие расхождения между
// памятью и диском.
func (p *Package) SetAutoSave(on bool) { p.autoSave = on }

// Path возвращает путь к архиву.
func (p *Package) Path() string { return p.path }

// Part возвращает содержимое части или MissingResourceError.
func (p *Package) Part(name string) ([]byte, error) {
	data, ok := p.parts[name]
	if !ok {
		return nil, &MissingResourceError{Path: p.path, Part: name}
	}
	return data, nil
}

// HasPart сообщает о наличии части.
func (p *Package) HasPart(name string) bool {
	_, ok := p.parts[name]
	return ok
}

func (p *Package) setPart(name string, data []byte) {
	if _, ok := p.parts[name]; !ok {
		p.order = append(p.order, name)
	}
	p.parts[name] = data
}

// commit выполняет автосохранение после мутирующей подоперации,
// если включён соответствующий режим.
func (p *Package) commit() error {
	if !p.autoSave {
		return nil
	}
	return p.Save()
}

// Save записывает архив на диск и переоткрывает его, так что
// успешный возврат означает проверенное чистым чтением состояние.
// Запись идёт во временный файл рядом с целевым с последующим
// переименованием.
func (p *Package) Save() error {
	tmp, err := os.CreateTemp(filepath.Dir(p.path), ".xlsxfill-*")
	if err != nil {
		return fmt.Errorf("создание временного файла для %s: %w", p.path, err)
	}
	tmpName := tmp.Name()

	if err := p.writeArchive(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("запись пакета %s: %w", p.path, err)
	}
	if err := os.Rename(tmpName, p.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("замена пакета %s: %w", p.path, err)
	}

	return p.load()
}

func (p *Package) writeArchive(w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, name := range p.order {
		fw, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("запись части %s: %w", name, err)
		}
		if _, err := io.Copy(fw, bytes.NewReader(p.parts[name])); err != nil {
			return fmt.Errorf("запись части %s: %w", name, err)
		}
	}
	return zw.Close()
}

// Close освобождает дескриптор без записи.
func (p *Package) Close() {
	p.parts = nil
	p.order = nil
	p.sheets = nil
	p.relTarget = nil
}
