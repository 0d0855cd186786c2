package export

import (
	"fmt"
	"os"

	"xlsxfill_srv/internal/sheetml"
	"xlsxfill_srv/internal/tabular"
	"xlsxfill_srv/internal/xlsxpkg"
)

// Exporter — публичный фасад над табличной моделью, сериализатором
// и патчером пакетов.
type Exporter interface {
	AddRow(row map[string]any)
	AddRowValues(values []any)
	AddRows(rows []map[string]any)
	SetHeaders(headers []tabular.Header)
	GetHeaders() []tabular.Header
	ShowHeaders()
	HideHeaders()
	ToArray() [][]any
	ToCsv(separator, quote, lineEnding string) string
	ToXML() string
	FailedCells() []tabular.FailedCell

	SetSheetName(name string)
	SetSheetID(id int)
	PreserveFormulas(tableName string)
	RefreshTableRange(tableName string)
	EnableAutoSave(on bool)
	AppendSheet(name string) error
	SetColumnType(name string, kind sheetml.CellType) error

	AttachToFile(src, dst string, forceAutoCalc bool) error
	FillXLSX(src string) ([]byte, error)
}

// Table — рабочая реализация фасада. Живёт столько же, сколько
// накопленные в ней строки; пакет же открывается на каждый вызов
// AttachToFile и закрывается в его конце.
type Table struct {
	model *tabular.Model

	sheetName     string
	sheetID       int
	preserveTable string
	refreshTable  string
	autoSave      bool
}

// NewTable возвращает пустой фасад с целевым листом номер один.
func NewTable() *Table {
	return &Table{model: tabular.NewModel(), sheetID: 1}
}

// AddRow добавляет строку по именам колонок.
func (t *Table) AddRow(row map[string]any) { t.model.AddRow(row) }

// AddRowValues добавляет позиционную строку.
func (t *Table) AddRowValues(values []any) { t.model.AddRowValues(values) }

// AddRows добавляет строки по порядку.
func (t *Table) AddRows(rows []map[string]any) { t.model.AddRows(rows) }

// SetHeaders регистрирует заголовки.
func (t *Table) SetHeaders(headers []tabular.Header) { t.model.SetHeaders(headers) }

// GetHeaders возвращает зарегистрированные заголовки.
func (t *Table) GetHeaders() []tabular.Header { return t.model.Headers() }

// ShowHeaders включает строку подписей в выгрузку.
func (t *Table) ShowHeaders() { t.model.ShowHeaders() }

// HideHeaders исключает строку подписей из выгрузки.
func (t *Table) HideHeaders() { t.model.HideHeaders() }

// ToArray возвращает плотную выгрузку строк.
func (t *Table) ToArray() [][]any { return t.model.ToArray() }

// ToCsv сериализует выгрузку в CSV.
func (t *Table) ToCsv(separator, quote, lineEnding string) string {
	return t.model.ToCsv(separator, quote, lineEnding)
}

// ToXML возвращает автономный документ листа с текущими строками.
func (t *Table) ToXML() string {
	ser := sheetml.NewSerializer()
	ser.AddRows(t.model.ToArray(), nil)
	return ser.ToXML()
}

// FailedCells возвращает диагностику несопоставленных значений.
func (t *Table) FailedCells() []tabular.FailedCell { return t.model.FailedCells() }

// SetSheetName задаёт целевой лист по объявленному имени.
func (t *Table) SetSheetName(name string) {
	t.sheetName = name
}

// SetSheetID задаёт целевой лист по объявленному sheetId.
func (t *Table) SetSheetID(id int) {
	t.sheetID = id
	t.sheetName = ""
}

// PreserveFormulas просит вернуть вычисляемые колонки указанной
// таблицы в тело листа при замене данных.
func (t *Table) PreserveFormulas(tableName string) { t.preserveTable = tableName }

// RefreshTableRange просит обновить диапазон указанной таблицы
// по фактическому числу строк.
func (t *Table) RefreshTableRange(tableName string) { t.refreshTable = tableName }

// EnableAutoSave включает сброс пакета на диск после каждой
// мутирующей подоперации патча.
func (t *Table) EnableAutoSave(on bool) { t.autoSave = on }

// AppendSheet отклоняется при каждом вызове: патчер правит один
// существующий лист пакета и не создаёт новых.
func (t *Table) AppendSheet(name string) error {
	return &xlsxpkg.UnsupportedOperationError{
		Op:     "AppendSheet",
		Reason: fmt.Sprintf("новые листы не создаются (запрошен %q)", name),
	}
}

// SetColumnType отклоняется при каждом вызове: тип ячейки
// определяется её значением в момент сериализации.
func (t *Table) SetColumnType(name string, kind sheetml.CellType) error {
	return &xlsxpkg.UnsupportedOperationError{
		Op:     "SetColumnType",
		Reason: fmt.Sprintf("объявленный тип колонки %q изменить нельзя", name),
	}
}

// AttachToFile вписывает накопленные строки в лист существующего
// пакета. При непустом dst исходник копируется и правится копия.
// Вычисляемые колонки извлекаются отдельным читающим дескриптором
// до перезаписи тела: после замены их уже не восстановить.
// Все правки буферизуются и попадают на диск одним Save в конце,
// кроме режима автосохранения.
func (t *Table) AttachToFile(src, dst string, forceAutoCalc bool) error {
	target := src
	if dst != "" {
		if err := copyFile(src, dst); err != nil {
			return err
		}
		target = dst
	}

	var calcCols []sheetml.CalculatedColumn
	if t.preserveTable != "" {
		ro, err := xlsxpkg.Open(src)
		if err != nil {
			return err
		}
		calcCols, err = ro.CalculatedColumns(t.preserveTable)
		ro.Close()
		if err != nil {
			return err
		}
	}

	pkg, err := xlsxpkg.Open(target)
	if err != nil {
		return err
	}
	defer pkg.Close()
	pkg.SetAutoSave(t.autoSave)

	// Целевая часть разрешается до любых правок: при отсутствии
	// листа файл обязан остаться нетронутым.
	part, err := t.resolveSheetPart(pkg)
	if err != nil {
		return err
	}

	style, err := pkg.ResolveDateTimeStyle()
	if err != nil {
		return err
	}

	ser := sheetml.NewSerializer()
	ser.SetDateStyle(style)
	ser.AddRows(t.model.ToArray(), calcCols)

	if err := pkg.ReplaceSheetData(part, ser.SheetData()); err != nil {
		return err
	}

	if t.refreshTable != "" {
		if err := pkg.RefreshTableRange(t.refreshTable, ser.RowCount()); err != nil {
			return err
		}
	}

	if forceAutoCalc {
		if err := pkg.EnableAutoCalculation(true); err != nil {
			return err
		}
	}

	return pkg.Save()
}

func (t *Table) resolveSheetPart(pkg *xlsxpkg.Package) (string, error) {
	if t.sheetName != "" {
		return pkg.SheetPartByName(t.sheetName)
	}
	return pkg.SheetPartByID(t.sheetID)
}

// FillXLSX выполняет AttachToFile во временный файл и возвращает
// содержимое результата. Временный файл удаляется в любом случае.
func (t *Table) FillXLSX(src string) ([]byte, error) {
	scratch, err := os.CreateTemp("", "xlsxfill-*.xlsx")
	if err != nil {
		return nil, fmt.Errorf("создание временного файла: %w", err)
	}
	scratchPath := scratch.Name()
	scratch.Close()
	defer os.Remove(scratchPath)

	if err := t.AttachToFile(src, scratchPath, false); err != nil {
		return nil, err
	}
	return os.ReadFile(scratchPath)
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		if os.IsNotExist(err) {
			return &xlsxpkg.MissingResourceError{Path: src}
		}
		return fmt.Errorf("чтение %s: %w", src, err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("запись %s: %w", dst, err)
	}
	return nil
}
