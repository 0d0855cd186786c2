package xlsxpkg

import "fmt"

// MissingResourceError означает отсутствие исходного файла, архива
// или обязательной части пакета. Возникает сразу, до каких-либо
// записей, если обнаружено заранее.
type MissingResourceError struct {
	Path string
	Part string
	Name string
}

func (e *MissingResourceError) Error() string {
	switch {
	case e.Name != "" && e.Part != "":
		return fmt.Sprintf("отсутствует ресурс %q (часть %s) в %s", e.Name, e.Part, e.Path)
	case e.Part != "":
		return fmt.Sprintf("отсутствует часть %s в %s", e.Part, e.Path)
	default:
		return fmt.Sprintf("отсутствует файл %s", e.Path)
	}
}

// FormatError означает, что архив не открывается или XML не
// разбирается.
type FormatError struct {
	Path string
	Part string
	Err  error
}

func (e *FormatError) Error() string {
	if e.Part != "" {
		return fmt.Sprintf("повреждённая часть %s в %s: %v", e.Part, e.Path, e.Err)
	}
	return fmt.Sprintf("повреждённый пакет %s: %v", e.Path, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// UnsupportedOperationError означает запрошенную, но не
// поддерживаемую операцию: такие вызовы всегда завершаются
// ошибкой, а не игнорируются.
type UnsupportedOperationError struct {
	Op     string
	Reason string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("операция %s не поддерживается: %s", e.Op, e.Reason)
}
