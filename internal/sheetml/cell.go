package sheetml

import (
	"fmt"
	"time"
)

// CellType перечисляет поддерживаемые виды ячеек.
type CellType int

const (
	TypeString CellType = iota
	TypeNumber
	TypeDateTime
	TypeFormula
)

// Cell — типизированная ячейка. Явно сконструированная ячейка
// проходит классификацию без изменений, что позволяет вызывающему
// принудительно задать тип. Формулы задаются только явно.
type Cell struct {
	Type  CellType
	Value any
}

// Formula возвращает ячейку-формулу с заданным выражением.
func Formula(expr string) Cell {
	return Cell{Type: TypeFormula, Value: expr}
}

// Classify приводит произвольное значение к типизированной ячейке:
// готовые Cell возвращаются как есть, числовые типы становятся
// Number, значения с календарной датой — DateTime, всё остальное
// приводится к строке.
func Classify(value any) Cell {
	switch v := value.(type) {
	case Cell:
		return v
	case *Cell:
		return *v
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return Cell{Type: TypeNumber, Value: v}
	case time.Time:
		return Cell{Type: TypeDateTime, Value: v}
	case *time.Time:
		return Cell{Type: TypeDateTime, Value: *v}
	case string:
		return Cell{Type: TypeString, Value: v}
	case nil:
		return Cell{Type: TypeString, Value: ""}
	default:
		return Cell{Type: TypeString, Value: fmt.Sprint(v)}
	}
}

// Эпоха устаревшего представления дат: 30 декабря 1899 года.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

const secondsPerDay = 86400

// DateToSerial переводит дату в число дней от эпохи 1899-12-30 по
// пролептическому григорианскому календарю. Целевая программа
// наследует исторический фантомный день 29 февраля 1900 года, и для
// побитовой совместимости он воспроизводится, а не исправляется:
// поправка на него применяется только к датам до марта 1900 года.
// Время суток добавляется долей дня.
func DateToSerial(t time.Time) float64 {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	days := int64(day.Sub(serialEpoch) / (24 * time.Hour))

	if t.Year() <= 1900 && t.Month() <= time.February {
		days--
	}

	frac := float64(t.Hour()*3600+t.Minute()*60+t.Second()) / secondsPerDay
	return float64(days) + frac
}
