package query

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Запрещённые в заданиях экспорта операторы: задания читают данные,
// но не меняют их.
var forbidden = []string{"DROP", "DELETE", "UPDATE", "INSERT", "CREATE", "ALTER"}

// Validate проверяет SQL-запрос на наличие запрещённых конструкций.
func Validate(sqlText string) error {
	upper := strings.ToUpper(sqlText)
	for _, f := range forbidden {
		if strings.Contains(upper, f) {
			return fmt.Errorf("forbidden operation: %s", f)
		}
	}
	return nil
}

// Executor выполняет запросы и возвращает строки как срез map.
type Executor struct {
	DB *sql.DB
}

// Execute выполняет запрос и возвращает строки результата.
// Порядок колонок берётся из самого результата.
func (e *Executor) Execute(ctx context.Context, sqlText string, args ...any) ([]map[string]any, error) {
	rows, err := e.DB.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	results := make([]map[string]any, 0)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range ptrs {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rowMap := make(map[string]any, len(cols))
		for i, col := range cols {
			rowMap[col] = vals[i]
		}
		results = append(results, rowMap)
	}
	return results, rows.Err()
}
