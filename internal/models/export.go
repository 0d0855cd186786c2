package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Статусы задания экспорта.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Export — задание на заполнение листа шаблона данными запроса.
type Export struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`

	Title       string `json:"title" gorm:"size:255;not null"`
	TemplateKey string `json:"template_key" gorm:"size:255;not null"`
	Query       string `json:"query" gorm:"type:text;not null"`

	// Целевой лист: либо по имени, либо по sheetId из каталога книги.
	SheetName string `json:"sheet_name,omitempty" gorm:"size:255"`
	SheetID   int    `json:"sheet_id" gorm:"default:1"`

	// Таблица шаблона для обновления диапазона и сохранения формул.
	TableName        string `json:"table_name,omitempty" gorm:"size:255"`
	PreserveFormulas bool   `json:"preserve_formulas"`
	ShowHeaders      bool   `json:"show_headers"`
	ForceAutoCalc    bool   `json:"force_auto_calc"`

	Status     string    `json:"status" gorm:"size:50;not null;default:'pending'"`
	Error      string    `json:"error,omitempty" gorm:"size:1000"`
	FileKey    string    `json:"file_key,omitempty" gorm:"size:255"`
	FilledAt   time.Time `json:"filled_at"`
	Parameters JSON      `json:"parameters,omitempty" gorm:"type:jsonb"`
	CreatedBy  string    `json:"created_by" gorm:"size:255;not null"`
}

// JSON is a custom type for handling JSONB data
type JSON map[string]interface{}

// Value implements the driver.Valuer interface for JSON
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface for JSON
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSON", value)
	}

	return json.Unmarshal(bytes, j)
}

// Validate проверяет обязательные поля задания.
func (e *Export) Validate() error {
	if e.Title == "" {
		return fmt.Errorf("title is required")
	}
	if e.TemplateKey == "" {
		return fmt.Errorf("template_key is required")
	}
	if e.Query == "" {
		return fmt.Errorf("query is required")
	}
	if e.SheetName == "" && e.SheetID < 1 {
		return fmt.Errorf("either sheet_name or a positive sheet_id is required")
	}
	return nil
}

// IsCompleted returns true if the export is completed
func (e *Export) IsCompleted() bool {
	return e.Status == StatusCompleted
}

// IsPending returns true if the export is pending
func (e *Export) IsPending() bool {
	return e.Status == StatusPending
}

// SetStatus updates the export status
func (e *Export) SetStatus(status string) {
	e.Status = status
	e.UpdatedAt = time.Now()
}
