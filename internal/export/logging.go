package export

import (
	"time"

	"github.com/sirupsen/logrus"

	"xlsxfill_srv/internal/sheetml"
	"xlsxfill_srv/internal/tabular"
)

// LoggingExporter добавляет логирование к операциям фасада.
// Результаты и семантика ошибок делегируемых вызовов не меняются.
type LoggingExporter struct {
	next   Exporter
	logger *logrus.Logger
}

// NewLoggingExporter оборачивает фасад логирующим декоратором.
func NewLoggingExporter(next Exporter, logger *logrus.Logger) Exporter {
	return &LoggingExporter{next: next, logger: logger}
}

// AttachToFile логирует операцию вписывания в файл.
func (l *LoggingExporter) AttachToFile(src, dst string, forceAutoCalc bool) error {
	start := time.Now()
	logger := l.logger.WithFields(logrus.Fields{
		"operation":       "attach_to_file",
		"src":             src,
		"dst":             dst,
		"force_auto_calc": forceAutoCalc,
	})

	logger.Debug("Начало вписывания данных в пакет")

	err := l.next.AttachToFile(src, dst, forceAutoCalc)

	duration := time.Since(start)
	if err != nil {
		logger.WithError(err).WithField("duration", duration).Error("Ошибка вписывания данных")
	} else {
		logger.WithField("duration", duration).Info("Данные вписаны успешно")
	}

	return err
}

// FillXLSX логирует операцию заполнения шаблона.
func (l *LoggingExporter) FillXLSX(src string) ([]byte, error) {
	start := time.Now()
	logger := l.logger.WithFields(logrus.Fields{
		"operation": "fill_xlsx",
		"src":       src,
	})

	logger.Debug("Начало заполнения шаблона")

	data, err := l.next.FillXLSX(src)

	duration := time.Since(start)
	if err != nil {
		logger.WithError(err).WithField("duration", duration).Error("Ошибка заполнения шаблона")
	} else {
		logger.WithFields(logrus.Fields{"duration": duration, "size": len(data)}).Info("Шаблон заполнен успешно")
	}

	return data, err
}

// AddRow логирует добавление строки.
func (l *LoggingExporter) AddRow(row map[string]any) {
	l.logger.WithFields(logrus.Fields{"operation": "add_row", "cells": len(row)}).Trace("Добавление строки")
	l.next.AddRow(row)
}

// AddRows логирует пакетное добавление строк.
func (l *LoggingExporter) AddRows(rows []map[string]any) {
	l.logger.WithFields(logrus.Fields{"operation": "add_rows", "rows": len(rows)}).Debug("Добавление строк")
	l.next.AddRows(rows)
}

// Остальные методы просто делегируют вызовы.
func (l *LoggingExporter) AddRowValues(values []any) { l.next.AddRowValues(values) }

func (l *LoggingExporter) SetHeaders(headers []tabular.Header) { l.next.SetHeaders(headers) }

func (l *LoggingExporter) GetHeaders() []tabular.Header { return l.next.GetHeaders() }

func (l *LoggingExporter) ShowHeaders() { l.next.ShowHeaders() }

func (l *LoggingExporter) HideHeaders() { l.next.HideHeaders() }

func (l *LoggingExporter) ToArray() [][]any { return l.next.ToArray() }

func (l *LoggingExporter) ToCsv(separator, quote, lineEnding string) string {
	return l.next.ToCsv(separator, quote, lineEnding)
}

func (l *LoggingExporter) ToXML() string { return l.next.ToXML() }

func (l *LoggingExporter) FailedCells() []tabular.FailedCell { return l.next.FailedCells() }

func (l *LoggingExporter) SetSheetName(name string) { l.next.SetSheetName(name) }

func (l *LoggingExporter) SetSheetID(id int) { l.next.SetSheetID(id) }

func (l *LoggingExporter) PreserveFormulas(tableName string) { l.next.PreserveFormulas(tableName) }

func (l *LoggingExporter) RefreshTableRange(tableName string) { l.next.RefreshTableRange(tableName) }

func (l *LoggingExporter) EnableAutoSave(on bool) { l.next.EnableAutoSave(on) }

func (l *LoggingExporter) AppendSheet(name string) error { return l.next.AppendSheet(name) }

func (l *LoggingExporter) SetColumnType(name string, kind sheetml.CellType) error {
	return l.next.SetColumnType(name, kind)
}
