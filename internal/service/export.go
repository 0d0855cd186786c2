package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"xlsxfill_srv/internal/config"
	"xlsxfill_srv/internal/export"
	"xlsxfill_srv/internal/models"
	"xlsxfill_srv/internal/query"
	"xlsxfill_srv/internal/storage"
)

// QueryExecutor выполняет SQL-запросы заданий.
type QueryExecutor interface {
	Execute(ctx context.Context, sqlText string, args ...any) ([]map[string]any, error)
}

// ExportService управляет заданиями экспорта: хранит их в БД,
// выполняет запросы и заполняет шаблоны.
type ExportService struct {
	db       *gorm.DB
	storage  storage.Storage
	executor QueryExecutor
	logger   *logrus.Logger
	defaults config.Export
}

// NewExportService собирает сервис из зависимостей.
func NewExportService(db *gorm.DB, st storage.Storage, executor QueryExecutor, logger *logrus.Logger, defaults config.Export) *ExportService {
	return &ExportService{db: db, storage: st, executor: executor, logger: logger, defaults: defaults}
}

// CreateExport создаёт новое задание экспорта.
func (s *ExportService) CreateExport(ctx context.Context, exp *models.Export) error {
	logger := s.logger.WithFields(logrus.Fields{
		"title":        exp.Title,
		"template_key": exp.TemplateKey,
	})

	logger.Info("Создание задания экспорта")

	if exp.SheetID == 0 {
		exp.SheetID = s.defaults.SheetID
	}
	if err := exp.Validate(); err != nil {
		logger.WithError(err).Error("Ошибка валидации задания")
		return fmt.Errorf("ошибка валидации задания: %w", err)
	}
	if err := query.Validate(exp.Query); err != nil {
		logger.WithError(err).Error("Недопустимый запрос задания")
		return fmt.Errorf("недопустимый запрос: %w", err)
	}

	exp.Status = models.StatusPending
	if err := s.db.WithContext(ctx).Create(exp).Error; err != nil {
		logger.WithError(err).Error("Ошибка сохранения задания в БД")
		return fmt.Errorf("ошибка создания задания: %w", err)
	}

	logger.WithField("export_id", exp.ID).Info("Задание создано")
	return nil
}

// GetExport возвращает задание по идентификатору.
func (s *ExportService) GetExport(ctx context.Context, id uint) (*models.Export, error) {
	var exp models.Export
	if err := s.db.WithContext(ctx).First(&exp, id).Error; err != nil {
		return nil, fmt.Errorf("задание %d не найдено: %w", id, err)
	}
	return &exp, nil
}

// ListExports возвращает все задания.
func (s *ExportService) ListExports(ctx context.Context) ([]models.Export, error) {
	var exports []models.Export
	if err := s.db.WithContext(ctx).Order("created_at desc").Find(&exports).Error; err != nil {
		return nil, fmt.Errorf("ошибка получения списка заданий: %w", err)
	}
	return exports, nil
}

// DeleteExport удаляет задание и его результат из хранилища.
func (s *ExportService) DeleteExport(ctx context.Context, id uint) error {
	exp, err := s.GetExport(ctx, id)
	if err != nil {
		return err
	}

	if exp.FileKey != "" {
		if err := s.storage.Delete(ctx, exp.FileKey); err != nil {
			s.logger.WithError(err).WithField("file_key", exp.FileKey).Warn("Не удалось удалить результат из хранилища")
		}
	}

	if err := s.db.WithContext(ctx).Delete(&models.Export{}, id).Error; err != nil {
		return fmt.Errorf("ошибка удаления задания %d: %w", id, err)
	}
	return nil
}

// RunExport выполняет задание синхронно: запрос, заполнение
// шаблона, проверка результата и сохранение в хранилище.
func (s *ExportService) RunExport(ctx context.Context, id uint) (*models.Export, error) {
	exp, err := s.GetExport(ctx, id)
	if err != nil {
		return nil, err
	}

	logger := s.logger.WithFields(logrus.Fields{
		"export_id":    exp.ID,
		"template_key": exp.TemplateKey,
	})
	logger.Info("Запуск задания экспорта")

	s.setStatus(ctx, exp, models.StatusRunning, "")

	data, err := s.fill(ctx, exp)
	if err != nil {
		logger.WithError(err).Error("Ошибка выполнения задания")
		s.setStatus(ctx, exp, models.StatusFailed, err.Error())
		return nil, err
	}

	fileKey := s.storage.JoinPath("results", fmt.Sprintf("export_%d.xlsx", exp.ID))
	if err := s.storage.Save(ctx, fileKey, bytes.NewReader(data)); err != nil {
		logger.WithError(err).Error("Ошибка сохранения результата")
		s.setStatus(ctx, exp, models.StatusFailed, err.Error())
		return nil, fmt.Errorf("ошибка сохранения результата: %w", err)
	}

	exp.FileKey = fileKey
	exp.FilledAt = time.Now()
	exp.SetStatus(models.StatusCompleted)
	if err := s.db.WithContext(ctx).Save(exp).Error; err != nil {
		return nil, fmt.Errorf("ошибка обновления задания %d: %w", exp.ID, err)
	}

	logger.WithField("file_key", fileKey).Info("Задание выполнено")
	return exp, nil
}

// fill выполняет запрос и вписывает строки в шаблон задания.
func (s *ExportService) fill(ctx context.Context, exp *models.Export) ([]byte, error) {
	if err := query.Validate(exp.Query); err != nil {
		return nil, fmt.Errorf("недопустимый запрос: %w", err)
	}

	rows, err := s.executor.Execute(ctx, exp.Query)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}

	tmpl, err := s.storage.Get(ctx, exp.TemplateKey)
	if err != nil {
		return nil, fmt.Errorf("шаблон %s недоступен: %w", exp.TemplateKey, err)
	}
	defer tmpl.Close()

	scratch, err := os.CreateTemp("", "xlsxfill-tmpl-*.xlsx")
	if err != nil {
		return nil, fmt.Errorf("создание временного шаблона: %w", err)
	}
	scratchPath := scratch.Name()
	defer os.Remove(scratchPath)

	if _, err := io.Copy(scratch, tmpl); err != nil {
		scratch.Close()
		return nil, fmt.Errorf("копирование шаблона: %w", err)
	}
	scratch.Close()

	table := export.NewLoggingExporter(export.NewTable(), s.logger)
	if exp.SheetName != "" {
		table.SetSheetName(exp.SheetName)
	} else {
		table.SetSheetID(exp.SheetID)
	}
	if exp.ShowHeaders || s.defaults.ShowHeaders {
		table.ShowHeaders()
	}
	if exp.TableName != "" {
		table.RefreshTableRange(exp.TableName)
		if exp.PreserveFormulas {
			table.PreserveFormulas(exp.TableName)
		}
	}
	if s.defaults.AutoSave {
		table.EnableAutoSave(true)
	}
	table.AddRows(rows)

	if failed := table.FailedCells(); len(failed) > 0 {
		s.logger.WithFields(logrus.Fields{
			"export_id": exp.ID,
			"count":     len(failed),
		}).Warn("Часть значений не сопоставлена с заголовками")
	}

	force := exp.ForceAutoCalc || s.defaults.ForceAutoCalc
	if err := table.AttachToFile(scratchPath, "", force); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(scratchPath)
	if err != nil {
		return nil, fmt.Errorf("чтение результата: %w", err)
	}

	if err := s.verify(data); err != nil {
		return nil, err
	}
	return data, nil
}

// verify открывает результат чистым читателем xlsx и убеждается,
// что пакет пригоден для целевой программы.
func (s *ExportService) verify(data []byte) error {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("результат не читается как xlsx: %w", err)
	}
	defer f.Close()

	if len(f.GetSheetList()) == 0 {
		return fmt.Errorf("результат не содержит листов")
	}
	return nil
}

// GetExportFile возвращает содержимое готового результата.
func (s *ExportService) GetExportFile(ctx context.Context, id uint) (io.ReadCloser, string, error) {
	exp, err := s.GetExport(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if !exp.IsCompleted() || exp.FileKey == "" {
		return nil, "", fmt.Errorf("задание %d ещё не выполнено", id)
	}

	rc, err := s.storage.Get(ctx, exp.FileKey)
	if err != nil {
		return nil, "", fmt.Errorf("результат задания %d недоступен: %w", id, err)
	}
	return rc, exp.Title + ".xlsx", nil
}

func (s *ExportService) setStatus(ctx context.Context, exp *models.Export, status, errMsg string) {
	exp.SetStatus(status)
	exp.Error = errMsg
	if err := s.db.WithContext(ctx).Model(exp).Updates(map[string]any{
		"status": status,
		"error":  errMsg,
	}).Error; err != nil {
		s.logger.WithError(err).WithField("export_id", exp.ID).Error("Не удалось обновить статус задания")
	}
}
