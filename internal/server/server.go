package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"xlsxfill_srv/internal/config"
	"xlsxfill_srv/internal/models"
	"xlsxfill_srv/internal/service"
	"xlsxfill_srv/internal/xlsxpkg"
)

// Server represents the HTTP server
type Server struct {
	echo    *echo.Echo
	service *service.ExportService
	logger  *logrus.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg config.Config, exportService *service.ExportService, logger *logrus.Logger) *Server {
	e := echo.New()
	e.Debug = cfg.Server.Debug
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())

	server := &Server{
		echo:    e,
		service: exportService,
		logger:  logger,
	}

	server.setupRoutes()
	return server
}

// Start starts the HTTP server
func (s *Server) Start(address string) error {
	s.logger.WithField("address", address).Info("Starting HTTP server")
	return s.echo.Start(address)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

// setupRoutes configures the server routes
func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", s.healthCheck)

	// API routes
	api := s.echo.Group("/api/v1")
	{
		exports := api.Group("/exports")
		{
			exports.POST("", s.createExport)
			exports.GET("", s.listExports)
			exports.GET("/:id", s.getExport)
			exports.DELETE("/:id", s.deleteExport)
			exports.POST("/:id/run", s.runExport)
			exports.GET("/:id/download", s.downloadExport)
		}
	}
}

// healthCheck handles health check requests
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "xlsxfill-service",
	})
}

// createExport handles export job creation
func (s *Server) createExport(c echo.Context) error {
	var req struct {
		Title            string                 `json:"title"`
		TemplateKey      string                 `json:"template_key"`
		Query            string                 `json:"query"`
		SheetName        string                 `json:"sheet_name"`
		SheetID          int                    `json:"sheet_id"`
		TableName        string                 `json:"table_name"`
		PreserveFormulas bool                   `json:"preserve_formulas"`
		ShowHeaders      bool                   `json:"show_headers"`
		ForceAutoCalc    bool                   `json:"force_auto_calc"`
		Parameters       map[string]interface{} `json:"parameters"`
		CreatedBy        string                 `json:"created_by"`
	}

	if err := c.Bind(&req); err != nil {
		s.logger.WithError(err).Error("Failed to bind request")
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request format",
		})
	}

	if req.CreatedBy == "" {
		req.CreatedBy = "anonymous"
	}

	exp := &models.Export{
		Title:            req.Title,
		TemplateKey:      req.TemplateKey,
		Query:            req.Query,
		SheetName:        req.SheetName,
		SheetID:          req.SheetID,
		TableName:        req.TableName,
		PreserveFormulas: req.PreserveFormulas,
		ShowHeaders:      req.ShowHeaders,
		ForceAutoCalc:    req.ForceAutoCalc,
		Parameters:       req.Parameters,
		CreatedBy:        req.CreatedBy,
	}

	if err := s.service.CreateExport(c.Request().Context(), exp); err != nil {
		s.logger.WithError(err).Error("Failed to create export")
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusCreated, exp)
}

// listExports handles listing export jobs
func (s *Server) listExports(c echo.Context) error {
	exports, err := s.service.ListExports(c.Request().Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to list exports")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to list exports",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"exports": exports,
		"count":   len(exports),
	})
}

// getExport handles getting a single export job
func (s *Server) getExport(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid export ID",
		})
	}

	exp, err := s.service.GetExport(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "Export not found",
		})
	}

	return c.JSON(http.StatusOK, exp)
}

// deleteExport handles export job deletion
func (s *Server) deleteExport(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid export ID",
		})
	}

	if err := s.service.DeleteExport(c.Request().Context(), id); err != nil {
		s.logger.WithError(err).Error("Failed to delete export")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to delete export",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Export deleted successfully",
	})
}

// runExport handles synchronous export execution
func (s *Server) runExport(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid export ID",
		})
	}

	exp, err := s.service.RunExport(c.Request().Context(), id)
	if err != nil {
		s.logger.WithError(err).Error("Failed to run export")

		var missing *xlsxpkg.MissingResourceError
		if errors.As(err, &missing) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": err.Error(),
			})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, exp)
}

// downloadExport streams a completed export file
func (s *Server) downloadExport(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid export ID",
		})
	}

	rc, filename, err := s.service.GetExportFile(c.Request().Context(), id)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get export file")
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": err.Error(),
		})
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Stream(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rc)
}

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
