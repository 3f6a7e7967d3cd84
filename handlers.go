package pageuser

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/BouoniManar/Exportation-Template/export"
)

type saveConfigRequest struct {
	Name    string          `json:"name"`
	Content json.RawMessage `json:"content"`
}

// --- saved configurations ---

func (a *App) handleSaveConfig(c echo.Context) error {
	var req saveConfigRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "name is required")
	}
	if !json.Valid(req.Content) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "content must be valid JSON")
	}
	cfg, err := a.Store.SaveJSONConfig(userID(c), req.Name, string(req.Content))
	if err != nil {
		return err
	}
	if err := a.Store.AddHistory(userID(c), "saved configuration "+cfg.Name); err != nil {
		a.logger.Error("history write failed", "error", err)
	}
	return c.JSON(http.StatusCreated, cfg)
}

func (a *App) handleListConfigs(c echo.Context) error {
	configs, err := a.Store.ListJSONConfigs(userID(c))
	if err != nil {
		return err
	}
	if configs == nil {
		configs = []SiteConfigRecord{}
	}
	return c.JSON(http.StatusOK, configs)
}

func (a *App) handleGetConfig(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	cfg, err := a.Store.GetJSONConfig(id, userID(c))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return echo.NewHTTPError(http.StatusNotFound, "configuration not found")
		}
		return err
	}
	return c.JSONBlob(http.StatusOK, []byte(cfg.Content))
}

func (a *App) handleDeleteConfig(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := a.Store.DeleteJSONConfig(id, userID(c)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return echo.NewHTTPError(http.StatusNotFound, "configuration not found")
		}
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// --- template generation ---

type generateRequest struct {
	Name           string          `json:"name"`
	Config         json.RawMessage `json:"config"`
	SourceConfigID int64           `json:"source_config_id"`
}

// handleGenerate runs the export pipeline over the posted configuration
// envelope and streams the resulting archive back as an attachment. The
// archive also stays on disk so it can be re-downloaded later.
func (a *App) handleGenerate(c echo.Context) error {
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	var envelope map[string]any
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &envelope); err != nil {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, "config must be a JSON object")
		}
	}

	zipPath, report, err := a.Exporter.Generate(envelope)
	if err != nil {
		if errors.Is(err, export.ErrEmptyConfig) || errors.Is(err, export.ErrEmptySiteConfig) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
		a.logger.Error("generation failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "template generation failed")
	}
	a.logger.Info("template generated",
		"path", zipPath,
		"images_added", report.ImagesAdded,
		"images_reused", report.ImagesReused,
		"images_errored", report.ImagesErrored)

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(zipPath), ".zip")
	}
	if _, err := a.Store.CreateTemplate(userID(c), name, zipPath, req.SourceConfigID); err != nil {
		return err
	}
	if err := a.Store.AddHistory(userID(c), "generated template "+name); err != nil {
		a.logger.Error("history write failed", "error", err)
	}

	c.Response().Header().Set("X-Template-Server-Path", zipPath)
	return c.Attachment(zipPath, filepath.Base(zipPath))
}

// --- generated templates ---

func (a *App) handleListTemplates(c echo.Context) error {
	templates, err := a.Store.ListTemplates(userID(c))
	if err != nil {
		return err
	}
	if templates == nil {
		templates = []GeneratedTemplate{}
	}
	return c.JSON(http.StatusOK, templates)
}

func (a *App) handleDownloadTemplate(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	t, err := a.Store.GetTemplate(id, userID(c))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return echo.NewHTTPError(http.StatusNotFound, "template not found")
		}
		return err
	}
	if _, err := os.Stat(t.FilePath); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "template archive no longer exists")
	}
	return c.Attachment(t.FilePath, filepath.Base(t.FilePath))
}

func (a *App) handleDeleteTemplate(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	t, err := a.Store.DeleteTemplate(id, userID(c))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return echo.NewHTTPError(http.StatusNotFound, "template not found")
		}
		return err
	}
	if err := os.Remove(t.FilePath); err != nil && !os.IsNotExist(err) {
		a.logger.Error("artifact removal failed", "path", t.FilePath, "error", err)
	}
	if err := a.Store.AddHistory(userID(c), "deleted template "+t.Name); err != nil {
		a.logger.Error("history write failed", "error", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// --- history and dashboard ---

func (a *App) handleHistory(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	entries, err := a.Store.ListHistory(userID(c), limit)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []HistoryEntry{}
	}
	return c.JSON(http.StatusOK, entries)
}

func (a *App) handleDashboard(c echo.Context) error {
	uid := userID(c)
	count, err := a.Store.CountTemplates(uid)
	if err != nil {
		return err
	}
	last, err := a.Store.LastActivity(uid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"template_count": count,
		"last_activity":  last,
	})
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}
