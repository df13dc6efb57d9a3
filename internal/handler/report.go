package handler

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fintrack/internal/model"
	"github.com/iliyamo/fintrack/internal/repository"
	"github.com/iliyamo/fintrack/internal/storage"
)

// ReportHandler serves saved report definitions and generated report files.
type ReportHandler struct {
	Reports *repository.ReportRepo
	Budgets *repository.BudgetRepo
	Files   storage.FileStore
}

type createCustomReportReq struct {
	Name        string         `json:"name" validate:"required,max=120"`
	Description string         `json:"description" validate:"max=2000"`
	Type        string         `json:"type" validate:"required,max=32"`
	Filters     map[string]any `json:"filters"`
}

type favoriteReq struct {
	IsFavorite *bool `json:"isFavorite"`
}

type generateReportReq struct {
	Title  string `json:"title" validate:"required,max=191"`
	Type   string `json:"type" validate:"required,max=32"`
	Format string `json:"format" validate:"required,oneof=PDF CSV XLSX JSON"`
	Month  int    `json:"month" validate:"omitempty,min=1,max=12"`
	Year   int    `json:"year" validate:"omitempty,min=2000,max=2100"`
}

// ----- custom reports -----

func (h *ReportHandler) ListCustom(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	items, err := h.Reports.ListCustom(ctx, principal(c).ID)
	if err != nil {
		return internalError(c, "list custom reports", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reports": items})
}

func (h *ReportHandler) CreateCustom(c echo.Context) error {
	var req createCustomReportReq
	if ok, err := bindOrBad(c, &req); !ok {
		return err
	}
	cr := &model.CustomReport{
		UserID:      principal(c).ID,
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		Filters:     req.Filters,
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Reports.CreateCustom(ctx, cr); err != nil {
		return internalError(c, "create custom report", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"report": cr})
}

// ToggleFavorite sets isFavorite, or flips it when the body omits it.
func (h *ReportHandler) ToggleFavorite(c echo.Context) error {
	var req favoriteReq
	if ok, err := bindOrBad(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	cr, err := h.Reports.SetFavorite(ctx, principal(c).ID, c.Param("id"), req.IsFavorite)
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(c, "report")
	}
	if err != nil {
		return internalError(c, "favorite custom report", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"report": cr})
}

func (h *ReportHandler) DeleteCustom(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Reports.DeleteCustom(ctx, principal(c).ID, c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "report")
		}
		return internalError(c, "delete custom report", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- generated reports -----

func (h *ReportHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	items, err := h.Reports.List(ctx, principal(c).ID)
	if err != nil {
		return internalError(c, "list reports", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reports": items})
}

// Generate renders the caller's budgets in the requested format and stores
// the file.  The row starts PENDING and ends COMPLETED or FAILED.
func (h *ReportHandler) Generate(c echo.Context) error {
	var req generateReportReq
	if ok, err := bindOrBad(c, &req); !ok {
		return err
	}
	if req.Format == model.FormatPDF || req.Format == model.FormatXLSX {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "format " + req.Format + " is not supported yet"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	uid := principal(c).ID

	budgets, err := h.Budgets.List(ctx, uid, req.Month, req.Year)
	if err != nil {
		return internalError(c, "generate report: load budgets", err)
	}
	rep := &model.Report{UserID: uid, Title: req.Title, Type: req.Type, Format: req.Format, Status: model.ReportPending}
	if err := h.Reports.Create(ctx, rep); err != nil {
		return internalError(c, "generate report: create", err)
	}

	body, err := renderBudgets(req.Format, budgets)
	if err == nil {
		key := fmt.Sprintf("reports/%s/%s.%s", uid, rep.ID, strings.ToLower(req.Format))
		err = h.Files.Put(ctx, key, bytes.NewReader(body), int64(len(body)), model.ContentType(req.Format))
		if err == nil {
			rep.Status = model.ReportCompleted
			rep.Metadata = model.ReportMetadata{FilePath: key, Size: int64(len(body)), Rows: len(budgets)}
		}
	}
	if err != nil {
		rep.Status = model.ReportFailed
		rep.Metadata = model.ReportMetadata{Error: err.Error()}
	}
	if ferr := h.Reports.Finish(ctx, rep); ferr != nil {
		return internalError(c, "generate report: finish", ferr)
	}
	if err != nil {
		return internalError(c, "generate report: render", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"report": rep})
}

func renderBudgets(format string, budgets []model.Budget) ([]byte, error) {
	switch format {
	case model.FormatJSON:
		return json.MarshalIndent(echo.Map{"budgets": budgets}, "", "  ")
	case model.FormatCSV:
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		_ = w.Write([]string{"category", "month", "year", "amount", "spent", "usage_percent", "alert_threshold"})
		for _, b := range budgets {
			_ = w.Write([]string{
				b.Category,
				strconv.Itoa(b.Month),
				strconv.Itoa(b.Year),
				strconv.FormatFloat(b.Amount, 'f', 2, 64),
				strconv.FormatFloat(b.Spent, 'f', 2, 64),
				strconv.FormatFloat(b.UsagePercent(), 'f', 1, 64),
				strconv.Itoa(b.AlertThreshold),
			})
		}
		w.Flush()
		return buf.Bytes(), w.Error()
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}

// Download streams a completed report from storage.
func (h *ReportHandler) Download(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	rep, err := h.Reports.Get(ctx, principal(c).ID, c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(c, "report")
	}
	if err != nil {
		return internalError(c, "download report: load", err)
	}
	if rep.Status != model.ReportCompleted || rep.Metadata.FilePath == "" {
		return c.JSON(http.StatusConflict, echo.Map{"error": "report is not ready"})
	}

	rc, err := h.Files.Open(ctx, rep.Metadata.FilePath)
	if errors.Is(err, storage.ErrNotFound) {
		return notFound(c, "report file")
	}
	if err != nil {
		return internalError(c, "download report: open", err)
	}
	defer rc.Close()

	name := fmt.Sprintf("report-%s.%s", rep.ID, strings.ToLower(rep.Format))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Stream(http.StatusOK, model.ContentType(rep.Format), io.Reader(rc))
}
