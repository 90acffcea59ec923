package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	v1 "github.com/optimization-lab/regional-report/internal/api/v1"
	httperr "github.com/optimization-lab/regional-report/internal/core/errors"
	"github.com/optimization-lab/regional-report/internal/core/sales"
	"github.com/optimization-lab/regional-report/internal/report"
)

// Runner produces a rendered report. *report.Reporter satisfies it.
type Runner interface {
	Report(ctx context.Context, req report.Request, w io.Writer, format report.Format) (*report.Report, error)
}

// ReportHandler serves regional sales reports over HTTP.
type ReportHandler struct {
	runner Runner
}

func NewReportHandler(runner Runner) *ReportHandler {
	return &ReportHandler{runner: runner}
}

// RegisterRoutes registers the report API routes on the given router.
func (h *ReportHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/reports/regional-sales", h.HandleRegionalSales)
}

// HandleRegionalSales handles GET /v1/reports/regional-sales
// Query parameters: country, mode, cache
func (h *ReportHandler) HandleRegionalSales(c *gin.Context) {
	var query v1.ReportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidRequestError,
			Message:   "Invalid query parameters",
			Details:   err.Error(),
		})
		return
	}
	if err := query.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidRequestError,
			Message:   "Invalid report query",
			Details:   err.Error(),
		})
		return
	}

	mode, err := report.ParseMode(query.Mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidRequestError,
			Message:   "Invalid report query",
			Details:   err.Error(),
		})
		return
	}

	req := report.Request{
		Mode:     mode,
		Country:  query.Country,
		UseCache: query.Cache,
	}

	// Render into a buffer so a failed run never leaves a partial body.
	var body bytes.Buffer
	rep, err := h.runner.Report(c.Request.Context(), req, &body, report.FormatJSON)
	if err != nil {
		switch {
		case errors.Is(err, report.ErrInvalidRequest):
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidRequestError,
				Message:   "Invalid report query",
				Details:   err.Error(),
			})
		case errors.Is(err, sales.ErrStoreUnavailable):
			c.JSON(http.StatusServiceUnavailable, httperr.ErrorResponse{
				ErrorType: httperr.HttpStoreUnavailable,
				Message:   "Backing store unavailable",
				Details:   err.Error(),
			})
		default:
			c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
				ErrorType: httperr.HttpInternalError,
				Message:   "Failed to build report",
				Details:   err.Error(),
			})
		}
		return
	}

	if rep != nil {
		slog.Debug("[ReportHandler] Report served", "run_id", rep.RunID, "mode", mode, "country", req.Country)
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body.Bytes())
}
