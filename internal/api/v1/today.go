package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/JesusOliveto/CalCalculator/internal/nutrition"
)

// GetToday handles GET /api/v1/today
func (c *Controller) GetToday(ctx echo.Context) error {
	session, _ := c.session(ctx)
	summary, err := c.store.Summary(ctx.Request().Context(), session)
	if err != nil {
		return c.handleDomainError(ctx, err, "failed to read today's entries")
	}
	return ctx.JSON(http.StatusOK, summary)
}

// ExportToday handles GET /api/v1/today.csv
func (c *Controller) ExportToday(ctx echo.Context) error {
	rows, err := c.store.TodaysEntries(ctx.Request().Context())
	if err != nil {
		return c.handleDomainError(ctx, err, "failed to read today's entries")
	}

	var buf bytes.Buffer
	if err := nutrition.WriteCSV(&buf, rows, c.locale); err != nil {
		return c.HandleError(ctx, err, "failed to render CSV", http.StatusInternalServerError)
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", nutrition.CSVFilename))
	return ctx.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
