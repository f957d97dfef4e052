package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/JesusOliveto/CalCalculator/internal/errors"
	"github.com/JesusOliveto/CalCalculator/internal/nutrition"
)

// NotFoundMessage tells the user how to continue after a failed lookup.
const NotFoundMessage = "not found, try manual entry"

// LookupBarcode handles GET /api/v1/lookup/:barcode. A product found
// upstream is saved to the catalog and returned with its id.
func (c *Controller) LookupBarcode(ctx echo.Context) error {
	if c.lookup == nil {
		return c.HandleError(ctx, nil, "barcode lookup is disabled", http.StatusServiceUnavailable)
	}

	barcode := strings.TrimSpace(ctx.Param("barcode"))
	food, err := c.lookup.Lookup(ctx.Request().Context(), barcode)
	if err != nil {
		if errors.IsNotFound(err) {
			return c.HandleError(ctx, err, NotFoundMessage, http.StatusNotFound)
		}
		return c.handleDomainError(ctx, err, "lookup failed")
	}

	id, err := c.store.UpsertFood(ctx.Request().Context(), *food)
	if err != nil {
		return c.handleDomainError(ctx, err, "failed to save food")
	}
	food.ID = id
	return ctx.JSON(http.StatusOK, food)
}

// ListFoods handles GET /api/v1/foods
func (c *Controller) ListFoods(ctx echo.Context) error {
	foods, err := c.store.Foods(ctx.Request().Context())
	if err != nil {
		return c.handleDomainError(ctx, err, "failed to read foods")
	}
	return ctx.JSON(http.StatusOK, foods)
}

// CreateFood handles POST /api/v1/foods for manually entered foods.
func (c *Controller) CreateFood(ctx echo.Context) error {
	var req nutrition.ManualFood
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "invalid request body", http.StatusBadRequest)
	}

	food, err := req.Food()
	if err != nil {
		return c.handleDomainError(ctx, err, "invalid food")
	}

	id, err := c.store.UpsertFood(ctx.Request().Context(), food)
	if err != nil {
		return c.handleDomainError(ctx, err, "failed to save food")
	}
	food.ID = id
	return ctx.JSON(http.StatusCreated, food)
}
