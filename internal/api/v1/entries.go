package api

import (
	"math"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/JesusOliveto/CalCalculator/internal/errors"
	"github.com/JesusOliveto/CalCalculator/internal/mqtt"
	"github.com/JesusOliveto/CalCalculator/internal/nutrition"
)

// EntryRequest is the body of POST /entries. Grams win over servings when
// both are given and the food has kcal per 100 g.
type EntryRequest struct {
	FoodID   int      `json:"food_id"`
	Grams    *float64 `json:"grams"`
	Servings *float64 `json:"servings"`
}

// EntryResponse is the recorded entry with the day's totals after it.
type EntryResponse struct {
	Entry     nutrition.Entry `json:"entry"`
	Goal      int             `json:"goal"`
	Consumed  float64         `json:"consumed"`
	Remaining float64         `json:"remaining"`
	GoalAlert bool            `json:"goal_alert"`
}

// CreateEntry handles POST /api/v1/entries
func (c *Controller) CreateEntry(ctx echo.Context) error {
	var req EntryRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "invalid request body", http.StatusBadRequest)
	}
	if req.FoodID <= 0 {
		return c.HandleError(ctx, nil, "food_id must be a positive integer", http.StatusBadRequest)
	}
	grams, err := quantity(req.Grams, "grams")
	if err != nil {
		return c.handleDomainError(ctx, err, "invalid quantity")
	}
	servings, err := quantity(req.Servings, "servings")
	if err != nil {
		return c.handleDomainError(ctx, err, "invalid quantity")
	}

	reqCtx := ctx.Request().Context()
	entry, err := c.store.RecordConsumption(reqCtx, req.FoodID, grams, servings)
	if err != nil {
		return c.handleDomainError(ctx, err, "failed to record entry")
	}

	resp := EntryResponse{Entry: entry}
	session, _ := c.session(ctx)
	summary, err := c.store.Summary(reqCtx, session)
	if err != nil {
		// The entry is stored; totals are only informational here.
		c.logger.Warn("failed to compute summary after entry", "entry_id", entry.ID, "error", err)
		return ctx.JSON(http.StatusCreated, resp)
	}
	resp.Goal, resp.Consumed, resp.Remaining = summary.Goal, summary.Consumed, summary.Remaining

	added := 0.0
	if entry.KcalTotal != nil {
		added = *entry.KcalTotal
	}
	c.afterEntry(ctx, entry, summary, added, &resp)

	return ctx.JSON(http.StatusCreated, resp)
}

// afterEntry publishes the entry and sends the goal alert. Failures are
// logged and never fail the request.
func (c *Controller) afterEntry(ctx echo.Context, entry nutrition.Entry, summary nutrition.DailySummary, added float64, resp *EntryResponse) {
	reqCtx := ctx.Request().Context()

	if c.publisher != nil {
		food, err := c.store.FoodByID(reqCtx, entry.FoodID)
		if err != nil {
			c.logger.Warn("failed to resolve food for entry event", "entry_id", entry.ID, "error", err)
		} else if err := c.publisher.PublishEntry(reqCtx, mqtt.NewEntryEventDTO(entry, food, summary)); err != nil {
			c.logger.Warn("failed to publish entry event", "entry_id", entry.ID, "error", err)
		}
	}

	if c.notifier != nil {
		sent, err := c.notifier.GoalCheck(reqCtx, summary, added)
		if err != nil {
			c.logger.Warn("failed to send goal alert", "entry_id", entry.ID, "error", err)
		}
		resp.GoalAlert = sent
	}
}

// quantity converts an optional request amount. Zero and absent mean not
// provided; negative or non-finite values are rejected.
func quantity(v *float64, field string) (*float64, error) {
	if v == nil || *v == 0 {
		return nil, nil
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
		return nil, errors.Newf("%s must be a positive number", field).
			Component("api").
			Category(errors.CategoryValidation).
			Context("field", field).
			Build()
	}
	return nutrition.Quantity(*v), nil
}
