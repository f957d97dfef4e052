package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/JesusOliveto/CalCalculator/internal/conf"
)

// GoalResponse describes the session goal and its bounds.
type GoalResponse struct {
	Goal int `json:"goal"`
	Min  int `json:"min"`
	Max  int `json:"max"`
	Step int `json:"step"`
}

// GoalRequest is the body of PUT /goal.
type GoalRequest struct {
	Goal int `json:"goal"`
}

func goalResponse(goal int) GoalResponse {
	return GoalResponse{
		Goal: goal,
		Min:  conf.MinDailyGoal,
		Max:  conf.MaxDailyGoal,
		Step: conf.DailyGoalStep,
	}
}

// GetGoal handles GET /api/v1/goal
func (c *Controller) GetGoal(ctx echo.Context) error {
	session, _ := c.session(ctx)
	return ctx.JSON(http.StatusOK, goalResponse(session.Goal()))
}

// SetGoal handles PUT /api/v1/goal. Out of range goals are rejected and the
// stored goal is left as it was.
func (c *Controller) SetGoal(ctx echo.Context) error {
	var req GoalRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "invalid request body", http.StatusBadRequest)
	}

	session, raw := c.session(ctx)
	if err := session.SetGoal(req.Goal); err != nil {
		return c.handleDomainError(ctx, err, "invalid daily goal")
	}
	if err := c.saveGoal(ctx, raw, session.Goal()); err != nil {
		return c.HandleError(ctx, err, "failed to save session", http.StatusInternalServerError)
	}

	c.logger.Info("daily goal changed", "goal", session.Goal())
	return ctx.JSON(http.StatusOK, goalResponse(session.Goal()))
}
