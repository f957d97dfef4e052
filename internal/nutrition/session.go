package nutrition

import (
	"github.com/JesusOliveto/CalCalculator/internal/conf"
	"github.com/JesusOliveto/CalCalculator/internal/errors"
)

// Session carries the per-user state of one interaction: the daily goal.
type Session struct {
	goal int
}

// NewSession returns a session with goal, or the default goal when goal is
// out of range.
func NewSession(goal int) Session {
	s := Session{goal: conf.DefaultDailyGoal}
	_ = s.SetGoal(goal)
	return s
}

// Goal returns the daily kcal goal.
func (s Session) Goal() int {
	if s.goal == 0 {
		return conf.DefaultDailyGoal
	}
	return s.goal
}

// SetGoal changes the daily goal. Values outside
// [conf.MinDailyGoal, conf.MaxDailyGoal] are rejected and leave the session
// unchanged.
func (s *Session) SetGoal(goal int) error {
	if goal < conf.MinDailyGoal || goal > conf.MaxDailyGoal {
		return errors.Newf("daily goal must be between %d and %d, got %d", conf.MinDailyGoal, conf.MaxDailyGoal, goal).
			Component("nutrition").
			Category(errors.CategoryValidation).
			Context("field", "daily_goal").
			Build()
	}
	s.goal = goal
	return nil
}
