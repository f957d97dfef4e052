package notification

import (
	"fmt"

	"golang.org/x/text/language"

	"github.com/JesusOliveto/CalCalculator/internal/nutrition"
)

// GoalExceeded builds the alert for a day whose total passed its goal.
func GoalExceeded(summary nutrition.DailySummary, tag language.Tag) *Notification {
	over := summary.Consumed - float64(summary.Goal)

	var n *Notification
	if nutrition.MatchLocale(tag.String()) == language.English {
		n = NewNotification(TypeGoalExceeded,
			"Daily goal exceeded",
			fmt.Sprintf("Today: %.0f kcal of %d (%.0f over).", summary.Consumed, summary.Goal, over))
	} else {
		n = NewNotification(TypeGoalExceeded,
			"Meta diaria superada",
			fmt.Sprintf("Hoy: %.0f kcal de %d (%.0f de más).", summary.Consumed, summary.Goal, over))
	}
	return n.
		WithMetadata("goal", summary.Goal).
		WithMetadata("consumed", summary.Consumed)
}
