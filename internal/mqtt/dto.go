package mqtt

import (
	"time"

	"github.com/JesusOliveto/CalCalculator/internal/nutrition"
)

// EntryEventDTO is the payload published for each recorded entry. Field
// names are part of the topic's contract with subscribers.
type EntryEventDTO struct {
	EntryID   int      `json:"entryId"`
	FoodID    int      `json:"foodId"`
	Food      string   `json:"food"`
	Brand     string   `json:"brand,omitempty"`
	Timestamp string   `json:"timestamp"` // RFC 3339, UTC
	Grams     *float64 `json:"grams,omitempty"`
	Servings  *float64 `json:"servings,omitempty"`
	Kcal      *float64 `json:"kcal,omitempty"`

	// Daily totals after this entry.
	Goal          int     `json:"goal"`
	ConsumedToday float64 `json:"consumedToday"`
	Remaining     float64 `json:"remaining"`
}

// NewEntryEventDTO builds the event for entry of food, with today's totals
// taken from summary.
func NewEntryEventDTO(entry nutrition.Entry, food nutrition.Food, summary nutrition.DailySummary) EntryEventDTO {
	dto := EntryEventDTO{
		EntryID:       entry.ID,
		FoodID:        entry.FoodID,
		Food:          food.Name,
		Brand:         food.Brand,
		Grams:         entry.Grams,
		Servings:      entry.Servings,
		Kcal:          entry.KcalTotal,
		Goal:          summary.Goal,
		ConsumedToday: summary.Consumed,
		Remaining:     summary.Remaining,
	}
	if entry.Timestamp != nil {
		dto.Timestamp = entry.Timestamp.UTC().Format(time.RFC3339)
	}
	return dto
}
