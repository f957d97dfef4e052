package nutrition

import (
	"math"
	"strings"

	"github.com/JesusOliveto/CalCalculator/internal/errors"
)

// KcalFrom computes the energy of a portion. Grams take precedence: with
// grams > 0 and a known kcal_per_100g the result is kcal_per_100g*grams/100.
// Otherwise servings > 0 with a known kcal_serving gives kcal_serving*servings.
// Anything else cannot be computed.
func KcalFrom(food Food, grams, servings *float64) (float64, bool) {
	if grams != nil && *grams > 0 && food.KcalPer100g != nil {
		return *food.KcalPer100g * *grams / 100, true
	}
	if servings != nil && *servings > 0 && food.KcalServing != nil {
		return *food.KcalServing * *servings, true
	}
	return 0, false
}

// ManualFood is the user input for a homemade food.
type ManualFood struct {
	Name         string   `json:"name"`
	Brand        string   `json:"brand"`
	Barcode      string   `json:"barcode"`
	KcalPer100g  *float64 `json:"kcal_per_100g"`
	KcalServing  *float64 `json:"kcal_serving"`
	ServingGrams *float64 `json:"serving_grams"`
}

// Food validates the input and converts it. Text is trimmed, zero counts as
// not provided and negative numbers are rejected.
func (m ManualFood) Food() (Food, error) {
	f := Food{
		Name:    strings.TrimSpace(m.Name),
		Brand:   strings.TrimSpace(m.Brand),
		Barcode: strings.TrimSpace(m.Barcode),
	}
	if f.Name == "" {
		return Food{}, validationError("name is required", "name")
	}

	var err error
	if f.KcalPer100g, err = optional(m.KcalPer100g, "kcal_per_100g"); err != nil {
		return Food{}, err
	}
	if f.KcalServing, err = optional(m.KcalServing, "kcal_serving"); err != nil {
		return Food{}, err
	}
	if f.ServingGrams, err = optional(m.ServingGrams, "serving_grams"); err != nil {
		return Food{}, err
	}
	return f, nil
}

func optional(v *float64, field string) (*float64, error) {
	if v == nil || *v == 0 {
		return nil, nil
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
		return nil, validationError(field+" must be a non-negative number", field)
	}
	out := *v
	return &out, nil
}

// Quantity returns a pointer to v, or nil when v is not positive.
func Quantity(v float64) *float64 {
	if !(v > 0) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func validationError(msg, field string) error {
	return errors.Newf("%s", msg).
		Component("nutrition").
		Category(errors.CategoryValidation).
		Context("field", field).
		Build()
}

// GoalCrossed reports whether adding a portion moved the day's total from at
// or below goal to above it.
func GoalCrossed(before, after float64, goal int) bool {
	g := float64(goal)
	return before <= g && after > g
}
