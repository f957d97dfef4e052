// Package nutrition is the domain layer: the food catalog, consumption
// entries, calorie arithmetic and the daily view, all persisted through the
// spreadsheet gateway.
package nutrition

import (
	"strings"
	"time"

	"github.com/JesusOliveto/CalCalculator/internal/sheets"
)

// Collection names.
const (
	FoodsCollection   = "foods"
	EntriesCollection = "entries"
)

// Placeholder shown for entries whose food no longer resolves.
const Placeholder = "—"

// FoodsSchema is the header layout of the foods worksheet.
var FoodsSchema = sheets.Schema{
	Name:    FoodsCollection,
	Headers: []string{"id", "barcode", "name", "brand", "kcal_per_100g", "kcal_serving", "serving_grams", "created_at"},
	Numeric: []string{"id", "kcal_per_100g", "kcal_serving", "serving_grams"},
}

// EntriesSchema is the header layout of the entries worksheet.
var EntriesSchema = sheets.Schema{
	Name:    EntriesCollection,
	Headers: []string{"id", "food_id", "ts_utc", "grams", "servings", "kcal_total"},
	Numeric: []string{"id", "food_id", "grams", "servings", "kcal_total"},
}

// Food is a catalog item. Optional numbers are nil when unknown.
type Food struct {
	ID           int        `json:"id"`
	Barcode      string     `json:"barcode,omitempty"`
	Name         string     `json:"name"`
	Brand        string     `json:"brand,omitempty"`
	KcalPer100g  *float64   `json:"kcal_per_100g"`
	KcalServing  *float64   `json:"kcal_serving"`
	ServingGrams *float64   `json:"serving_grams"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
}

// Entry is one recorded consumption event.
type Entry struct {
	ID        int        `json:"id"`
	FoodID    int        `json:"food_id"`
	Timestamp *time.Time `json:"ts_utc"` // nil when the stored value does not parse
	Grams     *float64   `json:"grams"`
	Servings  *float64   `json:"servings"`
	KcalTotal *float64   `json:"kcal_total"`
}

// DisplayRow is an entry of today joined with its food.
type DisplayRow struct {
	Time     string   `json:"time"` // HH:MM, local
	Food     string   `json:"food"`
	Brand    string   `json:"brand"`
	Grams    *float64 `json:"grams"`
	Servings *float64 `json:"servings"`
	Kcal     *float64 `json:"kcal"`
}

// DailySummary is the running total of today against the session goal.
type DailySummary struct {
	Goal      int          `json:"goal"`
	Consumed  float64      `json:"consumed"`
	Remaining float64      `json:"remaining"`
	Rows      []DisplayRow `json:"rows"`
}

func foodFromRecord(r sheets.Record) Food {
	id, _ := r.Int("id")
	f := Food{
		ID:           id,
		Barcode:      r.Text("barcode"),
		Name:         r.Text("name"),
		Brand:        r.Text("brand"),
		KcalPer100g:  r.NumberPtr("kcal_per_100g"),
		KcalServing:  r.NumberPtr("kcal_serving"),
		ServingGrams: r.NumberPtr("serving_grams"),
	}
	if ts, ok := parseTimestamp(r.Text("created_at")); ok {
		f.CreatedAt = &ts
	}
	return f
}

// applyFood writes the mutable fields of f onto r. Missing values clear the
// cell.
func applyFood(r sheets.Record, f Food) {
	r.SetText("barcode", f.Barcode)
	r.SetText("name", f.Name)
	r.SetText("brand", f.Brand)
	r.SetNumber("kcal_per_100g", f.KcalPer100g)
	r.SetNumber("kcal_serving", f.KcalServing)
	r.SetNumber("serving_grams", f.ServingGrams)
}

func entryFromRecord(r sheets.Record) Entry {
	id, _ := r.Int("id")
	foodID, _ := r.Int("food_id")
	e := Entry{
		ID:        id,
		FoodID:    foodID,
		Grams:     r.NumberPtr("grams"),
		Servings:  r.NumberPtr("servings"),
		KcalTotal: r.NumberPtr("kcal_total"),
	}
	if ts, ok := parseTimestamp(r.Text("ts_utc")); ok {
		e.Timestamp = &ts
	}
	return e
}

// zoneless is the ISO form without offset that older rows carry; it is
// read as UTC.
const zoneless = "2006-01-02T15:04:05.999999999"

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation(zoneless, s, time.UTC); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// nextID returns max(id)+1 over records, or 1 when none has a valid id.
func nextID(records []sheets.Record) int {
	highest := 0
	for _, r := range records {
		if id, ok := r.Int("id"); ok && id > highest {
			highest = id
		}
	}
	return highest + 1
}
