package sheets

import (
	"math"
	"strconv"
	"strings"
)

// Record is one data row keyed by column header. Missing values are empty
// strings; numeric columns hold the shortest decimal form of their value.
type Record map[string]string

// Text returns the raw cell value.
func (r Record) Text(key string) string {
	return r[key]
}

// Number returns the numeric value of key and whether it is present.
func (r Record) Number(key string) (float64, bool) {
	s := strings.TrimSpace(r[key])
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// NumberPtr is Number as an optional value.
func (r Record) NumberPtr(key string) *float64 {
	v, ok := r.Number(key)
	if !ok {
		return nil
	}
	return &v
}

// Int returns the integral value of key. Fractional values are rejected.
func (r Record) Int(key string) (int, bool) {
	v, ok := r.Number(key)
	if !ok || v != math.Trunc(v) {
		return 0, false
	}
	return int(v), true
}

// SetText stores a raw value.
func (r Record) SetText(key, value string) {
	r[key] = value
}

// SetNumber stores v, or clears the cell when v is nil.
func (r Record) SetNumber(key string, v *float64) {
	if v == nil {
		r[key] = ""
		return
	}
	r[key] = FormatNumber(*v)
}

// SetInt stores an integer value.
func (r Record) SetInt(key string, v int) {
	r[key] = strconv.Itoa(v)
}

// Clone returns an independent copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// FormatNumber renders v in its shortest decimal form.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// normalizeNumber coerces a cell to canonical numeric text; anything that
// does not parse as a finite number becomes missing.
func normalizeNumber(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return FormatNumber(v)
}

func cloneRecords(in []Record) []Record {
	out := make([]Record, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}
