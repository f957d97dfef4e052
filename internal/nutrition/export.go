package nutrition

import (
	"encoding/csv"
	"io"

	"golang.org/x/text/language"

	"github.com/JesusOliveto/CalCalculator/internal/sheets"
)

// CSVFilename is the suggested download name for today's export.
const CSVFilename = "consumos_hoy.csv"

// WriteCSV writes rows as CSV with a header localized to tag. Missing
// numbers are empty fields.
func WriteCSV(w io.Writer, rows []DisplayRow, tag language.Tag) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(messagesFor(tag).csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{r.Time, r.Food, r.Brand, FormatOptional(r.Grams), FormatOptional(r.Servings), FormatOptional(r.Kcal)}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatOptional renders an optional number in shortest form, or "" when
// missing.
func FormatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return sheets.FormatNumber(*v)
}
