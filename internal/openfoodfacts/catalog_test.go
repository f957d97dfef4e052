package openfoodfacts

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JesusOliveto/CalCalculator/internal/nutrition"
	"github.com/JesusOliveto/CalCalculator/internal/sheets"
)

// TestLookupSaveAndRecord follows a scanned barcode into the catalog and
// today's log: 200 g of a 60 kcal/100 g product is 120 kcal.
func TestLookupSaveAndRecord(t *testing.T) {
	t.Parallel()

	c, transport := newMockedClient(t, Config{})
	transport.RegisterResponder(http.MethodGet,
		"https://world.openfoodfacts.org/api/v0/product/7791234567890.json",
		httpmock.NewStringResponder(http.StatusOK, `{
		  "status": 1,
		  "product": {
		    "product_name": "Leche descremada",
		    "brands": "La Serenísima",
		    "nutriments": {"energy-kcal_100g": 60}
		  }
		}`))

	loc, err := time.LoadLocation(nutrition.DefaultTimezone)
	require.NoError(t, err)
	now := time.Date(2025, 3, 10, 15, 30, 0, 0, loc)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	backend := sheets.NewMemoryBackend()
	store, err := nutrition.NewStore(t.Context(), sheets.NewGateway(backend, sheets.Options{Logger: logger}), nutrition.StoreOptions{
		Location: loc,
		Clock:    func() time.Time { return now },
		Logger:   logger,
	})
	require.NoError(t, err)

	food, err := c.Lookup(t.Context(), "7791234567890")
	require.NoError(t, err)
	require.NotNil(t, food.KcalPer100g)
	assert.InDelta(t, 60.0, *food.KcalPer100g, 1e-9)

	id, err := store.UpsertFood(t.Context(), *food)
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	grams := 200.0
	entry, err := store.RecordConsumption(t.Context(), id, &grams, nil)
	require.NoError(t, err)
	require.NotNil(t, entry.KcalTotal)
	assert.InDelta(t, 120.0, *entry.KcalTotal, 1e-9)

	rows, err := store.TodaysEntries(t.Context())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "15:30", rows[0].Time)
	assert.Equal(t, "Leche descremada", rows[0].Food)
	assert.Equal(t, "La Serenísima", rows[0].Brand)
	require.NotNil(t, rows[0].Kcal)
	assert.InDelta(t, 120.0, *rows[0].Kcal, 1e-9)

	// Scanning the same barcode again updates the saved food in place.
	again, err := store.UpsertFood(t.Context(), *food)
	require.NoError(t, err)
	assert.Equal(t, id, again)
}
