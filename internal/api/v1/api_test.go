package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JesusOliveto/CalCalculator/internal/mqtt"
	"github.com/JesusOliveto/CalCalculator/internal/nutrition"
	"github.com/JesusOliveto/CalCalculator/internal/openfoodfacts"
	"github.com/JesusOliveto/CalCalculator/internal/sheets"
)

const offProduct = "https://world.openfoodfacts.org/api/v0/product/7790080000017.json"

type fakePublisher struct {
	mu     sync.Mutex
	events []mqtt.EntryEventDTO
	err    error
}

func (f *fakePublisher) PublishEntry(_ context.Context, event mqtt.EntryEventDTO) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

type fakeNotifier struct {
	mu     sync.Mutex
	checks []float64
}

func (f *fakeNotifier) GoalCheck(_ context.Context, summary nutrition.DailySummary, added float64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks = append(f.checks, added)
	return nutrition.GoalCrossed(summary.Consumed-added, summary.Consumed, summary.Goal), nil
}

type testEnv struct {
	echo      *echo.Echo
	backend   *sheets.MemoryBackend
	store     *nutrition.Store
	transport *httpmock.MockTransport
	publisher *fakePublisher
	notifier  *fakeNotifier
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	loc, err := time.LoadLocation(nutrition.DefaultTimezone)
	require.NoError(t, err)
	now := time.Date(2025, 3, 10, 15, 30, 0, 0, loc)

	backend := sheets.NewMemoryBackend()
	gw := sheets.NewGateway(backend, sheets.Options{Logger: logger})
	store, err := nutrition.NewStore(t.Context(), gw, nutrition.StoreOptions{
		Location: loc,
		Clock:    func() time.Time { return now },
		Logger:   logger,
	})
	require.NoError(t, err)

	transport := httpmock.NewMockTransport()
	lookup := openfoodfacts.New(openfoodfacts.Config{
		RateLimit: -1,
		Transport: transport,
		Logger:    logger,
	})
	t.Cleanup(lookup.Close)

	env := &testEnv{
		echo:      echo.New(),
		backend:   backend,
		store:     store,
		transport: transport,
		publisher: &fakePublisher{},
		notifier:  &fakeNotifier{},
	}
	base := []Option{
		WithLookup(lookup),
		WithPublisher(env.publisher),
		WithNotifier(env.notifier),
		WithLogger(logger),
	}
	New(env.echo, store, "test-secret", append(base, opts...)...)
	return env
}

func (env *testEnv) do(t *testing.T, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (env *testEnv) addFood(t *testing.T, body string) nutrition.Food {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/v1/foods", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[nutrition.Food](t, rec)
}

func TestGoalSession(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/goal", "")
	require.Equal(t, http.StatusOK, rec.Code)
	goal := decode[GoalResponse](t, rec)
	assert.Equal(t, GoalResponse{Goal: 1610, Min: 200, Max: 10000, Step: 10}, goal)

	rec = env.do(t, http.MethodPut, "/api/v1/goal", `{"goal":1800}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	rec = env.do(t, http.MethodGet, "/api/v1/goal", "", cookies...)
	assert.Equal(t, 1800, decode[GoalResponse](t, rec).Goal)

	t.Run("out of range is rejected", func(t *testing.T) {
		for _, body := range []string{`{"goal":150}`, `{"goal":10001}`} {
			rec := env.do(t, http.MethodPut, "/api/v1/goal", body, cookies...)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, rec.Result().Cookies())
		}
		rec := env.do(t, http.MethodGet, "/api/v1/goal", "", cookies...)
		assert.Equal(t, 1800, decode[GoalResponse](t, rec).Goal)
	})

	t.Run("garbage cookie falls back to default", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/goal", "", &http.Cookie{Name: sessionName, Value: "garbage"})
		assert.Equal(t, 1610, decode[GoalResponse](t, rec).Goal)
	})
}

func TestDefaultGoalOption(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, WithDefaultGoal(2000))

	rec := env.do(t, http.MethodGet, "/api/v1/goal", "")
	assert.Equal(t, 2000, decode[GoalResponse](t, rec).Goal)
}

func TestLookupBarcode(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.transport.RegisterResponder(http.MethodGet, offProduct,
		httpmock.NewStringResponder(http.StatusOK, `{
		  "status": 1,
		  "product": {
		    "product_name": "Alfajor",
		    "brands": "Guaymallén",
		    "serving_size": "38 g",
		    "nutriments": {"energy-kcal_100g": 430}
		  }
		}`))

	for range 2 {
		rec := env.do(t, http.MethodGet, "/api/v1/lookup/7790080000017", "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		food := decode[nutrition.Food](t, rec)
		assert.Equal(t, 1, food.ID)
		assert.Equal(t, "Alfajor", food.Name)
		assert.Equal(t, "7790080000017", food.Barcode)
		require.NotNil(t, food.ServingGrams)
		assert.InDelta(t, 38.0, *food.ServingGrams, 1e-9)
	}

	rec := env.do(t, http.MethodGet, "/api/v1/foods", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]nutrition.Food](t, rec), 1, "repeated lookups upsert one row")
}

func TestLookupNotFound(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.transport.RegisterResponder(http.MethodGet, offProduct,
		httpmock.NewStringResponder(http.StatusOK, `{"status":0,"status_verbose":"product not found"}`))

	rec := env.do(t, http.MethodGet, "/api/v1/lookup/7790080000017", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, NotFoundMessage, resp.Message)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Len(t, resp.CorrelationID, 8)

	assert.Len(t, env.backend.Rows(nutrition.FoodsCollection), 1, "only the header row")
}

func TestLookupDisabled(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, WithLookup(nil))

	rec := env.do(t, http.MethodGet, "/api/v1/lookup/123", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCreateFood(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"missing name", `{"name":"  ","kcal_per_100g":100}`, http.StatusBadRequest},
		{"negative number", `{"name":"Pan","kcal_serving":-1}`, http.StatusBadRequest},
		{"malformed body", `{"name":`, http.StatusBadRequest},
		{"valid", `{"name":" Milanesa casera ","kcal_per_100g":250,"kcal_serving":0}`, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/foods", tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}

	rec := env.do(t, http.MethodGet, "/api/v1/foods", "")
	foods := decode[[]nutrition.Food](t, rec)
	require.Len(t, foods, 1)
	assert.Equal(t, "Milanesa casera", foods[0].Name)
	assert.Nil(t, foods[0].KcalServing, "zero means not provided")
}

func TestCreateEntryScenario(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	food := env.addFood(t, `{"name":"Fideos","kcal_per_100g":310}`)

	rec := env.do(t, http.MethodPost, "/api/v1/entries", fmt.Sprintf(`{"food_id":%d,"grams":200}`, food.ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[EntryResponse](t, rec)
	require.NotNil(t, resp.Entry.KcalTotal)
	assert.InDelta(t, 620.0, *resp.Entry.KcalTotal, 1e-9)
	assert.InDelta(t, 620.0, resp.Consumed, 1e-9)
	assert.InDelta(t, 990.0, resp.Remaining, 1e-9)
	assert.False(t, resp.GoalAlert)

	require.Len(t, env.publisher.events, 1)
	event := env.publisher.events[0]
	assert.Equal(t, "Fideos", event.Food)
	assert.Equal(t, resp.Entry.ID, event.EntryID)
	assert.InDelta(t, 990.0, event.Remaining, 1e-9)

	// A second portion crosses the default goal.
	rec = env.do(t, http.MethodPost, "/api/v1/entries", fmt.Sprintf(`{"food_id":%d,"grams":400}`, food.ID))
	require.Equal(t, http.StatusCreated, rec.Code)
	resp = decode[EntryResponse](t, rec)
	assert.True(t, resp.GoalAlert)
	assert.InDelta(t, -250.0, resp.Remaining, 1e-9)
	assert.Equal(t, []float64{620, 1240}, env.notifier.checks)

	rec = env.do(t, http.MethodGet, "/api/v1/today", "")
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[nutrition.DailySummary](t, rec)
	assert.Len(t, summary.Rows, 2)
	assert.Equal(t, "Fideos", summary.Rows[0].Food)
	assert.InDelta(t, 1860.0, summary.Consumed, 1e-9)
}

func TestCreateEntryErrors(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	food := env.addFood(t, `{"name":"Empanada","kcal_serving":290}`)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"grams without kcal per 100 g", fmt.Sprintf(`{"food_id":%d,"grams":100}`, food.ID), http.StatusUnprocessableEntity},
		{"no quantity", fmt.Sprintf(`{"food_id":%d}`, food.ID), http.StatusUnprocessableEntity},
		{"negative servings", fmt.Sprintf(`{"food_id":%d,"servings":-2}`, food.ID), http.StatusBadRequest},
		{"missing food id", `{"servings":1}`, http.StatusBadRequest},
		{"unknown food", `{"food_id":99,"servings":1}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/entries", tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}

	assert.Len(t, env.backend.Rows(nutrition.EntriesCollection), 1, "no entry written")
	assert.Empty(t, env.publisher.events)
}

func TestCreateEntryPublishFailureIsNotFatal(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.publisher.err = fmt.Errorf("broker down")
	food := env.addFood(t, `{"name":"Empanada","kcal_serving":290}`)

	rec := env.do(t, http.MethodPost, "/api/v1/entries", fmt.Sprintf(`{"food_id":%d,"servings":2}`, food.ID))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.InDelta(t, 580.0, decode[EntryResponse](t, rec).Consumed, 1e-9)
}

func TestExportToday(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	food := env.addFood(t, `{"name":"Fideos","brand":"Lucchetti","kcal_per_100g":310}`)
	rec := env.do(t, http.MethodPost, "/api/v1/entries", fmt.Sprintf(`{"food_id":%d,"grams":200}`, food.ID))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/today.csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="consumos_hoy.csv"`, rec.Header().Get(echo.HeaderContentDisposition))
	assert.True(t, strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), "text/csv"))
	assert.Equal(t, "Hora,Alimento,Marca,Gramos,Porciones,kcal\n15:30,Fideos,Lucchetti,200,,620\n", rec.Body.String())
}

func TestStorageFailureIsBadGateway(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.backend.FailOn = func(op, _ string) error {
		if op == "values" {
			return fmt.Errorf("quota exceeded")
		}
		return nil
	}

	rec := env.do(t, http.MethodGet, "/api/v1/today", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Contains(t, resp.Error, "quota exceeded")
}
