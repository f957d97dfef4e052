package nutrition

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JesusOliveto/CalCalculator/internal/errors"
	"github.com/JesusOliveto/CalCalculator/internal/logging"
	"github.com/JesusOliveto/CalCalculator/internal/observability/metrics"
	"github.com/JesusOliveto/CalCalculator/internal/sheets"
)

// DefaultTimezone is the local zone used for day boundaries and created_at.
const DefaultTimezone = "America/Argentina/Cordoba"

// StoreOptions configures a Store.
type StoreOptions struct {
	Location *time.Location   // nil loads DefaultTimezone
	Clock    func() time.Time // nil means time.Now
	Logger   *slog.Logger
	Metrics  *metrics.NutritionMetrics
}

// Store owns the foods and entries collections. It keeps no copy of either
// between calls: every read goes through the gateway cache and every write
// re-reads the collection first.
type Store struct {
	gw      *sheets.Gateway
	foods   *sheets.Collection
	entries *sheets.Collection

	loc     *time.Location
	now     func() time.Time
	logger  *slog.Logger
	metrics *metrics.NutritionMetrics
}

// NewStore opens both collections, creating or repairing their worksheets.
func NewStore(ctx context.Context, gw *sheets.Gateway, opts StoreOptions) (*Store, error) {
	loc := opts.Location
	if loc == nil {
		var err error
		loc, err = time.LoadLocation(DefaultTimezone)
		if err != nil {
			return nil, errors.New(err).
				Component("nutrition").
				Category(errors.CategoryConfiguration).
				Context("timezone", DefaultTimezone).
				Build()
		}
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.ForService("nutrition")
	}

	foods, err := gw.EnsureCollection(ctx, FoodsSchema)
	if err != nil {
		return nil, err
	}
	entries, err := gw.EnsureCollection(ctx, EntriesSchema)
	if err != nil {
		return nil, err
	}

	return &Store{
		gw:      gw,
		foods:   foods,
		entries: entries,
		loc:     loc,
		now:     now,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// Location returns the zone used for day boundaries.
func (s *Store) Location() *time.Location {
	return s.loc
}

// UpsertFood saves food and returns its id. A non-empty barcode that is
// already in the catalog updates that row in place: every mutable field is
// overwritten, missing values included, while id is kept and created_at is
// only filled when it was empty. Anything else is appended with the next id.
func (s *Store) UpsertFood(ctx context.Context, food Food) (int, error) {
	food.Barcode = strings.TrimSpace(food.Barcode)

	var (
		id       int
		inserted bool
	)
	err := s.gw.Update(ctx, s.foods, func(records []sheets.Record) ([]sheets.Record, error) {
		createdAt := s.now().In(s.loc).Format(time.RFC3339)

		if food.Barcode != "" {
			for _, r := range records {
				if strings.TrimSpace(r.Text("barcode")) != food.Barcode {
					continue
				}
				existing, ok := r.Int("id")
				if !ok {
					// A row with a blank or broken id keeps its barcode; it
					// gets a fresh id instead of a duplicate row.
					existing = nextID(records)
					r.SetInt("id", existing)
				}
				applyFood(r, food)
				if strings.TrimSpace(r.Text("created_at")) == "" {
					r.SetText("created_at", createdAt)
				}
				id = existing
				return records, nil
			}
		}

		id = nextID(records)
		inserted = true
		r := sheets.Record{}
		r.SetInt("id", id)
		applyFood(r, food)
		r.SetText("created_at", createdAt)
		return append(records, r), nil
	})
	s.gw.Invalidate(s.foods)
	if err != nil {
		return 0, err
	}

	s.metrics.RecordUpsert(inserted)
	s.logger.Info("food saved",
		"food_id", id,
		"barcode", food.Barcode,
		"inserted", inserted)
	return id, nil
}

// AddEntry appends a consumption entry stamped with the current UTC time and
// returns its id.
func (s *Store) AddEntry(ctx context.Context, foodID int, grams, servings, kcalTotal *float64) (int, error) {
	e, err := s.addEntry(ctx, foodID, grams, servings, kcalTotal)
	if err != nil {
		return 0, err
	}
	return e.ID, nil
}

func (s *Store) addEntry(ctx context.Context, foodID int, grams, servings, kcalTotal *float64) (Entry, error) {
	ts := s.now().UTC()
	e := Entry{
		FoodID:    foodID,
		Timestamp: &ts,
		Grams:     grams,
		Servings:  servings,
		KcalTotal: kcalTotal,
	}

	err := s.gw.Update(ctx, s.entries, func(records []sheets.Record) ([]sheets.Record, error) {
		e.ID = nextID(records)
		r := sheets.Record{}
		r.SetInt("id", e.ID)
		r.SetInt("food_id", foodID)
		r.SetText("ts_utc", ts.Format(time.RFC3339Nano))
		r.SetNumber("grams", grams)
		r.SetNumber("servings", servings)
		r.SetNumber("kcal_total", kcalTotal)
		return append(records, r), nil
	})
	s.gw.Invalidate(s.entries)
	if err != nil {
		return Entry{}, err
	}

	kcal := 0.0
	if kcalTotal != nil {
		kcal = *kcalTotal
	}
	s.metrics.RecordEntry(kcal)
	s.logger.Info("entry recorded", "entry_id", e.ID, "food_id", foodID, "kcal", kcal)
	return e, nil
}

// Foods returns the catalog in sheet order.
func (s *Store) Foods(ctx context.Context) ([]Food, error) {
	records, err := s.gw.ReadAll(ctx, s.foods)
	if err != nil {
		return nil, err
	}
	foods := make([]Food, 0, len(records))
	for _, r := range records {
		foods = append(foods, foodFromRecord(r))
	}
	return foods, nil
}

// FoodByID returns the food with id or a not-found error.
func (s *Store) FoodByID(ctx context.Context, id int) (Food, error) {
	foods, err := s.Foods(ctx)
	if err != nil {
		return Food{}, err
	}
	for _, f := range foods {
		if f.ID == id {
			return f, nil
		}
	}
	return Food{}, errors.Newf("food %d not found", id).
		Component("nutrition").
		Category(errors.CategoryNotFound).
		Context("food_id", id).
		Build()
}

// Entries returns every recorded entry in sheet order.
func (s *Store) Entries(ctx context.Context) ([]Entry, error) {
	records, err := s.gw.ReadAll(ctx, s.entries)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(records))
	for _, r := range records {
		entries = append(entries, entryFromRecord(r))
	}
	return entries, nil
}

// RecordConsumption logs a portion of a saved food. The energy comes from
// KcalFrom; when it cannot be computed nothing is written and a validation
// error with reason "calculation" is returned.
func (s *Store) RecordConsumption(ctx context.Context, foodID int, grams, servings *float64) (Entry, error) {
	food, err := s.FoodByID(ctx, foodID)
	if err != nil {
		return Entry{}, err
	}

	kcal, ok := KcalFrom(food, grams, servings)
	if !ok {
		return Entry{}, errors.Newf("cannot compute calories for %q: give grams with kcal per 100 g or servings with kcal per serving", food.Name).
			Component("nutrition").
			Category(errors.CategoryValidation).
			Context("reason", "calculation").
			Context("food_id", foodID).
			Build()
	}
	return s.addEntry(ctx, foodID, grams, servings, &kcal)
}

// TodaysEntries returns the entries whose local time falls in
// [midnight today, midnight tomorrow), joined with their food. Entries with
// an unreadable timestamp are skipped and unknown foods show Placeholder.
func (s *Store) TodaysEntries(ctx context.Context) ([]DisplayRow, error) {
	var entries, foods []sheets.Record

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = s.gw.ReadAll(gctx, s.entries)
		return err
	})
	g.Go(func() error {
		var err error
		foods, err = s.gw.ReadAll(gctx, s.foods)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byID := make(map[int]Food, len(foods))
	for _, r := range foods {
		if f := foodFromRecord(r); f.ID > 0 {
			if _, dup := byID[f.ID]; !dup {
				byID[f.ID] = f
			}
		}
	}

	start, end := s.dayBounds(s.now())
	rows := make([]DisplayRow, 0)
	for _, r := range entries {
		e := entryFromRecord(r)
		if e.Timestamp == nil {
			continue
		}
		local := e.Timestamp.In(s.loc)
		if local.Before(start) || !local.Before(end) {
			continue
		}

		row := DisplayRow{
			Time:     local.Format("15:04"),
			Food:     Placeholder,
			Brand:    Placeholder,
			Grams:    e.Grams,
			Servings: e.Servings,
			Kcal:     e.KcalTotal,
		}
		if f, ok := byID[e.FoodID]; ok {
			row.Food, row.Brand = f.Name, f.Brand
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Summary totals today against the session goal. Entries without kcal count
// as zero.
func (s *Store) Summary(ctx context.Context, session Session) (DailySummary, error) {
	rows, err := s.TodaysEntries(ctx)
	if err != nil {
		return DailySummary{}, err
	}
	consumed := 0.0
	for _, r := range rows {
		if r.Kcal != nil {
			consumed += *r.Kcal
		}
	}
	return DailySummary{
		Goal:      session.Goal(),
		Consumed:  consumed,
		Remaining: float64(session.Goal()) - consumed,
		Rows:      rows,
	}, nil
}

// dayBounds returns local midnight of the day containing t and the midnight
// after it.
func (s *Store) dayBounds(t time.Time) (time.Time, time.Time) {
	y, m, d := t.In(s.loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, s.loc)
	return start, start.AddDate(0, 0, 1)
}
