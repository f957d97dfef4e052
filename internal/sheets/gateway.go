package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/JesusOliveto/CalCalculator/internal/errors"
	"github.com/JesusOliveto/CalCalculator/internal/logging"
	"github.com/JesusOliveto/CalCalculator/internal/observability/metrics"
)

// DefaultCacheTTL is how long a collection read is served from memory.
const DefaultCacheTTL = 15 * time.Second

// Schema describes a collection: its worksheet name, its ordered header row
// and which of its columns hold numbers.
type Schema struct {
	Name    string
	Headers []string
	Numeric []string
}

// Collection is a schema whose worksheet has been checked by EnsureCollection.
type Collection struct {
	Schema
	numeric map[string]bool
}

// IsNumeric reports whether column holds numbers.
func (c *Collection) IsNumeric(column string) bool {
	return c.numeric[column]
}

// Options configures a Gateway.
type Options struct {
	CacheTTL     time.Duration // zero means DefaultCacheTTL
	ResetOnDrift bool          // clear worksheets whose header drifted instead of failing
	Logger       *slog.Logger
	Metrics      *metrics.SheetsMetrics
}

// Gateway reads and writes whole collections through a Backend.
type Gateway struct {
	backend      Backend
	cache        *cache.Cache
	resetOnDrift bool
	logger       *slog.Logger
	metrics      *metrics.SheetsMetrics

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewGateway creates a gateway over backend.
func NewGateway(backend Backend, opts Options) *Gateway {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.ForService("sheets")
	}
	return &Gateway{
		backend: backend,
		// No janitor: expired entries are skipped by Get and overwritten on
		// the next read, and there is one entry per collection.
		cache:        cache.New(ttl, 0),
		resetOnDrift: opts.ResetOnDrift,
		logger:       logger,
		metrics:      opts.Metrics,
		locks:        make(map[string]*sync.Mutex),
	}
}

// EnsureCollection opens the worksheet for schema, creating it with the
// header row when absent. A worksheet whose header differs from
// schema.Headers is repaired: headers only are rewritten, data rows are
// remapped by column name. Data in columns the schema does not know is
// never dropped silently; the gateway reports schema drift unless
// ResetOnDrift is set.
func (g *Gateway) EnsureCollection(ctx context.Context, schema Schema) (c *Collection, err error) {
	start := time.Now()
	defer func() {
		g.metrics.RecordOperation(schema.Name, metrics.OpEnsure, err, time.Since(start).Seconds())
	}()

	if schema.Name == "" || len(schema.Headers) == 0 {
		return nil, errors.Newf("collection needs a name and at least one header").
			Component("sheets").
			Category(errors.CategoryValidation).
			Build()
	}

	c = &Collection{Schema: schema, numeric: make(map[string]bool, len(schema.Numeric))}
	for _, col := range schema.Numeric {
		c.numeric[col] = true
	}

	created, err := g.backend.EnsureWorksheet(ctx, schema.Name)
	if err != nil {
		return nil, g.storageError(err, "ensure_collection", schema.Name, start)
	}

	var rows [][]string
	if !created {
		rows, err = g.backend.Values(ctx, schema.Name)
		if err != nil {
			return nil, g.storageError(err, "ensure_collection", schema.Name, start)
		}
	}

	if len(rows) > 0 && slices.Equal(trimRow(rows[0]), schema.Headers) {
		return c, nil
	}

	repaired, err := g.repair(schema, rows)
	if err != nil {
		return nil, err
	}

	if err := g.backend.Replace(ctx, schema.Name, g.encode(c, repaired)); err != nil {
		return nil, g.storageError(err, "ensure_collection", schema.Name, start)
	}
	g.Invalidate(c)

	if created {
		g.logger.Info("created collection", "collection", schema.Name, "headers", len(schema.Headers))
	}
	return c, nil
}

// repair computes the records to keep when the header row of a worksheet
// does not match schema.
func (g *Gateway) repair(schema Schema, rows [][]string) ([]Record, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	current := trimRow(rows[0])
	data := nonEmptyRows(rows[1:])
	if len(data) == 0 {
		g.logger.Info("rewriting header row of empty collection", "collection", schema.Name, "found", current)
		return nil, nil
	}

	expected := make(map[string]bool, len(schema.Headers))
	for _, h := range schema.Headers {
		expected[h] = true
	}

	// Columns whose data would be lost by a remap: unknown names, blank names
	// and repeated names.
	seen := make(map[string]bool, len(current))
	var orphaned []string
	for i, name := range current {
		key := strings.TrimSpace(name)
		lost := key == "" || !expected[key] || seen[key]
		seen[key] = true
		if lost && columnHasData(data, i) {
			orphaned = append(orphaned, fmt.Sprintf("%q (column %d)", name, i+1))
		}
	}
	// Cells past the end of the header row have no name at all.
	for _, row := range data {
		for i := len(current); i < len(row); i++ {
			if strings.TrimSpace(row[i]) != "" {
				orphaned = append(orphaned, fmt.Sprintf("unnamed column %d", i+1))
				break
			}
		}
	}

	if len(orphaned) > 0 {
		if !g.resetOnDrift {
			return nil, errors.Newf("collection %q header mismatch: expected %v, found %v; data in %s would be lost",
				schema.Name, schema.Headers, current, strings.Join(orphaned, ", ")).
				Component("sheets").
				Category(errors.CategorySchemaDrift).
				Priority(errors.PriorityHigh).
				Context("collection", schema.Name).
				Context("rows", len(data)).
				Build()
		}
		g.logger.Warn("header drift, clearing collection",
			"collection", schema.Name,
			"expected", schema.Headers,
			"found", current,
			"discarded_rows", len(data))
		return nil, nil
	}

	records := make([]Record, 0, len(data))
	for _, row := range data {
		records = append(records, recordFromRow(current, row))
	}
	g.logger.Warn("header drift, remapped columns by name",
		"collection", schema.Name,
		"expected", schema.Headers,
		"found", current,
		"rows", len(records))
	return records, nil
}

// ReadAll returns every record of c. Numeric columns are normalized; values
// that do not parse become missing. Results are cached for the configured
// TTL and callers receive their own copies.
func (g *Gateway) ReadAll(ctx context.Context, c *Collection) ([]Record, error) {
	if cached, ok := g.cache.Get(c.Name); ok {
		g.metrics.RecordCache(c.Name, true)
		return cloneRecords(cached.([]Record)), nil
	}
	g.metrics.RecordCache(c.Name, false)

	records, err := g.load(ctx, c)
	if err != nil {
		return nil, err
	}
	g.cache.SetDefault(c.Name, records)
	return cloneRecords(records), nil
}

func (g *Gateway) load(ctx context.Context, c *Collection) (records []Record, err error) {
	start := time.Now()
	defer func() {
		g.metrics.RecordOperation(c.Name, metrics.OpRead, err, time.Since(start).Seconds())
	}()

	rows, err := g.backend.Values(ctx, c.Name)
	if err != nil {
		return nil, g.storageError(err, "read_all", c.Name, start)
	}
	if len(rows) == 0 {
		return []Record{}, nil
	}

	header := trimRow(rows[0])
	data := nonEmptyRows(rows[1:])
	records = make([]Record, 0, len(data))
	for _, row := range data {
		src := recordFromRow(header, row)
		r := make(Record, len(c.Headers))
		for _, h := range c.Headers {
			v := src[h]
			if c.numeric[h] {
				v = normalizeNumber(v)
			}
			r[h] = v
		}
		records = append(records, r)
	}

	g.metrics.SetRows(c.Name, len(records))
	return records, nil
}

// ReplaceAll writes records as the complete content of c under its header
// row. Keys outside the header are dropped. The write is not transactional
// and does not touch the read cache; callers invalidate after writing.
func (g *Gateway) ReplaceAll(ctx context.Context, c *Collection, records []Record) (err error) {
	start := time.Now()
	defer func() {
		g.metrics.RecordOperation(c.Name, metrics.OpReplace, err, time.Since(start).Seconds())
	}()

	if err := g.backend.Replace(ctx, c.Name, g.encode(c, records)); err != nil {
		return g.storageError(err, "replace_all", c.Name, start)
	}
	g.metrics.SetRows(c.Name, len(records))
	return nil
}

// Update performs a read-modify-write cycle on c while holding the
// collection's write lock. fn receives a fresh copy of every record, read
// directly from the backend, and returns the complete set to persist.
func (g *Gateway) Update(ctx context.Context, c *Collection, fn func([]Record) ([]Record, error)) error {
	lock := g.lockFor(c.Name)
	lock.Lock()
	defer lock.Unlock()

	current, err := g.load(ctx, c)
	if err != nil {
		return err
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	return g.ReplaceAll(ctx, c, next)
}

// Invalidate drops the cached read of c.
func (g *Gateway) Invalidate(c *Collection) {
	g.cache.Delete(c.Name)
}

func (g *Gateway) lockFor(name string) *sync.Mutex {
	g.locksMu.Lock()
	defer g.locksMu.Unlock()
	l, ok := g.locks[name]
	if !ok {
		l = &sync.Mutex{}
		g.locks[name] = l
	}
	return l
}

// encode renders the header row plus records in header order. Numeric cells
// are written as numbers so the spreadsheet keeps them numeric; text cells
// such as barcodes stay text.
func (g *Gateway) encode(c *Collection, records []Record) [][]any {
	rows := make([][]any, 0, len(records)+1)

	header := make([]any, len(c.Headers))
	for i, h := range c.Headers {
		header[i] = h
	}
	rows = append(rows, header)

	for _, r := range records {
		row := make([]any, len(c.Headers))
		for i, h := range c.Headers {
			v := r[h]
			row[i] = v
			if c.numeric[h] && v != "" {
				if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
					row[i] = f
				}
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func (g *Gateway) storageError(err error, operation, collection string, start time.Time) error {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		return err
	}
	return errors.New(fmt.Errorf("%s %q: %w", operation, collection, err)).
		Component("sheets").
		Category(errors.CategoryStorage).
		Timing(operation, time.Since(start)).
		Context("collection", collection).
		Build()
}

func recordFromRow(header, row []string) Record {
	r := make(Record, len(header))
	for i, name := range header {
		key := strings.TrimSpace(name)
		if key == "" {
			continue
		}
		if _, dup := r[key]; dup {
			continue
		}
		if i < len(row) {
			r[key] = row[i]
		} else {
			r[key] = ""
		}
	}
	return r
}

// trimRow drops trailing empty cells.
func trimRow(row []string) []string {
	end := len(row)
	for end > 0 && strings.TrimSpace(row[end-1]) == "" {
		end--
	}
	return row[:end]
}

func nonEmptyRows(rows [][]string) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		if len(trimRow(row)) > 0 {
			out = append(out, row)
		}
	}
	return out
}

func columnHasData(rows [][]string, col int) bool {
	for _, row := range rows {
		if col < len(row) && strings.TrimSpace(row[col]) != "" {
			return true
		}
	}
	return false
}
