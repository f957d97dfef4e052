package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/JesusOliveto/CalCalculator/internal/errors"
	"github.com/JesusOliveto/CalCalculator/internal/logging"
)

const (
	spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

	// New worksheets get the default grid of the original sheet layout.
	newSheetRows    = 1000
	newSheetColumns = 20

	// Rows appended when a write would overflow the grid.
	gridGrowth = 500
)

// GoogleConfig identifies the spreadsheet and how to authenticate.
type GoogleConfig struct {
	// SpreadsheetID opens a spreadsheet directly. When empty the spreadsheet
	// is looked up by Title in Drive and created if missing.
	SpreadsheetID string
	Title         string

	// Service account credentials. CredentialsJSON wins over CredentialsFile.
	// With neither, application default credentials are used.
	CredentialsFile string
	CredentialsJSON []byte

	// TokenSource, when set, replaces credential discovery.
	TokenSource oauth2.TokenSource

	// HTTPClient carries the API traffic beneath the oauth2 transport.
	HTTPClient *http.Client

	Logger *slog.Logger
}

type gridInfo struct {
	sheetID       int64
	rows, columns int64
}

// GoogleBackend stores worksheets in a Google spreadsheet.
type GoogleBackend struct {
	sheets *sheetsapi.Service
	drive  *drive.Service
	cfg    GoogleConfig
	logger *slog.Logger

	mu            sync.Mutex
	spreadsheetID string
	grids         map[string]gridInfo
}

// NewGoogleBackend builds the API clients. The spreadsheet itself is opened
// on first use.
func NewGoogleBackend(ctx context.Context, cfg GoogleConfig) (*GoogleBackend, error) {
	if cfg.SpreadsheetID == "" && cfg.Title == "" {
		return nil, errors.Newf("spreadsheet id or title is required").
			Component("sheets").
			Category(errors.CategoryConfiguration).
			Build()
	}

	ts, err := tokenSource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	base := cfg.HTTPClient
	if base == nil {
		base = http.DefaultClient
	}
	client := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, base), ts)

	sheetsSvc, err := sheetsapi.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, configError(err, "sheets_client")
	}
	driveSvc, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, configError(err, "drive_client")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.ForService("sheets")
	}

	return &GoogleBackend{
		sheets:        sheetsSvc,
		drive:         driveSvc,
		cfg:           cfg,
		logger:        logger,
		spreadsheetID: cfg.SpreadsheetID,
	}, nil
}

func tokenSource(ctx context.Context, cfg GoogleConfig) (oauth2.TokenSource, error) {
	if cfg.TokenSource != nil {
		return cfg.TokenSource, nil
	}

	scopes := []string{sheetsapi.SpreadsheetsScope, drive.DriveScope}

	data := cfg.CredentialsJSON
	if len(data) == 0 && cfg.CredentialsFile != "" {
		var err error
		data, err = os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, errors.New(err).
				Component("sheets").
				Category(errors.CategoryConfiguration).
				Context("operation", "read_credentials").
				Build()
		}
	}

	var (
		creds *google.Credentials
		err   error
	)
	if len(data) > 0 {
		creds, err = google.CredentialsFromJSON(ctx, data, scopes...) //nolint:staticcheck // service account JSON supplied by the operator
	} else {
		creds, err = google.FindDefaultCredentials(ctx, scopes...)
	}
	if err != nil {
		return nil, configError(err, "load_credentials")
	}
	return creds.TokenSource, nil
}

// EnsureWorksheet implements Backend.
func (b *GoogleBackend) EnsureWorksheet(ctx context.Context, title string) (bool, error) {
	id, err := b.open(ctx)
	if err != nil {
		return false, err
	}

	b.mu.Lock()
	_, exists := b.grids[title]
	b.mu.Unlock()
	if exists {
		return false, nil
	}

	resp, err := b.sheets.Spreadsheets.BatchUpdate(id, &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			AddSheet: &sheetsapi.AddSheetRequest{
				Properties: &sheetsapi.SheetProperties{
					Title: title,
					GridProperties: &sheetsapi.GridProperties{
						RowCount:    newSheetRows,
						ColumnCount: newSheetColumns,
					},
				},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return false, apiError(err, "add_sheet", title)
	}

	b.mu.Lock()
	b.grids[title] = gridInfo{rows: newSheetRows, columns: newSheetColumns}
	for _, reply := range resp.Replies {
		if reply.AddSheet != nil && reply.AddSheet.Properties != nil {
			b.grids[title] = gridFromProperties(reply.AddSheet.Properties)
		}
	}
	b.mu.Unlock()

	b.logger.Info("created worksheet", "worksheet", title)
	return true, nil
}

// Values implements Backend. Numbers are requested unformatted so locale
// specific formatting in the spreadsheet never reaches the parser.
func (b *GoogleBackend) Values(ctx context.Context, title string) ([][]string, error) {
	id, err := b.open(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := b.sheets.Spreadsheets.Values.Get(id, quoteTitle(title)).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).
		Do()
	if err != nil {
		return nil, apiError(err, "get_values", title)
	}

	rows := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		rows[i] = make([]string, len(row))
		for j, cell := range row {
			rows[i][j] = cellString(cell)
		}
	}
	return rows, nil
}

// Replace implements Backend. The new content is written first and the
// leftover area below and to the right of it is cleared afterwards, so a
// failed write never leaves the worksheet with only its header.
func (b *GoogleBackend) Replace(ctx context.Context, title string, rows [][]any) error {
	id, err := b.open(ctx)
	if err != nil {
		return err
	}

	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}

	if err := b.growGrid(ctx, id, title, int64(len(rows)), int64(width)); err != nil {
		return err
	}

	if len(rows) > 0 {
		_, err = b.sheets.Spreadsheets.Values.Update(id, quoteTitle(title)+"!A1", &sheetsapi.ValueRange{
			MajorDimension: "ROWS",
			Values:         rows,
		}).ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return apiError(err, "update_values", title)
		}
	}

	b.mu.Lock()
	grid := b.grids[title]
	b.mu.Unlock()

	var ranges []string
	if n := int64(len(rows)); n < grid.rows {
		ranges = append(ranges, fmt.Sprintf("%s!A%d:%s%d", quoteTitle(title), n+1, columnName(grid.columns), grid.rows))
	}
	if w := int64(width); w < grid.columns && len(rows) > 0 {
		ranges = append(ranges, fmt.Sprintf("%s!%s1:%s%d", quoteTitle(title), columnName(w+1), columnName(grid.columns), len(rows)))
	}
	if len(ranges) == 0 {
		return nil
	}

	_, err = b.sheets.Spreadsheets.Values.BatchClear(id, &sheetsapi.BatchClearValuesRequest{Ranges: ranges}).Context(ctx).Do()
	if err != nil {
		return apiError(err, "clear_tail", title)
	}
	return nil
}

// growGrid appends rows or columns when content would not fit the grid.
func (b *GoogleBackend) growGrid(ctx context.Context, id, title string, rows, columns int64) error {
	b.mu.Lock()
	grid, ok := b.grids[title]
	b.mu.Unlock()
	if !ok {
		return errors.Newf("worksheet %q is not open", title).
			Component("sheets").
			Category(errors.CategoryStorage).
			Build()
	}

	var requests []*sheetsapi.Request
	if rows > grid.rows {
		extra := rows - grid.rows + gridGrowth
		requests = append(requests, &sheetsapi.Request{AppendDimension: &sheetsapi.AppendDimensionRequest{
			SheetId: grid.sheetID, Dimension: "ROWS", Length: extra,
		}})
		grid.rows += extra
	}
	if columns > grid.columns {
		extra := columns - grid.columns
		requests = append(requests, &sheetsapi.Request{AppendDimension: &sheetsapi.AppendDimensionRequest{
			SheetId: grid.sheetID, Dimension: "COLUMNS", Length: extra,
		}})
		grid.columns += extra
	}
	if len(requests) == 0 {
		return nil
	}

	if _, err := b.sheets.Spreadsheets.BatchUpdate(id, &sheetsapi.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do(); err != nil {
		return apiError(err, "append_dimension", title)
	}

	b.mu.Lock()
	b.grids[title] = grid
	b.mu.Unlock()
	return nil
}

// open resolves the spreadsheet id once and loads the worksheet grid sizes.
func (b *GoogleBackend) open(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.grids != nil {
		return b.spreadsheetID, nil
	}

	if b.spreadsheetID == "" {
		id, err := b.findOrCreate(ctx)
		if err != nil {
			return "", err
		}
		b.spreadsheetID = id
	}

	resp, err := b.sheets.Spreadsheets.Get(b.spreadsheetID).
		Fields("spreadsheetId", "properties.title", "sheets.properties").
		Context(ctx).
		Do()
	if err != nil {
		return "", apiError(err, "open_spreadsheet", "")
	}

	grids := make(map[string]gridInfo, len(resp.Sheets))
	for _, s := range resp.Sheets {
		if s.Properties != nil {
			grids[s.Properties.Title] = gridFromProperties(s.Properties)
		}
	}
	b.grids = grids

	title := ""
	if resp.Properties != nil {
		title = resp.Properties.Title
	}
	b.logger.Info("opened spreadsheet", "title", title, "worksheets", len(grids))
	return b.spreadsheetID, nil
}

func (b *GoogleBackend) findOrCreate(ctx context.Context) (string, error) {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(b.cfg.Title), spreadsheetMimeType)

	list, err := b.drive.Files.List().
		Q(q).
		Fields("files(id, name)").
		PageSize(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", apiError(err, "find_spreadsheet", "")
	}
	if len(list.Files) > 0 {
		return list.Files[0].Id, nil
	}

	created, err := b.sheets.Spreadsheets.Create(&sheetsapi.Spreadsheet{
		Properties: &sheetsapi.SpreadsheetProperties{Title: b.cfg.Title},
	}).Context(ctx).Do()
	if err != nil {
		return "", apiError(err, "create_spreadsheet", "")
	}
	b.logger.Info("created spreadsheet", "title", b.cfg.Title)
	return created.SpreadsheetId, nil
}

func gridFromProperties(p *sheetsapi.SheetProperties) gridInfo {
	g := gridInfo{sheetID: p.SheetId, rows: newSheetRows, columns: newSheetColumns}
	if gp := p.GridProperties; gp != nil {
		g.rows, g.columns = gp.RowCount, gp.ColumnCount
	}
	return g
}

func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// columnName converts a 1-based column index to A1 letters.
func columnName(n int64) string {
	var out []byte
	for n > 0 {
		n--
		out = append([]byte{byte('A' + n%26)}, out...)
		n /= 26
	}
	return string(out)
}

func apiError(err error, operation, worksheet string) error {
	category := errors.CategoryStorage
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusNotFound:
			category = errors.CategoryNotFound
		case http.StatusTooManyRequests:
			category = errors.CategoryLimit
		}
	}
	return errors.New(fmt.Errorf("sheets %s: %w", operation, err)).
		Component("sheets").
		Category(category).
		Context("operation", operation).
		Context("worksheet", worksheet).
		Build()
}

func configError(err error, operation string) error {
	return errors.New(err).
		Component("sheets").
		Category(errors.CategoryConfiguration).
		Context("operation", operation).
		Build()
}
