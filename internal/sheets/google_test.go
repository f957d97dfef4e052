package sheets

import (
	"encoding/json"
	"net/http"
	"regexp"
	"sync"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/JesusOliveto/CalCalculator/internal/errors"
)

const sheetsBase = `^https://sheets\.googleapis\.com/v4/spreadsheets`

var (
	rxSpreadsheet = regexp.MustCompile(sheetsBase + `/sheet-id(\?|$)`)
	rxValues      = regexp.MustCompile(sheetsBase + `/sheet-id/values/[^:?]*foods`)
	rxBatchClear  = regexp.MustCompile(sheetsBase + `/sheet-id/values:batchClear`)
	rxBatchUpdate = regexp.MustCompile(sheetsBase + `/sheet-id:batchUpdate`)
	rxDriveFiles  = regexp.MustCompile(`^https://www\.googleapis\.com/drive/v3/files(\?|$)`)
)

const spreadsheetJSON = `{
  "spreadsheetId": "sheet-id",
  "properties": {"title": "NutriApp"},
  "sheets": [
    {"properties": {"sheetId": 11, "title": "foods", "gridProperties": {"rowCount": 1000, "columnCount": 20}}}
  ]
}`

func newMockedGoogleBackend(t *testing.T, cfg GoogleConfig) (*GoogleBackend, *httpmock.MockTransport) {
	t.Helper()

	transport := httpmock.NewMockTransport()
	cfg.HTTPClient = &http.Client{Transport: transport}
	cfg.TokenSource = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"})
	cfg.Logger = discardLogger()

	b, err := NewGoogleBackend(t.Context(), cfg)
	require.NoError(t, err)
	return b, transport
}

func TestNewGoogleBackendRequiresTarget(t *testing.T) {
	t.Parallel()

	_, err := NewGoogleBackend(t.Context(), GoogleConfig{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestGoogleBackendValues(t *testing.T) {
	t.Parallel()

	b, transport := newMockedGoogleBackend(t, GoogleConfig{SpreadsheetID: "sheet-id"})
	opened := 0
	transport.RegisterRegexpResponder(http.MethodGet, rxSpreadsheet,
		func(*http.Request) (*http.Response, error) {
			opened++
			return httpmock.NewStringResponse(http.StatusOK, spreadsheetJSON), nil
		})

	var auth, renderOption string
	transport.RegisterRegexpResponder(http.MethodGet, rxValues,
		func(req *http.Request) (*http.Response, error) {
			auth = req.Header.Get("Authorization")
			renderOption = req.URL.Query().Get("valueRenderOption")
			return httpmock.NewStringResponse(http.StatusOK, `{
			  "range": "'foods'!A1:T1000",
			  "majorDimension": "ROWS",
			  "values": [["id", "name", "kcal"], [1, "Yogurt", 120.5], [2, "", null]]
			}`), nil
		})

	rows, err := b.Values(t.Context(), "foods")
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"id", "name", "kcal"},
		{"1", "Yogurt", "120.5"},
		{"2", "", ""},
	}, rows)
	assert.Equal(t, "Bearer test-token", auth)
	assert.Equal(t, "UNFORMATTED_VALUE", renderOption)

	_, err = b.Values(t.Context(), "foods")
	require.NoError(t, err)
	assert.Equal(t, 1, opened, "spreadsheet metadata is loaded once")
}

func TestGoogleBackendReplaceWritesThenClearsTail(t *testing.T) {
	t.Parallel()

	b, transport := newMockedGoogleBackend(t, GoogleConfig{SpreadsheetID: "sheet-id"})
	transport.RegisterRegexpResponder(http.MethodGet, rxSpreadsheet,
		httpmock.NewStringResponder(http.StatusOK, spreadsheetJSON))

	var (
		mu      sync.Mutex
		calls   []string
		written sheetsapi.ValueRange
		input   string
		cleared sheetsapi.BatchClearValuesRequest
	)
	transport.RegisterRegexpResponder(http.MethodPut, rxValues,
		func(req *http.Request) (*http.Response, error) {
			mu.Lock()
			defer mu.Unlock()
			calls = append(calls, "update")
			input = req.URL.Query().Get("valueInputOption")
			if err := json.NewDecoder(req.Body).Decode(&written); err != nil {
				return nil, err
			}
			return httpmock.NewStringResponse(http.StatusOK, `{"updatedRows": 3}`), nil
		})
	transport.RegisterRegexpResponder(http.MethodPost, rxBatchClear,
		func(req *http.Request) (*http.Response, error) {
			mu.Lock()
			defer mu.Unlock()
			calls = append(calls, "clear")
			if err := json.NewDecoder(req.Body).Decode(&cleared); err != nil {
				return nil, err
			}
			return httpmock.NewStringResponse(http.StatusOK, `{"spreadsheetId": "sheet-id"}`), nil
		})

	rows := [][]any{
		{"id", "barcode", "kcal"},
		{1.0, "0077", 120.5},
		{2.0, "", nil},
	}
	require.NoError(t, b.Replace(t.Context(), "foods", rows))

	assert.Equal(t, []string{"update", "clear"}, calls)
	assert.Equal(t, "RAW", input)
	require.Len(t, written.Values, 3)
	assert.Equal(t, "0077", written.Values[1][1], "text cells stay text")
	assert.InDelta(t, 120.5, written.Values[1][2], 1e-9)
	assert.Equal(t, []string{"'foods'!A4:T1000", "'foods'!D1:T3"}, cleared.Ranges)
}

func TestGoogleBackendReplaceGrowsGrid(t *testing.T) {
	t.Parallel()

	b, transport := newMockedGoogleBackend(t, GoogleConfig{SpreadsheetID: "sheet-id"})
	transport.RegisterRegexpResponder(http.MethodGet, rxSpreadsheet,
		httpmock.NewStringResponder(http.StatusOK, `{
		  "spreadsheetId": "sheet-id",
		  "sheets": [{"properties": {"sheetId": 11, "title": "foods", "gridProperties": {"rowCount": 2, "columnCount": 2}}}]
		}`))

	var grow sheetsapi.BatchUpdateSpreadsheetRequest
	transport.RegisterRegexpResponder(http.MethodPost, rxBatchUpdate,
		func(req *http.Request) (*http.Response, error) {
			if err := json.NewDecoder(req.Body).Decode(&grow); err != nil {
				return nil, err
			}
			return httpmock.NewStringResponse(http.StatusOK, `{"spreadsheetId": "sheet-id"}`), nil
		})
	transport.RegisterRegexpResponder(http.MethodPut, rxValues,
		httpmock.NewStringResponder(http.StatusOK, `{}`))
	var cleared sheetsapi.BatchClearValuesRequest
	transport.RegisterRegexpResponder(http.MethodPost, rxBatchClear,
		func(req *http.Request) (*http.Response, error) {
			if err := json.NewDecoder(req.Body).Decode(&cleared); err != nil {
				return nil, err
			}
			return httpmock.NewStringResponse(http.StatusOK, `{}`), nil
		})

	rows := [][]any{{"id", "name", "kcal"}, {1.0, "a", nil}, {2.0, "b", nil}}
	require.NoError(t, b.Replace(t.Context(), "foods", rows))

	require.Len(t, grow.Requests, 2)
	assert.Equal(t, "ROWS", grow.Requests[0].AppendDimension.Dimension)
	assert.Equal(t, int64(11), grow.Requests[0].AppendDimension.SheetId)
	assert.Equal(t, int64(501), grow.Requests[0].AppendDimension.Length)
	assert.Equal(t, "COLUMNS", grow.Requests[1].AppendDimension.Dimension)
	assert.Equal(t, int64(1), grow.Requests[1].AppendDimension.Length)

	assert.Equal(t, []string{"'foods'!A4:C503"}, cleared.Ranges)
}

func TestGoogleBackendEnsureWorksheet(t *testing.T) {
	t.Parallel()

	b, transport := newMockedGoogleBackend(t, GoogleConfig{SpreadsheetID: "sheet-id"})
	transport.RegisterRegexpResponder(http.MethodGet, rxSpreadsheet,
		httpmock.NewStringResponder(http.StatusOK, spreadsheetJSON))

	var added sheetsapi.BatchUpdateSpreadsheetRequest
	adds := 0
	transport.RegisterRegexpResponder(http.MethodPost, rxBatchUpdate,
		func(req *http.Request) (*http.Response, error) {
			adds++
			if err := json.NewDecoder(req.Body).Decode(&added); err != nil {
				return nil, err
			}
			return httpmock.NewStringResponse(http.StatusOK, `{
			  "spreadsheetId": "sheet-id",
			  "replies": [{"addSheet": {"properties": {"sheetId": 42, "title": "entries",
			    "gridProperties": {"rowCount": 1000, "columnCount": 20}}}}]
			}`), nil
		})

	created, err := b.EnsureWorksheet(t.Context(), "foods")
	require.NoError(t, err)
	assert.False(t, created, "existing worksheet")

	created, err = b.EnsureWorksheet(t.Context(), "entries")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = b.EnsureWorksheet(t.Context(), "entries")
	require.NoError(t, err)
	assert.False(t, created)

	require.Len(t, added.Requests, 1)
	assert.Equal(t, "entries", added.Requests[0].AddSheet.Properties.Title)
	assert.Equal(t, int64(1000), added.Requests[0].AddSheet.Properties.GridProperties.RowCount)
	assert.Equal(t, int64(42), b.grids["entries"].sheetID)
	assert.Equal(t, 1, adds)
}

func TestGoogleBackendFindsSpreadsheetByTitle(t *testing.T) {
	t.Parallel()

	b, transport := newMockedGoogleBackend(t, GoogleConfig{Title: "NutriApp"})

	var query string
	transport.RegisterRegexpResponder(http.MethodGet, rxDriveFiles,
		func(req *http.Request) (*http.Response, error) {
			query = req.URL.Query().Get("q")
			return httpmock.NewStringResponse(http.StatusOK,
				`{"files": [{"id": "sheet-id", "name": "NutriApp"}]}`), nil
		})
	transport.RegisterRegexpResponder(http.MethodGet, rxSpreadsheet,
		httpmock.NewStringResponder(http.StatusOK, spreadsheetJSON))

	created, err := b.EnsureWorksheet(t.Context(), "foods")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Contains(t, query, "name = 'NutriApp'")
	assert.Contains(t, query, "trashed = false")
}

func TestGoogleBackendCreatesMissingSpreadsheet(t *testing.T) {
	t.Parallel()

	b, transport := newMockedGoogleBackend(t, GoogleConfig{Title: "NutriApp"})

	transport.RegisterRegexpResponder(http.MethodGet, rxDriveFiles,
		httpmock.NewStringResponder(http.StatusOK, `{"files": []}`))

	var requested sheetsapi.Spreadsheet
	transport.RegisterRegexpResponder(http.MethodPost, regexp.MustCompile(sheetsBase+`(\?|$)`),
		func(req *http.Request) (*http.Response, error) {
			if err := json.NewDecoder(req.Body).Decode(&requested); err != nil {
				return nil, err
			}
			return httpmock.NewStringResponse(http.StatusOK, `{"spreadsheetId": "sheet-id"}`), nil
		})
	transport.RegisterRegexpResponder(http.MethodGet, rxSpreadsheet,
		httpmock.NewStringResponder(http.StatusOK, `{"spreadsheetId": "sheet-id", "sheets": []}`))

	id, err := b.open(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "sheet-id", id)
	require.NotNil(t, requested.Properties)
	assert.Equal(t, "NutriApp", requested.Properties.Title)
}

func TestGoogleBackendErrorCategories(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		category errors.ErrorCategory
	}{
		{"not found", http.StatusNotFound, errors.CategoryNotFound},
		{"rate limited", http.StatusTooManyRequests, errors.CategoryLimit},
		{"server error", http.StatusInternalServerError, errors.CategoryStorage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b, transport := newMockedGoogleBackend(t, GoogleConfig{SpreadsheetID: "sheet-id"})
			transport.RegisterRegexpResponder(http.MethodGet, rxSpreadsheet,
				httpmock.NewStringResponder(tt.status,
					`{"error": {"code": 0, "message": "backend says no"}}`))

			_, err := b.Values(t.Context(), "foods")
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, tt.category), "got %v", err)
			assert.Equal(t, "open_spreadsheet", errors.ContextString(err, "operation"))
		})
	}
}

func TestColumnName(t *testing.T) {
	t.Parallel()

	for n, want := range map[int64]string{1: "A", 20: "T", 26: "Z", 27: "AA", 52: "AZ", 703: "AAA"} {
		assert.Equal(t, want, columnName(n), "column %d", n)
	}
}

func TestQuoteTitle(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "'foods'", quoteTitle("foods"))
	assert.Equal(t, "'Juan''s'", quoteTitle("Juan's"))
}
