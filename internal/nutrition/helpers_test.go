package nutrition

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JesusOliveto/CalCalculator/internal/sheets"
)

func cordoba(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(DefaultTimezone)
	require.NoError(t, err)
	return loc
}

// fixedNow is 2025-03-10 15:30 in Córdoba (UTC-3).
func fixedNow(t *testing.T) time.Time {
	return time.Date(2025, 3, 10, 15, 30, 0, 0, cordoba(t))
}

func newTestStore(t *testing.T, backend *sheets.MemoryBackend, now time.Time) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gw := sheets.NewGateway(backend, sheets.Options{Logger: logger})
	store, err := NewStore(t.Context(), gw, StoreOptions{
		Location: cordoba(t),
		Clock:    func() time.Time { return now },
		Logger:   logger,
	})
	require.NoError(t, err)
	return store
}

func ptr(v float64) *float64 {
	return &v
}
