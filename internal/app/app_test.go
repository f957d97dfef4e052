package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JesusOliveto/CalCalculator/internal/buildinfo"
	"github.com/JesusOliveto/CalCalculator/internal/conf"
	"github.com/JesusOliveto/CalCalculator/internal/nutrition"
	"github.com/JesusOliveto/CalCalculator/internal/sheets"
)

func newTestApp(t *testing.T, settings *conf.Settings) (*App, error) {
	t.Helper()
	a, err := New(t.Context(), settings, Options{
		Backend: sheets.NewMemoryBackend(),
		Build:   buildinfo.NewContext("1.0.0", ""),
	})
	if a != nil {
		t.Cleanup(a.Close)
	}
	return a, err
}

func TestNewWiresStore(t *testing.T) {
	t.Parallel()

	settings := conf.DefaultSettings()
	settings.Nutrition.DailyGoal = 2000
	a, err := newTestApp(t, settings)
	require.NoError(t, err)

	assert.Nil(t, a.Publisher)
	assert.Nil(t, a.Notifier)
	assert.Equal(t, 2000, a.Session().Goal())

	id, err := a.Store.UpsertFood(t.Context(), nutrition.Food{Name: "Mate cocido"})
	require.NoError(t, err)
	assert.Equal(t, 1, id)
}

func TestNewEnablesIntegrations(t *testing.T) {
	t.Parallel()

	settings := conf.DefaultSettings()
	settings.MQTT.Enabled = true
	settings.Notification.Enabled = true
	settings.Notification.URLs = []string{"generic://localhost:9999/hook?disabletls=yes"}
	settings.Notification.Timeout = time.Second

	a, err := newTestApp(t, settings)
	require.NoError(t, err)
	assert.NotNil(t, a.Publisher)
	assert.NotNil(t, a.Notifier)
}

func TestNewRejectsBadNotificationURL(t *testing.T) {
	t.Parallel()

	settings := conf.DefaultSettings()
	settings.Notification.Enabled = true
	settings.Notification.URLs = []string{"nosuchservice://token"}

	_, err := newTestApp(t, settings)
	require.Error(t, err)
}

func TestNewRejectsBadTimezone(t *testing.T) {
	t.Parallel()

	settings := conf.DefaultSettings()
	settings.Nutrition.Timezone = "Mars/Olympus_Mons"

	_, err := newTestApp(t, settings)
	require.Error(t, err)
}

func TestUserAgent(t *testing.T) {
	t.Parallel()

	a := &App{Settings: conf.DefaultSettings(), Build: buildinfo.NewContext("2.0.0", "")}
	assert.Equal(t, "NutriApp/1.0", a.userAgent())

	a.Settings.Lookup.UserAgent = ""
	assert.Equal(t, "NutriApp/2.0.0", a.userAgent())
}
