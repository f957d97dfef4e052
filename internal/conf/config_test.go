package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	t.Parallel()

	s := DefaultSettings()

	assert.Equal(t, "America/Argentina/Cordoba", s.Nutrition.Timezone)
	assert.Equal(t, DefaultDailyGoal, s.Nutrition.DailyGoal)
	assert.Equal(t, "NutriApp", s.Sheets.Title)
	assert.Equal(t, 15*time.Second, s.Sheets.CacheTTL)
	assert.False(t, s.Sheets.ResetOnDrift)
	assert.Equal(t, "https://world.openfoodfacts.org", s.Lookup.BaseURL)
	assert.Equal(t, 10*time.Second, s.Lookup.Timeout)
	assert.False(t, s.MQTT.Enabled)
	require.NoError(t, ValidateSettings(s))

	loc, err := s.Nutrition.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/Argentina/Cordoba", loc.String())
}

func TestLoadReadsConfigFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
nutrition:
  dailygoal: 1800
  locale: en
sheets:
  spreadsheetid: abc123
  cachettl: 5s
`), 0o600))
	viper.Set("config", path)

	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1800, s.Nutrition.DailyGoal)
	assert.Equal(t, "en", s.Nutrition.Locale)
	assert.Equal(t, "abc123", s.Sheets.SpreadsheetID)
	assert.Equal(t, 5*time.Second, s.Sheets.CacheTTL)
	assert.Equal(t, "NutriApp", s.Sheets.Title)
	assert.Same(t, s, GetSettings())
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nutrition:\n  dailygoal: 50\n"), 0o600))
	viper.Set("config", path)

	_, err := Load()
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 1)
	assert.Contains(t, ve.Errors[0], "daily goal")
}

func TestValidateSettingsCollectsAllErrors(t *testing.T) {
	t.Parallel()

	s := DefaultSettings()
	s.Nutrition.Timezone = "Atlantis/Lost"
	s.Sheets.Title = ""
	s.Lookup.BaseURL = "ftp://example.com"
	s.MQTT.Enabled = true
	s.MQTT.Broker = ""
	s.Notification.Enabled = true
	s.Sentry.Enabled = true

	err := ValidateSettings(s)
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 6)
}

func TestSaveYAMLConfigRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	s := DefaultSettings()
	s.Nutrition.DailyGoal = 2200
	s.Notification.URLs = []string{"generic://example.com/hook"}

	require.NoError(t, SaveYAMLConfig(path, s))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	loaded := &Settings{}
	require.NoError(t, v.Unmarshal(loaded))
	assert.Equal(t, 2200, loaded.Nutrition.DailyGoal)
	assert.Equal(t, []string{"generic://example.com/hook"}, loaded.Notification.URLs)
	assert.Equal(t, "America/Argentina/Cordoba", loaded.Nutrition.Timezone)
}

func TestGenerateRandomSecret(t *testing.T) {
	t.Parallel()

	a, b := GenerateRandomSecret(), GenerateRandomSecret()
	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
}

func TestLoadResolvesSecrets(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("NUTRIAPP_TEST_MQTT_PASSWORD", "hunter2")

	dir := t.TempDir()
	secretPath := filepath.Join(dir, "session_secret")
	require.NoError(t, os.WriteFile(secretPath, []byte("from-file\n"), 0o600))

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
webserver:
  sessionsecret: file:`+secretPath+`
mqtt:
  password: ${NUTRIAPP_TEST_MQTT_PASSWORD}
notification:
  urls:
    - generic://example.com/${NUTRIAPP_TEST_HOOK:-default}
`), 0o600))
	viper.Set("config", path)

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", s.WebServer.SessionSecret)
	assert.Equal(t, "hunter2", s.MQTT.Password)
	assert.Equal(t, []string{"generic://example.com/default"}, s.Notification.URLs)
}

func TestLoadFailsOnMissingSecret(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sentry:\n  dsn: ${NUTRIAPP_TEST_UNSET_DSN}\n"), 0o600))
	viper.Set("config", path)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sentry.dsn")
}
