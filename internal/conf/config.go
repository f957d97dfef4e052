// config.go: settings struct for NutriApp and the functions that load and save it.
package conf

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/JesusOliveto/CalCalculator/internal/errors"
	"github.com/JesusOliveto/CalCalculator/internal/secrets"
)

// Daily goal bounds enforced by the UI and the API.
const (
	MinDailyGoal     = 200
	MaxDailyGoal     = 10000
	DefaultDailyGoal = 1610
	DailyGoalStep    = 10
)

// LogConfig defines the configuration for a log file
type LogConfig struct {
	Enabled  bool   // true to enable this log
	Path     string // Path to the log file
	Rotation string // daily, weekly or size
	MaxSize  int64  // Max size in bytes for size rotation
}

// NutritionSettings holds per-user tracking preferences.
type NutritionSettings struct {
	Timezone  string // IANA zone used to compute the local day window
	DailyGoal int    // default kcal goal for new sessions
	Locale    string // es or en, drives placeholders and CSV headers
}

// SheetsSettings configures the spreadsheet backend.
type SheetsSettings struct {
	Title           string        // spreadsheet title, used when SpreadsheetID is empty
	SpreadsheetID   string        // explicit spreadsheet id
	CredentialsFile string        // service account JSON file
	CredentialsJSON string        `yaml:"credentialsjson,omitempty"` // inline service account JSON
	CacheTTL        time.Duration // read cache lifetime
	ResetOnDrift    bool          // destructive header reset when the layout drifts
}

// LookupSettings configures the Open Food Facts client.
type LookupSettings struct {
	BaseURL   string        // API root
	Timeout   time.Duration // per request timeout
	RateLimit int           // requests per minute
	UserAgent string
}

// WebServerSettings configures the HTTP API.
type WebServerSettings struct {
	Listen        string // listen address, e.g. :8080
	SessionSecret string // cookie signing key
	Metrics       bool   // expose /metrics
}

// MQTTSettings configures entry event publishing.
type MQTTSettings struct {
	Enabled  bool
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string
	Retain   bool
}

// NotificationSettings configures goal alerts.
type NotificationSettings struct {
	Enabled bool
	URLs    []string      // shoutrrr service URLs
	Timeout time.Duration // send timeout
}

// SentrySettings configures error telemetry.
type SentrySettings struct {
	Enabled bool
	DSN     string
}

// Settings contains all configuration options for NutriApp.
type Settings struct {
	Debug bool // true to enable debug logging

	Main struct {
		Log LogConfig
	}

	Nutrition    NutritionSettings
	Sheets       SheetsSettings
	Lookup       LookupSettings
	WebServer    WebServerSettings
	MQTT         MQTTSettings
	Notification NotificationSettings
	Sentry       SentrySettings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into the
// settings instance.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal").
			Build()
	}

	if err := resolveSecrets(settings); err != nil {
		return nil, fmt.Errorf("error resolving secrets: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// resolveSecrets replaces ${VAR} references and file:<path> values in the
// credential settings with the secrets they point to.
func resolveSecrets(settings *Settings) error {
	fields := map[string]*string{
		"sheets.credentialsjson":  &settings.Sheets.CredentialsJSON,
		"webserver.sessionsecret": &settings.WebServer.SessionSecret,
		"mqtt.username":           &settings.MQTT.Username,
		"mqtt.password":           &settings.MQTT.Password,
		"sentry.dsn":              &settings.Sentry.DSN,
	}
	for i := range settings.Notification.URLs {
		fields[fmt.Sprintf("notification.urls[%d]", i)] = &settings.Notification.URLs[i]
	}
	return secrets.ResolveAll(fields)
}

// initViper sets defaults, config search paths and environment bindings and
// reads the config file when one exists.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	if path := viper.GetString("config"); path != "" {
		viper.SetConfigFile(path)
	} else {
		configPaths, err := GetDefaultConfigPaths()
		if err != nil {
			return fmt.Errorf("error getting default config paths: %w", err)
		}
		for _, path := range configPaths {
			viper.AddConfigPath(path)
		}
	}

	setDefaultConfig()

	if err := configureEnvironmentVariables(); err != nil {
		return err
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Defaults plus environment are a complete configuration.
			return nil
		}
		return errors.New(err).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Context("operation", "read_config").
			Build()
	}

	return nil
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// DefaultSettings returns the settings produced by defaults alone.
func DefaultSettings() *Settings {
	v := viper.New()
	applyDefaults(v)
	settings := &Settings{}
	// Defaults always decode into Settings.
	_ = v.Unmarshal(settings)
	return settings
}

// SaveYAMLConfig writes settings to configPath. It overwrites the existing
// file through a temporary file and rename.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		if err := moveFile(tempFileName, configPath); err != nil {
			return fmt.Errorf("error copying config file: %w", err)
		}
	}

	return nil
}

// GenerateRandomSecret returns a URL-safe base64 string with 256 bits of
// entropy, suitable as a session signing key.
func GenerateRandomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// Location resolves the configured timezone.
func (s *NutritionSettings) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, errors.New(err).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Context("timezone", s.Timezone).
			Build()
	}
	return loc, nil
}
