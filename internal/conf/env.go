// env.go - Environment variable configuration and validation
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

// envBinding holds metadata for environment variable bindings
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "NUTRIAPP_DEBUG", validateEnvBool},

		{"nutrition.timezone", "NUTRIAPP_TIMEZONE", validateEnvTimezone},
		{"nutrition.dailygoal", "NUTRIAPP_DAILY_GOAL", validateEnvDailyGoal},
		{"nutrition.locale", "NUTRIAPP_LOCALE", validateEnvLocale},

		{"sheets.title", "NUTRIAPP_SHEET_TITLE", nil},
		{"sheets.spreadsheetid", "NUTRIAPP_SHEET_ID", nil},
		{"sheets.credentialsfile", "NUTRIAPP_CREDENTIALS_FILE", validateEnvPath},
		{"sheets.credentialsjson", "NUTRIAPP_CREDENTIALS_JSON", nil},
		{"sheets.cachettl", "NUTRIAPP_SHEET_CACHE_TTL", validateEnvDuration},
		{"sheets.resetondrift", "NUTRIAPP_SHEET_RESET_ON_DRIFT", validateEnvBool},

		{"lookup.baseurl", "NUTRIAPP_LOOKUP_BASEURL", nil},
		{"lookup.timeout", "NUTRIAPP_LOOKUP_TIMEOUT", validateEnvDuration},

		{"webserver.listen", "NUTRIAPP_LISTEN", nil},
		{"webserver.sessionsecret", "NUTRIAPP_SESSION_SECRET", nil},

		{"mqtt.enabled", "NUTRIAPP_MQTT_ENABLED", validateEnvBool},
		{"mqtt.broker", "NUTRIAPP_MQTT_BROKER", nil},
		{"mqtt.username", "NUTRIAPP_MQTT_USERNAME", nil},
		{"mqtt.password", "NUTRIAPP_MQTT_PASSWORD", nil},

		{"sentry.enabled", "NUTRIAPP_SENTRY_ENABLED", validateEnvBool},
		{"sentry.dsn", "NUTRIAPP_SENTRY_DSN", nil},
	}
}

// bindEnvVars binds every environment variable and validates values that are set
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("invalid boolean value: %s", value)
	}
	return nil
}

func validateEnvTimezone(value string) error {
	if _, err := time.LoadLocation(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("unknown timezone: %s", value)
	}
	return nil
}

func validateEnvDailyGoal(value string) error {
	goal, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid integer value: %s", value)
	}
	if goal < MinDailyGoal || goal > MaxDailyGoal {
		return fmt.Errorf("daily goal must be between %d and %d", MinDailyGoal, MaxDailyGoal)
	}
	return nil
}

func validateEnvLocale(value string) error {
	if _, err := language.Parse(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("invalid locale: %s", value)
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid duration: %s", value)
	}
	if d < 0 {
		return fmt.Errorf("duration must not be negative: %s", value)
	}
	return nil
}

func validateEnvPath(value string) error {
	cleanedPath := filepath.Clean(value)
	for _, part := range strings.Split(cleanedPath, string(os.PathSeparator)) {
		if part == ".." {
			return fmt.Errorf("path traversal detected in cleaned path: %s", cleanedPath)
		}
	}
	return nil
}

// configureEnvironmentVariables sets up environment variable support for Viper
func configureEnvironmentVariables() error {
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return bindEnvVars()
}
