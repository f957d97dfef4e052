// conf/validate.go

package conf

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	for _, check := range []func() error{
		func() error { return validateNutritionSettings(&settings.Nutrition) },
		func() error { return validateSheetsSettings(&settings.Sheets) },
		func() error { return validateLookupSettings(&settings.Lookup) },
		func() error { return validateMQTTSettings(&settings.MQTT) },
		func() error { return validateNotificationSettings(&settings.Notification) },
		func() error { return validateSentrySettings(&settings.Sentry) },
	} {
		if err := check(); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateNutritionSettings(settings *NutritionSettings) error {
	var errs []string

	if _, err := time.LoadLocation(settings.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("unknown timezone %q", settings.Timezone))
	}
	if settings.DailyGoal < MinDailyGoal || settings.DailyGoal > MaxDailyGoal {
		errs = append(errs, fmt.Sprintf("daily goal must be between %d and %d, got %d", MinDailyGoal, MaxDailyGoal, settings.DailyGoal))
	}
	if _, err := language.Parse(settings.Locale); err != nil {
		errs = append(errs, fmt.Sprintf("invalid locale %q", settings.Locale))
	}

	if len(errs) > 0 {
		return fmt.Errorf("nutrition settings: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateSheetsSettings(settings *SheetsSettings) error {
	if settings.Title == "" && settings.SpreadsheetID == "" {
		return fmt.Errorf("sheets settings: either title or spreadsheetid must be set")
	}
	if settings.CacheTTL < 0 {
		return fmt.Errorf("sheets settings: cachettl must not be negative")
	}
	return nil
}

func validateLookupSettings(settings *LookupSettings) error {
	u, err := url.Parse(settings.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("lookup settings: invalid baseurl %q", settings.BaseURL)
	}
	if settings.Timeout <= 0 {
		return fmt.Errorf("lookup settings: timeout must be positive")
	}
	if settings.RateLimit < 0 {
		return fmt.Errorf("lookup settings: ratelimit must not be negative")
	}
	return nil
}

func validateMQTTSettings(settings *MQTTSettings) error {
	if !settings.Enabled {
		return nil
	}
	if settings.Broker == "" {
		return fmt.Errorf("mqtt settings: broker is required when mqtt is enabled")
	}
	if settings.Topic == "" {
		return fmt.Errorf("mqtt settings: topic is required when mqtt is enabled")
	}
	return nil
}

func validateNotificationSettings(settings *NotificationSettings) error {
	if settings.Enabled && len(settings.URLs) == 0 {
		return fmt.Errorf("notification settings: at least one url is required when notifications are enabled")
	}
	return nil
}

func validateSentrySettings(settings *SentrySettings) error {
	if settings.Enabled && settings.DSN == "" {
		return fmt.Errorf("sentry settings: dsn is required when sentry is enabled")
	}
	return nil
}
