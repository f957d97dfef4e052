// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaultConfig installs defaults on the global viper instance.
func setDefaultConfig() {
	applyDefaults(viper.GetViper())
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("main.log.enabled", false)
	v.SetDefault("main.log.path", "logs/nutriapp.log")
	v.SetDefault("main.log.rotation", "daily")
	v.SetDefault("main.log.maxsize", 1048576)

	v.SetDefault("nutrition.timezone", "America/Argentina/Cordoba")
	v.SetDefault("nutrition.dailygoal", DefaultDailyGoal)
	v.SetDefault("nutrition.locale", "es")

	v.SetDefault("sheets.title", "NutriApp")
	v.SetDefault("sheets.spreadsheetid", "")
	v.SetDefault("sheets.credentialsfile", "")
	v.SetDefault("sheets.credentialsjson", "")
	v.SetDefault("sheets.cachettl", 15*time.Second)
	v.SetDefault("sheets.resetondrift", false)

	v.SetDefault("lookup.baseurl", "https://world.openfoodfacts.org")
	v.SetDefault("lookup.timeout", 10*time.Second)
	v.SetDefault("lookup.ratelimit", 100)
	v.SetDefault("lookup.useragent", "NutriApp/1.0")

	v.SetDefault("webserver.listen", ":8080")
	v.SetDefault("webserver.sessionsecret", "")
	v.SetDefault("webserver.metrics", true)

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.topic", "nutriapp/entries")
	v.SetDefault("mqtt.clientid", "nutriapp")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.retain", false)

	v.SetDefault("notification.enabled", false)
	v.SetDefault("notification.urls", []string{})
	v.SetDefault("notification.timeout", 10*time.Second)

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
}
