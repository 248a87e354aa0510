// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// DefaultAnimalNames is the suggestion corpus used when the config lists none.
var DefaultAnimalNames = []string{
	"American Robin", "Bald Eagle", "Barn Owl", "Black Bear", "Blue Jay",
	"Bobcat", "Canada Goose", "Coyote", "Eastern Chipmunk", "Eastern Gray Squirrel",
	"Great Blue Heron", "Great Horned Owl", "Mallard", "Moose", "Mountain Lion",
	"Mule Deer", "Northern Cardinal", "Raccoon", "Red Fox", "Red-tailed Hawk",
	"Red-winged Blackbird", "River Otter", "Striped Skunk", "Virginia Opossum",
	"White-tailed Deer", "Wild Turkey", "Wolf",
}

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "WildlifeExplorer")
	viper.SetDefault("main.contact", "contact: ios-app")

	viper.SetDefault("webserver.listen", ":8000")
	viper.SetDefault("webserver.debug", false)
	viper.SetDefault("webserver.bodylimit", "32M")
	viper.SetDefault("webserver.readtimeout", 30*time.Second)
	viper.SetDefault("webserver.writetimeout", 120*time.Second)
	viper.SetDefault("webserver.allowedorigins", []string{"*"})

	viper.SetDefault("classifier.apikey", "")
	viper.SetDefault("classifier.baseurl", "https://api.openai.com/v1")
	viper.SetDefault("classifier.photomodel", "gpt-4o-mini")
	viper.SetDefault("classifier.audiomodel", "gpt-4o-audio-preview")
	viper.SetDefault("classifier.timeout", 45*time.Second)
	viper.SetDefault("classifier.maxretries", 2)

	viper.SetDefault("wikipedia.baseurl", "https://en.wikipedia.org")
	viper.SetDefault("wikipedia.timeout", 5*time.Second)
	viper.SetDefault("wikipedia.ratelimit", 5.0)

	viper.SetDefault("animals.textmodel", "gpt-4o-mini")
	viper.SetDefault("animals.cachettl", 24*time.Hour)
	viper.SetDefault("animals.names", DefaultAnimalNames)

	viper.SetDefault("database.type", "sqlite")
	viper.SetDefault("database.sqlite.path", "wildlife.db")
	viper.SetDefault("database.mysql.host", "localhost")
	viper.SetDefault("database.mysql.port", "3306")
	viper.SetDefault("database.mysql.username", "")
	viper.SetDefault("database.mysql.password", "")
	viper.SetDefault("database.mysql.database", "wildlife")
	viper.SetDefault("database.slowquerythreshold", 200*time.Millisecond)

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.listen", "0.0.0.0:8090")

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.environment", "production")
	viper.SetDefault("sentry.samplerate", 1.0)

	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", "logs/wildlife.log")
	viper.SetDefault("logging.file_output.level", "info")
}
