package config

import (
	"os"

	log "github.com/sirupsen/logrus"
)

// SetupLogging configures the global logrus logger from the config
func SetupLogging(cfg *Config) {
	log.SetOutput(os.Stdout)

	if cfg.LogFormat == "text" {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&log.JSONFormatter{
			FieldMap: log.FieldMap{
				log.FieldKeyLevel: "loglevel",
			},
		})
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
