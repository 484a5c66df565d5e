// Package config loads callclient's YAML configuration and wires up its
// logger, panicking on misconfiguration the way an entrypoint is allowed to
// where a library must return an error instead.
package config

import (
	"log/slog"
	"os"

	"github.com/havenline/callcore/internal/rtc"
	"github.com/havenline/callcore/internal/utils"
	"github.com/spf13/viper"
)

// LoadConfig reads configFilePath into viper over the defaults set by
// utils.SetViperDefaults, tolerating a missing file but panicking on a
// malformed one or an unknown codec name.
func LoadConfig(configFilePath string) {
	utils.SetViperDefaults()

	viper.SetConfigFile(configFilePath)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
			slog.Info("no config file found, using defaults", "configFilePath", configFilePath)
		} else {
			slog.Error("error during config read", "err", err)
			panic(err)
		}
	}

	if viper.GetString("stunserver") == "" {
		slog.Error("stunserver must not be empty")
		panic("no stun server configured")
	}

	if _, ok := rtc.CodecMap[viper.GetString("codec")]; !ok {
		slog.Error("unrecognized codec", "codec", viper.GetString("codec"))
		panic("invalid codec specified")
	}
}

// ConfigureLogger installs the slog default logger per the loglevel/logfile
// keys read by LoadConfig, panicking if the level is invalid or the log
// file can't be opened. selfID is stamped on every log line so output from
// more than one callclient process can still be told apart; pass "" before
// an identity exists yet. The returned *os.File is nil when logging to
// stdout; callers should guard the close.
func ConfigureLogger(selfID string) *os.File {
	logFilePointer, err := utils.ConfigureDefaultLogger(viper.GetString("loglevel"), viper.GetString("logfile"), selfID, slog.HandlerOptions{})
	if err != nil {
		panic(err)
	}
	return logFilePointer
}
