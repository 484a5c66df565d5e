package utils

import "github.com/spf13/viper"

// SetViperDefaults installs the defaults a callclient config falls back to
// when a key is absent from its config file.
func SetViperDefaults() {
	viper.SetDefault("loglevel", "info")
	viper.SetDefault("logfile", "")
	viper.SetDefault("stunserver", "stun:stun.l.google.com:19302")
	viper.SetDefault("codec", "CodecOpus48000Mono")
	viper.SetDefault("recordingdir", "./recordings")
	viper.SetDefault("listenaddrs", []string{"/ip4/0.0.0.0/tcp/0", "/ip4/0.0.0.0/udp/0/quic-v1"})
}
