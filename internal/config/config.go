package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	AppPort string

	// UpstreamTimeout bounds each individual upstream call; a breach is
	// reported as a timeout, distinct from an authentication failure.
	UpstreamTimeout time.Duration

	// RequestTimeout bounds one whole relay request, including the
	// identifier re-extraction every stateless request pays for.
	RequestTimeout time.Duration

	// ClientMode selects the real or mock client when no explicit
	// override is given at construction.
	ClientMode string

	LogLevel string
}

func Load() Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("app_port", "8080")
	v.SetDefault("upstream_timeout", 10*time.Second)
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("client_mode", "real")
	v.SetDefault("log_level", "info")

	_ = v.BindEnv("app_port", "APP_PORT")
	_ = v.BindEnv("upstream_timeout", "UPSTREAM_TIMEOUT")
	_ = v.BindEnv("request_timeout", "REQUEST_TIMEOUT")
	_ = v.BindEnv("client_mode", "BELLBIRD_CLIENT_MODE")
	_ = v.BindEnv("log_level", "LOG_LEVEL")

	return Config{
		AppPort:         v.GetString("app_port"),
		UpstreamTimeout: v.GetDuration("upstream_timeout"),
		RequestTimeout:  v.GetDuration("request_timeout"),
		ClientMode:      v.GetString("client_mode"),
		LogLevel:        v.GetString("log_level"),
	}
}
