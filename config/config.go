// Package config is the configuration surface spec.md §6 names:
// service name, broker hostnames/credentials/ports, per-queue QoS
// records, the sequential-vs-async consumption toggle, and stream
// bootstrap/credentials — loaded the way the teacher's
// contrib/config.Driver loads everything else, via Viper, file +
// environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Driver wraps Viper with the typed getters the teacher's
// contrib/config.Driver exposes. Remote-config and file-watch support
// are dropped: the messaging core is a long-running daemon, not an
// HTTP service that needs hot-reloadable request-path config (see
// DESIGN.md).
type Driver struct {
	viper *viper.Viper
}

// Options configures how the Driver locates and reads config.
type Options struct {
	ConfigName string
	ConfigPath string
	ConfigType string
	EnvPrefix  string
	Defaults   map[string]any
}

// DefaultOptions mirrors the teacher's DefaultConfig: a "config.yaml"
// in the working directory, env vars prefixed APP.
func DefaultOptions() *Options {
	return &Options{
		ConfigName: "config",
		ConfigPath: ".",
		ConfigType: "yaml",
		EnvPrefix:  "APP",
	}
}

// New builds a Driver, reading the config file if present (absence is
// not an error — env vars and defaults can fully configure a process).
func New(opts *Options) (*Driver, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	v := viper.New()
	v.SetConfigName(opts.ConfigName)
	v.SetConfigType(opts.ConfigType)
	v.AddConfigPath(opts.ConfigPath)

	v.AutomaticEnv()
	v.SetEnvPrefix(opts.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for key, value := range opts.Defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	return &Driver{viper: v}, nil
}

func (d *Driver) GetString(key string) string         { return d.viper.GetString(key) }
func (d *Driver) GetInt(key string) int                { return d.viper.GetInt(key) }
func (d *Driver) GetBool(key string) bool              { return d.viper.GetBool(key) }
func (d *Driver) GetDuration(key string) time.Duration { return d.viper.GetDuration(key) }
func (d *Driver) IsSet(key string) bool                { return d.viper.IsSet(key) }

// Unmarshal decodes the whole config tree into rawVal.
func (d *Driver) Unmarshal(rawVal any) error {
	return d.viper.Unmarshal(rawVal)
}

// UnmarshalKey decodes the subtree at key into rawVal.
func (d *Driver) UnmarshalKey(key string, rawVal any) error {
	return d.viper.UnmarshalKey(key, rawVal)
}
