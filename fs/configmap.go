// Getters and Setters for ConfigMap

package fs

import (
	"os"

	"github.com/rclone/drivedup/fs/config/configmap"
)

// A configmap.Getter to read from the environment DRIVEDUP_prefix_option_name
type optionEnvVars struct {
	prefix  string
	options Options
}

// Get a config item from the option environment variables if possible
func (oev optionEnvVars) Get(key string) (value string, ok bool) {
	if oev.options.Get(key) == nil {
		return "", false
	}
	envKey := OptionToEnv(oev.prefix, key)
	value, ok = os.LookupEnv(envKey)
	if ok {
		Debugf(nil, "Setting %s_%s=%q from environment variable %s", oev.prefix, key, value, envKey)
	}
	return value, ok
}

// A configmap.Getter to read either the default value or the set
// value from the Options
type optionValues struct {
	options    Options
	useDefault bool
}

// Get the value of the option from the flag or from the default
func (ov optionValues) Get(key string) (value string, ok bool) {
	opt := ov.options.Get(key)
	if opt != nil && (ov.useDefault || opt.Value != nil) {
		return opt.String(), true
	}
	return "", false
}

// ConfigMap creates a configmap.Map for the backend options with
// prefix.  Values are looked up in this order
//
//   - command line flags
//   - environment variables
//   - the config file section passed in
//   - the defaults
//
// Values set on the returned map are written to the config file.
func ConfigMap(prefix string, options Options, configFile configmap.Mapper) *configmap.Map {
	m := configmap.New()
	m.AddOverrideGetter(optionValues{options: options})
	m.AddOverrideGetter(optionEnvVars{prefix: prefix, options: options})
	if configFile != nil {
		m.AddGetter(configFile)
		m.AddSetter(configFile)
	}
	m.AddGetter(optionValues{options: options, useDefault: true})
	return m
}
