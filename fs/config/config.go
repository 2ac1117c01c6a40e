// Package config reads and writes the config file
package config

import (
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/rclone/drivedup/fs"
	"github.com/rclone/drivedup/fs/config/configmap"
)

const configFileName = "drivedup.conf"

// ConfigPath is the path to the config file, set by --config
var ConfigPath = DefaultConfigPath()

// Storage defines an interface for loading and saving config to
// persistent storage. drivedup provides a default implementation in
// configfile which must be installed before use.
type Storage interface {
	// GetSectionList returns a slice of strings with names for all the
	// sections
	GetSectionList() []string

	// HasSection returns true if section exists in the config file
	HasSection(section string) bool

	// GetKeyList returns the keys in this section
	GetKeyList(section string) []string

	// GetValue returns the key in section with a found flag
	GetValue(section string, key string) (value string, found bool)

	// SetValue sets the value under key in section
	SetValue(section string, key string, value string)

	// DeleteKey removes the key under section
	DeleteKey(section string, key string) bool

	// Load the config from permanent storage
	Load() error

	// Save the config to permanent storage
	Save() error
}

// data is the config storage in use
var data Storage = defaultStorage{}

// SetData sets new config file storage
func SetData(newData Storage) {
	data = newData
}

// Data returns current config file storage
func Data() Storage {
	return data
}

// DefaultConfigPath returns where the config file lives if --config
// isn't given. This is $XDG_CONFIG_HOME/drivedup/drivedup.conf or
// ~/.config/drivedup/drivedup.conf
func DefaultConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "drivedup", configFileName)
	}
	home, err := homedir.Dir()
	if err != nil {
		fs.Debugf(nil, "Couldn't find home directory: %v", err)
		return configFileName
	}
	return filepath.Join(home, ".config", "drivedup", configFileName)
}

// LoadedData loads the config file storage. A missing config file is
// not an error.
func LoadedData() error {
	err := data.Load()
	if errors.Is(err, fs.ErrorConfigFileNotFound) {
		fs.Debugf(nil, "Config file %q not found - using defaults", ConfigPath)
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "failed to load config file")
	}
	return nil
}

// FileGet gets the config key under section returning the value and
// true if found or ("", false) otherwise
func FileGet(section, key string) (string, bool) {
	return data.GetValue(section, key)
}

// FileSet sets the key in section to value and saves the config file
func FileSet(section, key, value string) {
	if value != "" {
		data.SetValue(section, key, value)
	} else {
		data.DeleteKey(section, key)
	}
	if err := data.Save(); err != nil {
		fs.Errorf(nil, "Failed to save config after setting %q in [%s]: %v", key, section, err)
	}
}

// section is a configmap.Mapper for one section of the config file
type section string

// Get a value from the section
func (s section) Get(key string) (value string, ok bool) {
	return FileGet(string(s), key)
}

// Set a value in the section, saving the config file
func (s section) Set(key, value string) {
	FileSet(string(s), key, value)
}

// Section returns a configmap.Mapper for the named section of the
// config file
func Section(name string) configmap.Mapper {
	return section(name)
}
