// Package configfile implements a config file loader and saver
package configfile

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Unknwon/goconfig"
	"github.com/pkg/errors"
	"github.com/rclone/drivedup/fs"
	"github.com/rclone/drivedup/fs/config"
)

// Install installs the config file handler
func Install() {
	config.SetData(&Storage{})
}

// Storage implements config.Storage for saving and loading config
// data in a simple INI based file.
type Storage struct {
	mu        sync.Mutex           // to protect the following variables
	gc        *goconfig.ConfigFile // config file loaded - not thread safe
	fiModTime time.Time            // stat of the file when last loaded
	fiSize    int64                // stat of the file size
}

// Check to see if we need to reload the config
//
// mu must be held when calling this
func (s *Storage) _check() {
	if s.gc == nil {
		_ = s._load()
		return
	}
	fi, err := os.Stat(config.ConfigPath)
	if err != nil {
		return
	}
	if fi.ModTime().After(s.fiModTime) || fi.Size() != s.fiSize {
		fs.Debugf(nil, "Config file has changed externally - reloading")
		if err := s._load(); err != nil {
			fs.Errorf(nil, "Failed to read config file - using previous config: %v", err)
		}
	}
}

// _load the config from permanent storage
//
// mu must be held when calling this
func (s *Storage) _load() (err error) {
	// Make sure we have a sensible default even when we error
	defer func() {
		if s.gc == nil {
			s.gc, _ = goconfig.LoadFromReader(bytes.NewReader([]byte{}))
		}
	}()

	configPath := config.ConfigPath
	if configPath == "" {
		return fs.ErrorConfigFileNotFound
	}
	fd, err := os.Open(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fs.ErrorConfigFileNotFound
		}
		return err
	}
	defer fs.CheckClose(fd, &err)

	fi, err := fd.Stat()
	if err != nil {
		return err
	}
	s.fiModTime, s.fiSize = fi.ModTime(), fi.Size()

	gc, err := goconfig.LoadFromReader(fd)
	if err != nil {
		return err
	}
	s.gc = gc
	return nil
}

// Load the config from permanent storage
func (s *Storage) Load() (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s._load()
}

// _save the config to permanent storage
//
// mu must be held when calling this
func (s *Storage) _save() (err error) {
	configPath := config.ConfigPath
	if configPath == "" {
		return errors.New("failed to save config file, path is empty")
	}
	if s.gc == nil {
		_ = s._load()
	}

	dir, name := filepath.Split(configPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}
	td, err := os.CreateTemp(dir, name)
	if err != nil {
		return errors.Wrap(err, "failed to create temp file for new config")
	}
	defer func() {
		_ = td.Close()
		if err := os.Remove(td.Name()); err != nil && !os.IsNotExist(err) {
			fs.Errorf(nil, "Failed to remove temp config file: %v", err)
		}
	}()

	if err := goconfig.SaveConfigData(s.gc, td); err != nil {
		return errors.Wrap(err, "failed to save config file")
	}
	if err := td.Sync(); err != nil {
		return errors.Wrap(err, "failed to write config file to disk")
	}
	if err := td.Close(); err != nil {
		return errors.Wrap(err, "failed to close config file")
	}

	var fileMode os.FileMode = 0600
	if info, err := os.Stat(configPath); err == nil && info.Mode() != fileMode {
		fs.Debugf(nil, "Keeping previous permissions for config file: %v", info.Mode())
		fileMode = info.Mode()
	}
	if err := os.Chmod(td.Name(), fileMode); err != nil {
		fs.Errorf(nil, "Failed to set permissions on config file: %v", err)
	}
	if err := os.Rename(td.Name(), configPath); err != nil {
		return errors.Wrapf(err, "failed to move newly written config from %s to final location", td.Name())
	}

	fi, err := os.Stat(configPath)
	if err == nil {
		s.fiModTime, s.fiSize = fi.ModTime(), fi.Size()
	}
	return nil
}

// Save the config to permanent storage
func (s *Storage) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s._save()
}

// Serialize the config into a string
func (s *Storage) Serialize() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s._check()
	var buf bytes.Buffer
	if err := goconfig.SaveConfigData(s.gc, &buf); err != nil {
		return "", errors.Wrap(err, "failed to save config file")
	}
	return buf.String(), nil
}

// HasSection returns true if section exists in the config file
func (s *Storage) HasSection(section string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s._check()
	_, err := s.gc.GetSection(section)
	return err == nil
}

// GetSectionList returns a slice of strings with names for all the
// sections
func (s *Storage) GetSectionList() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s._check()
	return s.gc.GetSectionList()
}

// GetKeyList returns the keys in this section
func (s *Storage) GetKeyList(section string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s._check()
	return s.gc.GetKeyList(section)
}

// GetValue returns the key in section with a found flag
func (s *Storage) GetValue(section string, key string) (value string, found bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s._check()
	value, err := s.gc.GetValue(section, key)
	if err != nil {
		return "", false
	}
	return value, true
}

// SetValue sets the value under key in section
func (s *Storage) SetValue(section string, key string, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s._check()
	s.gc.SetValue(section, key, value)
}

// DeleteKey removes the key under section
func (s *Storage) DeleteKey(section string, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s._check()
	return s.gc.DeleteKey(section, key)
}

// Check the interface is satisfied
var _ config.Storage = (*Storage)(nil)
