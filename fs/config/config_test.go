package config

import (
	"path/filepath"
	"testing"

	"github.com/rclone/drivedup/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStorage is a Storage in memory
type memStorage struct {
	sections map[string]map[string]string
	loadErr  error
	saves    int
}

func newMemStorage() *memStorage {
	return &memStorage{sections: map[string]map[string]string{}}
}

func (m *memStorage) GetSectionList() (list []string) {
	for name := range m.sections {
		list = append(list, name)
	}
	return list
}

func (m *memStorage) HasSection(section string) bool {
	_, ok := m.sections[section]
	return ok
}

func (m *memStorage) GetKeyList(section string) (list []string) {
	for key := range m.sections[section] {
		list = append(list, key)
	}
	return list
}

func (m *memStorage) GetValue(section string, key string) (value string, found bool) {
	value, found = m.sections[section][key]
	return value, found
}

func (m *memStorage) SetValue(section string, key string, value string) {
	if m.sections[section] == nil {
		m.sections[section] = map[string]string{}
	}
	m.sections[section][key] = value
}

func (m *memStorage) DeleteKey(section string, key string) bool {
	_, found := m.sections[section][key]
	delete(m.sections[section], key)
	return found
}

func (m *memStorage) Load() error { return m.loadErr }

func (m *memStorage) Save() error {
	m.saves++
	return nil
}

func useStorage(t *testing.T, s Storage) {
	old := data
	SetData(s)
	t.Cleanup(func() { SetData(old) })
}

func TestSection(t *testing.T) {
	m := newMemStorage()
	useStorage(t, m)
	m.SetValue("drive", "client_id", "abc")

	s := Section("drive")
	value, ok := s.Get("client_id")
	assert.True(t, ok)
	assert.Equal(t, "abc", value)
	_, ok = s.Get("token")
	assert.False(t, ok)

	s.Set("token", `{"access_token":"x"}`)
	value, ok = FileGet("drive", "token")
	assert.True(t, ok)
	assert.Equal(t, `{"access_token":"x"}`, value)
	assert.Equal(t, 1, m.saves)

	s.Set("token", "")
	_, ok = FileGet("drive", "token")
	assert.False(t, ok)
	assert.Equal(t, 2, m.saves)
}

func TestLoadedData(t *testing.T) {
	m := newMemStorage()
	useStorage(t, m)
	require.NoError(t, LoadedData())

	m.loadErr = fs.ErrorConfigFileNotFound
	require.NoError(t, LoadedData())

	m.loadErr = assert.AnError
	err := LoadedData()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config file")
}

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", filepath.FromSlash("/tmp/xdg"))
	assert.Equal(t, filepath.FromSlash("/tmp/xdg/drivedup/drivedup.conf"), DefaultConfigPath())
}

func TestDefaultStoragePanics(t *testing.T) {
	assert.Panics(t, func() { defaultStorage{}.Load() })
}
