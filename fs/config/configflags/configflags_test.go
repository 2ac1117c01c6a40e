package configflags

import (
	"testing"

	"github.com/rclone/drivedup/fs"
	"github.com/rclone/drivedup/fs/config"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, args ...string) (*fs.ConfigInfo, *pflag.FlagSet) {
	oldPath := config.ConfigPath
	t.Cleanup(func() {
		verbose, quiet = 0, false
		config.ConfigPath = oldPath
	})
	verbose, quiet = 0, false
	ci := fs.NewConfig()
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(ci, flagSet)
	require.NoError(t, flagSet.Parse(args))
	return ci, flagSet
}

func TestDefaults(t *testing.T) {
	ci, flagSet := parse(t)
	require.NoError(t, SetFlags(ci, flagSet))
	assert.Equal(t, fs.LogLevelNotice, ci.LogLevel)
	assert.Equal(t, 10, ci.LowLevelRetries)
	assert.False(t, ci.DryRun)
}

func TestVerbose(t *testing.T) {
	ci, flagSet := parse(t, "-vv", "--dry-run", "--list", "--tpslimit", "5", "--error-log", "errors.txt")
	require.NoError(t, SetFlags(ci, flagSet))
	assert.Equal(t, fs.LogLevelDebug, ci.LogLevel)
	assert.True(t, ci.DryRun)
	assert.True(t, ci.ListFiles)
	assert.Equal(t, 5.0, ci.TPSLimit)
	assert.Equal(t, "errors.txt", ci.ErrorLog)
}

func TestQuiet(t *testing.T) {
	ci, flagSet := parse(t, "-q")
	require.NoError(t, SetFlags(ci, flagSet))
	assert.Equal(t, fs.LogLevelError, ci.LogLevel)
}

func TestLogLevel(t *testing.T) {
	ci, flagSet := parse(t, "--log-level", "INFO")
	require.NoError(t, SetFlags(ci, flagSet))
	assert.Equal(t, fs.LogLevelInfo, ci.LogLevel)
}

func TestConflicts(t *testing.T) {
	for _, args := range [][]string{
		{"-v", "-q"},
		{"-v", "--log-level", "DEBUG"},
		{"-q", "--log-level", "DEBUG"},
		{"--low-level-retries", "0"},
	} {
		ci, flagSet := parse(t, args...)
		assert.Error(t, SetFlags(ci, flagSet), args)
	}
}

func TestConfigPathAbsolute(t *testing.T) {
	ci, flagSet := parse(t, "--config", "drivedup.conf")
	require.NoError(t, SetFlags(ci, flagSet))
	assert.NotEqual(t, "drivedup.conf", config.ConfigPath)
	assert.Contains(t, config.ConfigPath, "drivedup.conf")
}
