package env

import (
	"path/filepath"
	"testing"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShellExpand(t *testing.T) {
	home, err := homedir.Dir()
	require.NoError(t, err)
	t.Setenv("EXPAND_TEST", "potato")
	for _, test := range []struct {
		in, want string
	}{
		{"", ""},
		{"~", home},
		{"~/dir/file.txt", filepath.Join(home, "dir/file.txt")},
		{"/dir/~/file.txt", "/dir/~/file.txt"},
		{"~/${EXPAND_TEST}", filepath.Join(home, "potato")},
		{"$EXPAND_TEST/drivedup.conf", "potato/drivedup.conf"},
	} {
		got := ShellExpand(test.in)
		assert.Equal(t, test.want, got, test.in)
	}
}
