package operations

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rclone/drivedup/fs"
	"github.com/rclone/drivedup/fs/fspath"
	"github.com/rclone/drivedup/fstest/mockstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, path string) fspath.Path {
	p, err := fspath.Parse(path)
	require.NoError(t, err)
	return p
}

func TestEnsurePathRoot(t *testing.T) {
	s := mockstore.New()
	o, err := EnsurePath(context.Background(), s, parse(t, "/"))
	require.NoError(t, err)
	assert.Equal(t, s.RootID(), o.ID)
	assert.Equal(t, 0, s.Calls(mockstore.OpCreateFolder))
}

func TestEnsurePathCreatesMissingOnly(t *testing.T) {
	ctx := context.Background()
	s := mockstore.New()
	x := s.AddFolder(s.RootID(), "x")

	y, err := EnsurePath(ctx, s, parse(t, "x/y"))
	require.NoError(t, err)
	assert.Equal(t, "y", y.Name)
	assert.True(t, y.IsDir())
	assert.Equal(t, []string{x.ID}, y.Parents)
	assert.Equal(t, 1, s.Calls(mockstore.OpCreateFolder))

	// running again finds what was made
	y2, err := EnsurePath(ctx, s, parse(t, "x/y"))
	require.NoError(t, err)
	assert.Equal(t, y.ID, y2.ID)
	assert.Equal(t, 1, s.Calls(mockstore.OpCreateFolder))
}

func TestEnsurePathCreatesAll(t *testing.T) {
	ctx := context.Background()
	s := mockstore.New()
	c, err := EnsurePath(ctx, s, parse(t, "a/b/c"))
	require.NoError(t, err)
	assert.Equal(t, "c", c.Name)
	assert.Equal(t, 3, s.Calls(mockstore.OpCreateFolder))
	a := s.Children(s.RootID())
	require.Len(t, a, 1)
	assert.Equal(t, "a", a[0].Name)
}

func TestEnsurePathInvalidDestination(t *testing.T) {
	ctx := context.Background()
	s := mockstore.New()
	s.AddFile(s.RootID(), "file", 1, time.Time{})

	_, err := EnsurePath(ctx, s, parse(t, "file/sub"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrorInvalidDestination))
	var pathErr *fs.PathError
	require.True(t, errors.As(err, &pathErr))
	assert.Equal(t, "file", pathErr.Segment)
	assert.Equal(t, 0, s.Calls(mockstore.OpCreateFolder))

	_, err = EnsurePath(ctx, s, parse(t, "file"))
	assert.True(t, errors.Is(err, fs.ErrorInvalidDestination))

	_, err = EnsurePath(ctx, s, parse(t, "/x"))
	assert.True(t, errors.Is(err, fs.ErrorInvalidDestination))
}

func TestEnsurePathAmbiguous(t *testing.T) {
	ctx := context.Background()
	s := mockstore.New()
	s.AddFolder(s.RootID(), "x")
	s.AddFolder(s.RootID(), "x")

	_, err := EnsurePath(ctx, s, parse(t, "x/y"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrorAmbiguousPath))
	assert.Contains(t, err.Error(), `"x"`)
	assert.Equal(t, 0, s.Calls(mockstore.OpCreateFolder))
}

func TestFindPath(t *testing.T) {
	ctx := context.Background()
	s := mockstore.New()
	x := s.AddFolder(s.RootID(), "x")

	o, err := FindPath(ctx, s, parse(t, "x"))
	require.NoError(t, err)
	assert.Equal(t, x.ID, o.ID)

	_, err = FindPath(ctx, s, parse(t, "x/y"))
	assert.True(t, errors.Is(err, fs.ErrorPathNotFound))
	assert.Equal(t, 0, s.Calls(mockstore.OpCreateFolder))
}
