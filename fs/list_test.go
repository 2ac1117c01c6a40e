package fs_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/rclone/drivedup/fs"
	"github.com/rclone/drivedup/fstest/mockstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListAllPages(t *testing.T) {
	ctx := context.Background()
	s := mockstore.New()
	s.PageSize = 2
	dir := s.AddFolder(s.RootID(), "dir")
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		s.AddFile(dir.ID, name, 1, s.Now())
	}

	objects, err := fs.ListAll(ctx, s, fs.Query{ParentID: dir.ID})
	require.NoError(t, err)
	assert.Len(t, objects, 5)
	assert.Equal(t, 3, s.Calls(mockstore.OpList))
}

func TestFindChildrenAndOrphans(t *testing.T) {
	ctx := context.Background()
	s := mockstore.New()
	s.PageSize = 1
	s.AddFolder(s.RootID(), "same")
	s.AddFile(s.RootID(), "same", 2, s.Now())
	s.AddFile(s.RootID(), "other", 2, s.Now())
	shared := s.AddFolder("", "same")

	children, err := fs.FindChildren(ctx, s, s.RootID(), "same")
	require.NoError(t, err)
	assert.Len(t, children, 2)

	orphans, err := fs.FindOrphans(ctx, s, "same")
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, shared.ID, orphans[0].ID)
	assert.True(t, orphans[0].IsRootless())
}

func TestFindChildrenNeedsParent(t *testing.T) {
	ctx := context.Background()
	s := mockstore.New()
	s.AddFolder(s.RootID(), "docs")

	_, err := fs.FindChildren(ctx, s, "", "docs")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrorNoParentID))
	assert.Equal(t, 0, s.Calls(mockstore.OpList))
}

func TestListAllComments(t *testing.T) {
	ctx := context.Background()
	s := mockstore.New()
	s.PageSize = 1
	f := s.AddFile(s.RootID(), "f", 1, s.Now())
	s.AddComment(f.ID, &fs.Comment{Author: "A", Content: "one"})
	s.AddComment(f.ID, &fs.Comment{Author: "B", Content: "two"})

	comments, err := fs.ListAllComments(ctx, s, f.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "two", comments[1].Content)
}
