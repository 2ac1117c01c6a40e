package mockstore

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rclone/drivedup/fs"
	"github.com/rclone/drivedup/fs/fserrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListPaging(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.PageSize = 2
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		s.AddFile(s.RootID(), name, 1, time.Time{})
	}
	s.AddFolder(s.RootID(), "dir")

	objects, next, err := s.List(ctx, fs.Query{ParentID: s.RootID(), FilesOnly: true}, "")
	require.NoError(t, err)
	assert.Len(t, objects, 2)
	assert.Equal(t, "2", next)

	all, err := fs.ListAll(ctx, s, fs.Query{ParentID: s.RootID(), FilesOnly: true})
	require.NoError(t, err)
	var names []string
	for _, o := range all {
		names = append(names, o.Name)
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, names)

	dirs, err := fs.ListAll(ctx, s, fs.Query{ParentID: s.RootID(), FoldersOnly: true})
	require.NoError(t, err)
	require.Len(t, dirs, 1)
	assert.Equal(t, FolderMimeType, dirs[0].MimeType)
}

func TestQueryFilters(t *testing.T) {
	ctx := context.Background()
	s := New()
	shared := s.AddFolder("", "shared")
	s.AddFile("", "loose", 3, time.Time{})
	inRoot := s.AddFile(s.RootID(), "shared", 4, time.Time{})
	gone := s.AddFile(s.RootID(), "gone", 4, time.Time{})
	s.Trash(gone.ID)

	orphans, err := fs.FindOrphans(ctx, s, "shared")
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, shared.ID, orphans[0].ID)

	named, err := fs.FindChildren(ctx, s, s.RootID(), "shared")
	require.NoError(t, err)
	require.Len(t, named, 1)
	assert.Equal(t, inRoot.ID, named[0].ID)

	none, err := fs.FindChildren(ctx, s, s.RootID(), "gone")
	require.NoError(t, err)
	assert.Len(t, none, 0)
}

func TestFailNext(t *testing.T) {
	ctx := context.Background()
	s := New()
	errBoom := fserrors.RetryError(errors.New("boom"))

	s.FailNext(OpCreateFolder, errBoom, false)
	_, err := s.CreateFolder(ctx, s.RootID(), "x")
	assert.Equal(t, errBoom, err)
	assert.Len(t, s.Children(s.RootID()), 0)

	s.FailNext(OpCreateFolder, errBoom, true)
	_, err = s.CreateFolder(ctx, s.RootID(), "x")
	assert.Equal(t, errBoom, err)
	assert.Len(t, s.Children(s.RootID()), 1)

	o, err := s.CreateFolder(ctx, s.RootID(), "y")
	require.NoError(t, err)
	assert.Equal(t, "y", o.Name)
	assert.Equal(t, 3, s.Calls(OpCreateFolder))
}

func TestCopyAndComments(t *testing.T) {
	ctx := context.Background()
	s := New()
	modTime := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	src := s.AddFile(s.RootID(), "doc", 10, modTime)
	s.AddComment(src.ID, &fs.Comment{Author: "Ann", Content: "hi", Replies: []*fs.Reply{{Author: "Bob", Content: "yo"}}})

	dst, err := s.Copy(ctx, src.ID, s.RootID(), "doc")
	require.NoError(t, err)
	assert.NotEqual(t, src.ID, dst.ID)
	assert.Equal(t, int64(10), dst.Size)
	assert.Len(t, s.Comments(dst.ID), 0)

	_, err = s.InsertComment(ctx, dst.ID, &fs.Comment{Content: "x", Replies: []*fs.Reply{{Content: "y"}}})
	assert.True(t, fserrors.IsNoRetryError(err))

	c, err := s.InsertComment(ctx, dst.ID, &fs.Comment{Content: "Ann: hi", Anchor: "a1"})
	require.NoError(t, err)
	_, err = s.InsertReply(ctx, dst.ID, c.ID, &fs.Reply{Content: "Bob: yo", Verb: "resolve"})
	require.NoError(t, err)

	comments := s.Comments(dst.ID)
	require.Len(t, comments, 1)
	assert.Equal(t, "Ann: hi", comments[0].Content)
	assert.Equal(t, "a1", comments[0].Anchor)
	require.Len(t, comments[0].Replies, 1)
	assert.Equal(t, "resolve", comments[0].Replies[0].Verb)

	o, err := s.SetModTime(ctx, dst.ID, modTime)
	require.NoError(t, err)
	assert.Equal(t, modTime, o.ModTime)
}

func TestAuth(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := NewAuth(s)
	errNope := errors.New("nope")
	a.FailNext(errNope)
	_, err := a.Authenticate(ctx)
	assert.Equal(t, errNope, err)
	got, err := a.Authenticate(ctx)
	require.NoError(t, err)
	assert.Equal(t, s, got)
	assert.Equal(t, 2, a.Count())
}
