package operations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rclone/drivedup/fs"
	"github.com/rclone/drivedup/fs/fspath"
	"github.com/rclone/drivedup/lib/dircache"
)

// folderCacher implements dircache.DirCacher on an fs.Store
// remembering the folders it sees so the leaf can be returned without
// another read.
type folderCacher struct {
	store   fs.Store
	folders map[string]*fs.Object
}

// FindLeaf finds the unique folder called leaf in pathID
func (fc *folderCacher) FindLeaf(ctx context.Context, pathID, leaf string) (pathIDOut string, found bool, err error) {
	matches, err := fs.FindChildren(ctx, fc.store, pathID, leaf)
	if err != nil {
		return "", false, err
	}
	switch len(matches) {
	case 0:
		return "", false, nil
	case 1:
	default:
		return "", false, fs.ErrorAmbiguousPath
	}
	o := matches[0]
	if !o.IsDir() {
		return "", false, errors.Wrapf(fs.ErrorInvalidDestination, "%q is a %s", leaf, o.Kind)
	}
	fc.folders[o.ID] = o
	return o.ID, true, nil
}

// CreateDir makes the folder leaf in pathID
func (fc *folderCacher) CreateDir(ctx context.Context, pathID, leaf string) (newID string, err error) {
	o, err := fc.store.CreateFolder(ctx, pathID, leaf)
	if err != nil {
		return "", err
	}
	fs.Infof(o, "Made destination folder")
	fc.folders[o.ID] = o
	return o.ID, nil
}

// findFolder looks up path creating it if create is set
func findFolder(ctx context.Context, s fs.Store, path fspath.Path, create bool) (*fs.Object, error) {
	if path.IsRoot() {
		return s.Get(ctx, s.RootID())
	}
	if err := path.CheckDestination(); err != nil {
		return nil, fs.NewPathError("mkdir", path, 0, "", errors.WithMessage(fs.ErrorInvalidDestination, err.Error()))
	}
	fc := &folderCacher{
		store:   s,
		folders: make(map[string]*fs.Object),
	}
	id, err := dircache.New(s.RootID(), fc).FindDir(ctx, path, create)
	if err != nil {
		return nil, err
	}
	return fc.folders[id], nil
}

// EnsurePath finds the folder at path making it and any missing
// parents if necessary, like mkdir -p.
//
// An existing segment which isn't unique gives an error wrapping
// fs.ErrorAmbiguousPath and an existing segment which isn't a folder
// gives fs.ErrorInvalidDestination.
func EnsurePath(ctx context.Context, s fs.Store, path fspath.Path) (*fs.Object, error) {
	return findFolder(ctx, s, path, true)
}

// FindPath finds the folder at path without creating anything. It
// returns an error wrapping fs.ErrorPathNotFound if a segment is
// missing.
func FindPath(ctx context.Context, s fs.Store, path fspath.Path) (*fs.Object, error) {
	return findFolder(ctx, s, path, false)
}
