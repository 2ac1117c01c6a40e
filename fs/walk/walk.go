// Package walk reads folder hierarchies out of the store into trees
package walk

import (
	"context"

	cache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/rclone/drivedup/fs"
	"github.com/rclone/drivedup/fs/fspath"
	"github.com/rclone/drivedup/fs/resolve"
	"github.com/rclone/drivedup/fs/tree"
)

// Collector reads trees from the store
//
// Folders reachable through more than one parent are only listed
// once - the snapshot is shared by every place they appear.
type Collector struct {
	store    fs.Store
	resolver *resolve.Resolver
	folders  *cache.Cache
	skipped  int
}

// New makes a Collector reading from store
func New(store fs.Store) *Collector {
	return &Collector{
		store:    store,
		resolver: resolve.New(store),
		folders:  cache.New(cache.NoExpiration, -1),
	}
}

// Skipped returns the number of entries left out of trees because
// their name was already used in the same folder
func (c *Collector) Skipped() int {
	return c.skipped
}

// Collect resolves path and reads everything below it.
//
// The returned tree has a single entry keyed by the path, except for
// the rootless path "." which gives a tree.RootlessName entry holding
// every object without a parent as well as the fixed root keyed by
// tree.RootName.
func (c *Collector) Collect(ctx context.Context, path fspath.Path) (*tree.Tree, error) {
	res, err := c.resolver.Resolve(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve %q", path.String())
	}
	if err = res.Err(); err != nil {
		return nil, err
	}
	top := tree.New(nil)
	key := path.String()

	if res.Kind == resolve.Rootless {
		rootless, err := c.collectRootless(ctx)
		if err != nil {
			return nil, err
		}
		_ = top.AddDir(tree.RootlessName, rootless)
		root, err := c.store.Get(ctx, c.store.RootID())
		if err != nil {
			return nil, errors.Wrap(err, "failed to read root")
		}
		res.Object = root
		key = tree.RootName
	}

	if !res.Object.IsDir() {
		_ = top.AddFile(key, res.Object)
		return top, nil
	}

	sub, err := c.Expand(ctx, res.Object)
	if err != nil {
		return nil, err
	}
	_ = top.AddDir(key, sub)
	return top, nil
}

// collectRootless reads every object without a parent into a
// synthetic tree
func (c *Collector) collectRootless(ctx context.Context) (*tree.Tree, error) {
	orphans, err := fs.ListAll(ctx, c.store, fs.Query{Orphans: true})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list objects without parents")
	}
	rootless := tree.New(nil)
	for _, o := range orphans {
		if o.IsDir() {
			sub, err := c.Expand(ctx, o)
			if err != nil {
				return nil, err
			}
			c.add(rootless, rootless.AddDir(o.Name, sub), o)
		} else {
			c.add(rootless, rootless.AddFile(o.Name, o), o)
		}
	}
	return rootless, nil
}

// add logs and counts a failure to add o to t
func (c *Collector) add(t *tree.Tree, err error, o *fs.Object) {
	if err == nil {
		return
	}
	c.skipped++
	fs.Errorf(o, "Skipping %s %s in %v: %v", o.Kind, o.ID, t.Self, err)
}

// Expand reads folder and everything below it into a tree.
//
// Files are listed before folders. It returns an error wrapping
// fs.ErrorCycleDetected if folder is its own ancestor.
func (c *Collector) Expand(ctx context.Context, folder *fs.Object) (*tree.Tree, error) {
	return c.expand(ctx, folder, make(map[string]struct{}))
}

func (c *Collector) expand(ctx context.Context, folder *fs.Object, ancestors map[string]struct{}) (*tree.Tree, error) {
	if _, found := ancestors[folder.ID]; found {
		return nil, errors.Wrapf(fs.ErrorCycleDetected, "%q (%s) contains itself", folder.Name, folder.ID)
	}
	if cached, found := c.folders.Get(folder.ID); found {
		fs.Debugf(folder, "Reusing listing of %s", folder.ID)
		return cached.(*tree.Tree), nil
	}
	ancestors[folder.ID] = struct{}{}
	defer delete(ancestors, folder.ID)

	t := tree.New(folder)
	files, err := fs.ListAll(ctx, c.store, fs.Query{ParentID: folder.ID, FilesOnly: true})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list files in %q", folder.Name)
	}
	for _, o := range files {
		c.add(t, t.AddFile(o.Name, o), o)
	}

	dirs, err := fs.ListAll(ctx, c.store, fs.Query{ParentID: folder.ID, FoldersOnly: true})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list folders in %q", folder.Name)
	}
	for _, dir := range dirs {
		sub, err := c.expand(ctx, dir, ancestors)
		if err != nil {
			return nil, err
		}
		c.add(t, t.AddDir(dir.Name, sub), dir)
	}
	fs.Debugf(folder, "Listed %d files and %d folders", len(files), len(dirs))

	c.folders.Set(folder.ID, t, cache.NoExpiration)
	return t, nil
}
