// Package operations does the copying of trees onto the store
package operations

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/rclone/drivedup/fs"
	"github.com/rclone/drivedup/fs/accounting"
	"github.com/rclone/drivedup/fs/fserrors"
	"github.com/rclone/drivedup/fs/tree"
)

// CopyOpt configures a Copier
type CopyOpt struct {
	Progress           io.Writer // a line per file copied, os.Stdout if nil
	ErrorLog           io.Writer // a line per comment copy failure, os.Stderr if nil
	AbortOnFolderError bool      // stop the run if a folder can't be made
}

// Copier replicates trees onto a destination folder
type Copier struct {
	store fs.Store
	opt   CopyOpt
	stats *accounting.StatsInfo
}

// NewCopier makes a Copier writing to store
func NewCopier(store fs.Store, opt CopyOpt, stats *accounting.StatsInfo) *Copier {
	if opt.Progress == nil {
		opt.Progress = os.Stdout
	}
	if opt.ErrorLog == nil {
		opt.ErrorLog = os.Stderr
	}
	if stats == nil {
		stats = accounting.NewStats()
	}
	return &Copier{
		store: store,
		opt:   opt,
		stats: stats,
	}
}

// Stats returns the statistics of the copies made
func (c *Copier) Stats() *accounting.StatsInfo {
	return c.stats
}

// Replicate copies everything in t into dst.
//
// Folders are made anew and named after the source folder, files are
// copied with their modification time and comments. Failures are
// logged and counted and the copy carries on with the next entry, so
// if anything failed an error wrapping fs.ErrorCopyIncomplete is
// returned at the end.
//
// The fixed root kept under tree.RootName for the summary of the
// rootless path is skipped.
func (c *Copier) Replicate(ctx context.Context, dst *fs.Object, t *tree.Tree) error {
	if t.Get(tree.RootName) != nil {
		fs.Debugf(nil, "Not copying the root folder collected with the rootless path")
		t = t.Without(tree.RootName)
	}
	err := c.replicate(ctx, dst, t)
	if err != nil {
		return err
	}
	if c.stats.HadErrors() {
		return errors.Wrapf(fs.ErrorCopyIncomplete, "%d files or folders and %d comments or replies failed", c.stats.GetErrors(), c.stats.GetCommentErrors())
	}
	return nil
}

func (c *Copier) replicate(ctx context.Context, dst *fs.Object, t *tree.Tree) error {
	for _, e := range t.Entries() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !e.IsDir() {
			_, err := c.CopyFile(ctx, dst, e.Object)
			if fserrors.IsFatalError(err) {
				return err
			}
			continue
		}
		name := e.Name
		if e.Tree.Self != nil {
			name = e.Tree.Self.Name
		}
		newDir, err := c.Mkdir(ctx, dst, name)
		if err != nil {
			if c.opt.AbortOnFolderError || fserrors.IsFatalError(err) {
				return fserrors.FatalError(err)
			}
			fs.Errorf(e.Tree.Self, "Not copying folder contents: %v", err)
			continue
		}
		if err := c.replicate(ctx, newDir, e.Tree); err != nil {
			return err
		}
	}
	return nil
}

// Mkdir makes a new folder called name in dst
func (c *Copier) Mkdir(ctx context.Context, dst *fs.Object, name string) (*fs.Object, error) {
	newDir, err := c.store.CreateFolder(ctx, dst.ID, name)
	if err != nil {
		err = errors.Wrapf(err, "failed to make folder %q in %q", name, dst.Name)
		fs.Errorf(dst, "%v", err)
		c.stats.Error(err)
		return nil, err
	}
	fs.Infof(newDir, "Made folder %s", newDir.ID)
	c.stats.Folder()
	return newDir, nil
}

// CopyFile copies src into the folder dst, sets the modification
// time of the copy to that of src and copies the comments across.
//
// Only a failure to make the copy is returned. Failures setting the
// modification time are counted as errors and comment failures are
// written to the error log, neither stop the comments being copied.
func (c *Copier) CopyFile(ctx context.Context, dst *fs.Object, src *fs.Object) (*fs.Object, error) {
	newObj, err := c.store.Copy(ctx, src.ID, dst.ID, src.Name)
	if err != nil {
		err = errors.Wrapf(err, "failed to copy %s", src.ID)
		fs.Errorf(src, "%v", err)
		c.stats.Error(err)
		return nil, err
	}
	fmt.Fprintf(c.opt.Progress, "%s %s => %s\n", src.Name, src.ID, newObj.ID)

	updated, err := c.store.SetModTime(ctx, newObj.ID, src.ModTime)
	if err != nil {
		err = errors.Wrapf(err, "failed to set modification time on %s", newObj.ID)
		fs.Errorf(src, "%v", err)
		c.stats.Error(err)
	} else {
		newObj = updated
	}

	c.copyComments(ctx, src, newObj)
	c.stats.File(src.Size)
	fs.Debugf(src, "Copied to %s", newObj.ID)
	return newObj, nil
}
