// Package tree holds the in memory snapshot of a folder hierarchy
// read from the store
package tree

import (
	"github.com/pkg/errors"
	"github.com/rclone/drivedup/fs"
)

// Reserved entry names at the top of a collected tree
const (
	// RootlessName holds every object without a parent
	RootlessName = "__rootless__"
	// RootName holds the fixed root when collecting the rootless
	// path. It is summarised but never copied.
	RootName = "."
)

// Entry is a named child of a Tree - exactly one of Tree or Object is
// set
type Entry struct {
	Name   string
	Tree   *Tree      // set for folders
	Object *fs.Object // set for files
}

// IsDir returns true if the entry is a folder
func (e *Entry) IsDir() bool {
	return e.Tree != nil
}

// Tree is a snapshot of a folder. Entries are kept in the order they
// were added and names are unique within one Tree.
type Tree struct {
	Self    *fs.Object // the folder's own object - nil for synthetic nodes
	entries []*Entry
	index   map[string]*Entry
}

// New makes an empty Tree for the folder self
func New(self *fs.Object) *Tree {
	return &Tree{
		Self:  self,
		index: make(map[string]*Entry),
	}
}

// add e to the tree
func (t *Tree) add(e *Entry) error {
	if _, found := t.index[e.Name]; found {
		return errors.Wrapf(fs.ErrorDuplicateName, "%q", e.Name)
	}
	t.index[e.Name] = e
	t.entries = append(t.entries, e)
	return nil
}

// AddFile adds o as a file called name
func (t *Tree) AddFile(name string, o *fs.Object) error {
	return t.add(&Entry{Name: name, Object: o})
}

// AddDir adds sub as a folder called name
func (t *Tree) AddDir(name string, sub *Tree) error {
	return t.add(&Entry{Name: name, Tree: sub})
}

// Entries returns the children in the order they were added
func (t *Tree) Entries() []*Entry {
	return t.entries
}

// Get returns the entry called name or nil
func (t *Tree) Get(name string) *Entry {
	return t.index[name]
}

// Without returns a copy of t with the entry called name left out.
// The entries themselves are shared.
func (t *Tree) Without(name string) *Tree {
	out := New(t.Self)
	for _, e := range t.entries {
		if e.Name != name {
			_ = out.add(e)
		}
	}
	return out
}

// Len returns the number of children
func (t *Tree) Len() int {
	return len(t.entries)
}

// Summary holds the totals of a Tree
type Summary struct {
	Files   int64 // number of files
	Bytes   int64 // sum of the known sizes
	Unknown int64 // number of files without a declared size
}

// Add other into s
func (s *Summary) Add(other Summary) {
	s.Files += other.Files
	s.Bytes += other.Bytes
	s.Unknown += other.Unknown
}

// Summarize counts the files in t recursively. The Self objects of
// folders aren't counted.
func Summarize(t *Tree) (s Summary) {
	for _, e := range t.entries {
		if e.IsDir() {
			s.Add(Summarize(e.Tree))
			continue
		}
		s.Files++
		if e.Object.Size < 0 {
			s.Unknown++
		} else {
			s.Bytes += e.Object.Size
		}
	}
	return s
}

// WalkFunc is called for every file found by Walk with its path
// relative to the Tree
type WalkFunc func(path string, o *fs.Object) error

// Walk calls fn for every file in t depth first in entry order.
//
// If fn returns an error the walk stops and returns it.
func Walk(t *Tree, fn WalkFunc) error {
	return walk(t, "", fn)
}

func walk(t *Tree, prefix string, fn WalkFunc) error {
	for _, e := range t.entries {
		path := prefix + "/" + e.Name
		var err error
		if e.IsDir() {
			err = walk(e.Tree, path, fn)
		} else {
			err = fn(path, e.Object)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
