// Package resolve maps slash separated paths onto objects in the
// store
package resolve

import (
	"context"

	"github.com/rclone/drivedup/fs"
	"github.com/rclone/drivedup/fs/fspath"
)

// Kind is the outcome of a resolution
type Kind int

// Resolution outcomes
const (
	Resolved  Kind = iota // Object holds the object found
	Rootless              // the path asked for every object without a parent
	NotFound              // a segment had no match
	Ambiguous             // a segment had more than one match
)

// String turns a Kind into a string
func (k Kind) String() string {
	switch k {
	case Resolved:
		return "resolved"
	case Rootless:
		return "rootless"
	case NotFound:
		return "not found"
	case Ambiguous:
		return "ambiguous"
	}
	return "unknown"
}

// Result is what Resolve found
type Result struct {
	Kind    Kind
	Path    fspath.Path
	Object  *fs.Object // the object for Resolved, the deepest object found for NotFound
	Depth   int        // number of segments resolved
	Segment string     // the offending segment for NotFound and Ambiguous
}

// Err returns nil for Resolved and Rootless results, otherwise a
// *fs.PathError wrapping fs.ErrorPathNotFound or fs.ErrorAmbiguousPath
func (r *Result) Err() error {
	switch r.Kind {
	case NotFound:
		return fs.NewPathError("resolve", r.Path, r.Depth, r.Segment, fs.ErrorPathNotFound)
	case Ambiguous:
		return fs.NewPathError("resolve", r.Path, r.Depth, r.Segment, fs.ErrorAmbiguousPath)
	}
	return nil
}

// Resolver looks up paths in a store
type Resolver struct {
	store fs.Store
}

// New makes a Resolver for store
func New(store fs.Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve walks path from the fixed root.
//
// The first segment is looked for under the fixed root and, if it
// isn't there, amongst the objects with no parents. Each following
// segment must be a uniquely named child of the one before.
//
// The error return is reserved for failures talking to the store -
// paths which can't be resolved are described by the Result.
func (r *Resolver) Resolve(ctx context.Context, path fspath.Path) (*Result, error) {
	res := &Result{Path: path}
	switch {
	case len(path) == 0:
		res.Kind = NotFound
		return res, nil
	case path.IsRootless():
		res.Kind = Rootless
		return res, nil
	}
	rootID := r.store.RootID()
	if rootID == "" {
		return nil, fs.ErrorNotAuthenticated
	}
	if path.IsRoot() {
		root, err := r.store.Get(ctx, rootID)
		if err != nil {
			return nil, err
		}
		res.Kind = Resolved
		res.Object = root
		return res, nil
	}

	first, err := r.resolveFirst(ctx, res, rootID)
	if err != nil || first == nil {
		return res, err
	}
	res.Object = first
	res.Depth = 1

	for _, segment := range path[1:] {
		matches, err := fs.FindChildren(ctx, r.store, res.Object.ID, segment)
		if err != nil {
			return nil, err
		}
		switch len(matches) {
		case 0:
			res.Kind = NotFound
			res.Segment = segment
			fs.Debugf(res.Object, "%q not found after %d segments", segment, res.Depth)
			return res, nil
		case 1:
			res.Object = matches[0]
			res.Depth++
		default:
			res.Kind = Ambiguous
			res.Segment = segment
			return res, nil
		}
	}
	res.Kind = Resolved
	return res, nil
}

// resolveFirst finds the first segment of res.Path, filling in res
// and returning nil if it couldn't be found uniquely
func (r *Resolver) resolveFirst(ctx context.Context, res *Result, rootID string) (*fs.Object, error) {
	segment := res.Path[0]
	matches, err := fs.FindChildren(ctx, r.store, rootID, segment)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		fs.Debugf(nil, "%q not in the root, looking for objects without parents", segment)
		matches, err = fs.FindOrphans(ctx, r.store, segment)
		if err != nil {
			return nil, err
		}
	}
	switch len(matches) {
	case 0:
		res.Kind = NotFound
	case 1:
		return matches[0], nil
	default:
		res.Kind = Ambiguous
	}
	res.Segment = segment
	return nil, nil
}
