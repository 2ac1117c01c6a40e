// Package dircache provides a simple cache for caching directory ID
// to path lookups and vice versa.
package dircache

// _methods are called without the lock

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rclone/drivedup/fs"
)

// DirCache caches paths to directory IDs and vice versa
type DirCache struct {
	cacheMu  sync.RWMutex // protects cache and invCache
	cache    map[string]string
	invCache map[string]string

	mu     sync.Mutex // protects the below
	fs     DirCacher  // Interface to find and make directories
	rootID string     // ID of the root directory
}

// DirCacher describes an interface for doing the low level directory work
//
// This should be implemented by the caller and passed into New.
type DirCacher interface {
	// FindLeaf looks for leaf in pathID. found is false if it
	// isn't there, an error is returned if the leaf isn't unique
	// or isn't a directory.
	FindLeaf(ctx context.Context, pathID, leaf string) (pathIDOut string, found bool, err error)

	// CreateDir makes leaf in pathID returning the new ID
	CreateDir(ctx context.Context, pathID, leaf string) (newID string, err error)
}

// New makes a DirCache
//
// This is created with the rootID passed in which is used as the
// parent of the first segment of every path.
//
// The cache is safe for concurrent use
func New(rootID string, fs DirCacher) *DirCache {
	d := &DirCache{
		rootID: rootID,
		fs:     fs,
	}
	d.Flush()
	return d
}

// key turns path segments into a cache key
func key(segments []string) string {
	return strings.Join(segments, "/")
}

// Get a directory ID given a path
//
// Returns the rootID if the path is empty
func (dc *DirCache) Get(segments []string) (id string, ok bool) {
	if len(segments) == 0 {
		return dc.rootID, true
	}
	dc.cacheMu.RLock()
	id, ok = dc.cache[key(segments)]
	dc.cacheMu.RUnlock()
	return id, ok
}

// GetInv gets a path given a directory ID
func (dc *DirCache) GetInv(id string) (path string, ok bool) {
	dc.cacheMu.RLock()
	path, ok = dc.invCache[id]
	dc.cacheMu.RUnlock()
	return path, ok
}

// Put a (path, directory ID) pair into the cache
func (dc *DirCache) Put(segments []string, id string) {
	dc.cacheMu.Lock()
	dc._put(segments, id)
	dc.cacheMu.Unlock()
}

// _put a (path, directory ID) pair into the cache without lock
func (dc *DirCache) _put(segments []string, id string) {
	path := key(segments)
	dc.cache[path] = id
	dc.invCache[id] = path
}

// Flush the cache of all data
func (dc *DirCache) Flush() {
	dc.cacheMu.Lock()
	dc.cache = make(map[string]string)
	dc.invCache = make(map[string]string)
	dc.cacheMu.Unlock()
}

// RootID returns the ID of the root directory
func (dc *DirCache) RootID() string {
	return dc.rootID
}

// FindDir finds the directory passed in returning the directory ID
// starting from the root.
//
// If create is set it will make the directory if not found.
//
// It returns fs.ErrorPathNotFound wrapped in a *fs.PathError if the
// directory wasn't found and create wasn't set. Errors from the
// DirCacher are wrapped in a *fs.PathError naming the segment being
// worked on when they happened.
//
// Algorithm:
//
//	Look in the cache for the path, if found return the pathID
//	If not found strip the last path off the path and recurse
//	Now have a parent directory id, so look in the parent for self and return it
func (dc *DirCache) FindDir(ctx context.Context, segments []string, create bool) (pathID string, err error) {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc._findDir(ctx, segments, segments, create)
}

// Unlocked findDir
//
// Call with dc.mu held
func (dc *DirCache) _findDir(ctx context.Context, full, segments []string, create bool) (pathID string, err error) {
	pathID, ok := dc.Get(segments)
	if ok {
		return pathID, nil
	}

	// Split the path into directory, leaf
	depth := len(segments) - 1
	directory, leaf := segments[:depth], segments[depth]

	// Recurse and find pathID for parent directory
	parentPathID, err := dc._findDir(ctx, full, directory, create)
	if err != nil {
		return "", err
	}

	// Find the leaf in parentPathID
	pathID, found, err := dc.fs.FindLeaf(ctx, parentPathID, leaf)
	if err != nil {
		return "", dc.pathError(full, depth, leaf, err)
	}

	// If not found create the directory if required or return an error
	if !found {
		if !create {
			return "", fs.NewPathError("find", full, depth, leaf, fs.ErrorPathNotFound)
		}
		pathID, err = dc.fs.CreateDir(ctx, parentPathID, leaf)
		if err != nil {
			return "", dc.pathError(full, depth, leaf, errors.Wrap(err, "failed to make directory"))
		}
	}

	// Store the leaf directory in the cache
	dc.Put(segments, pathID)

	return pathID, nil
}

// pathError annotates err with where it happened unless it already
// is a *fs.PathError
func (dc *DirCache) pathError(full []string, depth int, leaf string, err error) error {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return err
	}
	return fs.NewPathError("mkdir", full, depth, leaf, err)
}
