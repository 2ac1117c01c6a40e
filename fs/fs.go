// Package fs holds the object model of a remote drive and the
// interface the rest of drivedup uses to talk to it
package fs

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Kind describes whether an Object is a file or a folder
type Kind int

// Object kinds
const (
	File Kind = iota
	Folder
)

// String turns a Kind into a string
func (k Kind) String() string {
	switch k {
	case File:
		return "file"
	case Folder:
		return "folder"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// SizeUnknown is the Size of an Object which doesn't declare one,
// for example a native document or a folder
const SizeUnknown = -1

// Object is a snapshot of a file or folder in the remote store
//
// Objects are never mutated once returned from a Store - updating
// the remote returns a new Object.
type Object struct {
	ID          string    // opaque id, stable for the lifetime of the object
	Name        string    // display name - not unique within a parent
	Kind        Kind      // file or folder
	MimeType    string    // MIME type as reported by the store
	Parents     []string  // ids of the parents - empty for rootless objects
	ModTime     time.Time // last modification time
	CreatedTime time.Time // time the object was created
	Size        int64     // size in bytes or SizeUnknown
}

// String returns the name for logging
func (o *Object) String() string {
	if o == nil {
		return "<nil>"
	}
	return o.Name
}

// IsDir returns true if the object is a folder
func (o *Object) IsDir() bool {
	return o.Kind == Folder
}

// IsRootless returns true if the object has no parents, e.g. items
// which have been shared with the user
func (o *Object) IsRootless() bool {
	return len(o.Parents) == 0
}

// HasParent returns true if id is one of the parents of o
func (o *Object) HasParent(id string) bool {
	for _, parent := range o.Parents {
		if parent == id {
			return true
		}
	}
	return false
}

// Comment is a discussion thread attached to a file
type Comment struct {
	ID            string   // id assigned by the store
	Author        string   // display name of the author
	Content       string   // plain text body
	Anchor        string   // position the comment refers to
	QuotedContent string   // file content the comment quotes, if any
	Replies       []*Reply // replies in order
}

// Reply is an entry in a Comment thread
type Reply struct {
	ID      string // id assigned by the store
	Author  string // display name of the author - may be blank
	Content string // plain text body
	Verb    string // optional action, e.g. "resolve" or "reopen"
}

// Query selects objects from the store. Trashed objects are never
// returned.
type Query struct {
	Name        string // match this name exactly if set
	ParentID    string // only children of this id if set
	FoldersOnly bool   // only return folders
	FilesOnly   bool   // only return non folders
	Orphans     bool   // only return objects without parents
}

// Store is the interface to the remote drive.
//
// List and ListComments are paged - pass the returned next token in
// to get the following page, a blank next token means the listing is
// complete.
type Store interface {
	// RootID returns the id of the fixed root folder
	RootID() string

	// List returns one page of objects matching q
	List(ctx context.Context, q Query, pageToken string) (objects []*Object, next string, err error)

	// Get reads the object with the id given
	Get(ctx context.Context, id string) (*Object, error)

	// CreateFolder makes a new folder called name in parentID
	CreateFolder(ctx context.Context, parentID, name string) (*Object, error)

	// Copy duplicates srcID into dstParentID calling it name
	Copy(ctx context.Context, srcID, dstParentID, name string) (*Object, error)

	// SetModTime sets the modification time of id
	SetModTime(ctx context.Context, id string, modTime time.Time) (*Object, error)

	// ListComments returns one page of the comments on id
	ListComments(ctx context.Context, id string, pageToken string) (comments []*Comment, next string, err error)

	// InsertComment adds a comment without replies to id
	InsertComment(ctx context.Context, id string, comment *Comment) (*Comment, error)

	// InsertReply adds a reply to commentID on id
	InsertReply(ctx context.Context, id, commentID string, reply *Reply) (*Reply, error)
}

// Authenticator makes authenticated connections to the store.
//
// Authenticate may be called more than once - each call should
// produce a freshly authenticated Store.
type Authenticator interface {
	Authenticate(ctx context.Context) (Store, error)
}

// CheckClose is a utility function used to check the return from
// Close in a defer statement.
func CheckClose(c io.Closer, err *error) {
	cerr := c.Close()
	if *err == nil {
		*err = cerr
	}
}
