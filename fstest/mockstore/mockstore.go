// Package mockstore provides an in memory fs.Store useful for testing
package mockstore

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rclone/drivedup/fs"
	"github.com/rclone/drivedup/fs/fserrors"
)

// Names of the Store operations for Calls and FailNext
const (
	OpList          = "List"
	OpGet           = "Get"
	OpCreateFolder  = "CreateFolder"
	OpCopy          = "Copy"
	OpSetModTime    = "SetModTime"
	OpListComments  = "ListComments"
	OpInsertComment = "InsertComment"
	OpInsertReply   = "InsertReply"
)

// FolderMimeType is the MIME type given to folders
const FolderMimeType = "application/vnd.google-apps.folder"

// User is the author of comments and replies inserted through the
// Store
const User = "drivedup"

// failure is a queued error for an operation
type failure struct {
	err   error
	apply bool // do the operation before returning err
}

// Store is an in memory fs.Store
//
// Objects are listed in the order they were created.
type Store struct {
	mu       sync.Mutex
	rootID   string
	order    []string
	objects  map[string]*fs.Object
	trashed  map[string]bool
	comments map[string][]*fs.Comment
	failures map[string][]failure
	calls    map[string]int

	// PageSize limits the number of items returned per page - 0
	// for no limit
	PageSize int

	// Now returns the time used for created objects
	Now func() time.Time
}

// Check interface
var _ fs.Store = (*Store)(nil)

// New makes an empty Store with just the fixed root
func New() *Store {
	s := &Store{
		objects:  make(map[string]*fs.Object),
		trashed:  make(map[string]bool),
		comments: make(map[string][]*fs.Comment),
		failures: make(map[string][]failure),
		calls:    make(map[string]int),
		Now:      time.Now,
	}
	root := s.add(&fs.Object{Name: "My Drive", Kind: fs.Folder})
	s.rootID = root.ID
	return s
}

// add o to the store giving it an ID
//
// Call with mu held or before the Store is shared
func (s *Store) add(o *fs.Object) *fs.Object {
	o.ID = uuid.New().String()
	if o.Kind == fs.Folder {
		o.MimeType = FolderMimeType
		o.Size = fs.SizeUnknown
	}
	if o.CreatedTime.IsZero() {
		o.CreatedTime = s.Now()
	}
	if o.ModTime.IsZero() {
		o.ModTime = o.CreatedTime
	}
	s.objects[o.ID] = o
	s.order = append(s.order, o.ID)
	return o
}

// snapshot returns a copy of o safe to hand out
func snapshot(o *fs.Object) *fs.Object {
	c := *o
	c.Parents = append([]string(nil), o.Parents...)
	return &c
}

// AddFolder makes a folder in parentID - use "" for a parentless folder
func (s *Store) AddFolder(parentID, name string) *fs.Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(s.add(&fs.Object{Name: name, Kind: fs.Folder, Parents: parents(parentID)}))
}

// AddFile makes a file in parentID - use "" for a parentless file and
// fs.SizeUnknown for a native document
func (s *Store) AddFile(parentID, name string, size int64, modTime time.Time) *fs.Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	mimeType := "application/octet-stream"
	if size < 0 {
		mimeType = "application/vnd.google-apps.document"
	}
	return snapshot(s.add(&fs.Object{Name: name, Kind: fs.File, MimeType: mimeType, Parents: parents(parentID), Size: size, ModTime: modTime}))
}

// AddParent adds parentID to the parents of id
func (s *Store) AddParent(id, parentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.objects[id]
	o.Parents = append(o.Parents, parentID)
}

// Trash marks id as trashed so it is no longer listed
func (s *Store) Trash(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trashed[id] = true
}

// AddComment attaches a comment with replies to id as if made by
// its author
func (s *Store) AddComment(id string, comment *fs.Comment) *fs.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := copyComment(comment)
	c.ID = uuid.New().String()
	for _, r := range c.Replies {
		r.ID = uuid.New().String()
	}
	s.comments[id] = append(s.comments[id], c)
	return copyComment(c)
}

// Comments returns a copy of the comments on id
func (s *Store) Comments(id string) (comments []*fs.Comment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.comments[id] {
		comments = append(comments, copyComment(c))
	}
	return comments
}

// Children returns the untrashed children of parentID in creation order
func (s *Store) Children(parentID string) (children []*fs.Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		o := s.objects[id]
		if !s.trashed[id] && o.HasParent(parentID) {
			children = append(children, snapshot(o))
		}
	}
	return children
}

// Len returns the number of objects in the store including the root
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// FailNext makes the next call of op return err. If apply is set the
// operation is carried out before err is returned, as if the reply
// was lost on the way back. Calls queue up and a nil err lets that
// call through.
func (s *Store) FailNext(op string, err error, apply bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = append(s.failures[op], failure{err: err, apply: apply})
}

// Calls returns the number of times op was called
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// begin counts a call to op and pops any queued failure
//
// Call with mu held
func (s *Store) begin(op string) (f failure, failed bool) {
	s.calls[op]++
	queue := s.failures[op]
	if len(queue) == 0 {
		return f, false
	}
	s.failures[op] = queue[1:]
	f = queue[0]
	return f, f.err != nil
}

// RootID returns the id of the fixed root folder
func (s *Store) RootID() string {
	return s.rootID
}

func parents(parentID string) []string {
	if parentID == "" {
		return nil
	}
	return []string{parentID}
}

func errNotFound(id string) error {
	return fserrors.NoRetryError(errors.Errorf("object %q not found", id))
}

// page returns the slice of n items starting at pageToken and the
// token for the next page
func (s *Store) page(n int, pageToken string) (start, end int, next string, err error) {
	if pageToken != "" {
		start, err = strconv.Atoi(pageToken)
		if err != nil || start < 0 || start > n {
			return 0, 0, "", fserrors.NoRetryError(errors.Errorf("bad page token %q", pageToken))
		}
	}
	end = n
	if s.PageSize > 0 && start+s.PageSize < n {
		end = start + s.PageSize
		next = strconv.Itoa(end)
	}
	return start, end, next, nil
}

func (s *Store) matches(o *fs.Object, q fs.Query) bool {
	switch {
	case s.trashed[o.ID]:
		return false
	case o.ID == s.rootID:
		return false
	case q.Name != "" && o.Name != q.Name:
		return false
	case q.ParentID != "" && !o.HasParent(q.ParentID):
		return false
	case q.FoldersOnly && !o.IsDir():
		return false
	case q.FilesOnly && o.IsDir():
		return false
	case q.Orphans && !o.IsRootless():
		return false
	}
	return true
}

// List returns one page of objects matching q
func (s *Store) List(ctx context.Context, q fs.Query, pageToken string) (objects []*fs.Object, next string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, failed := s.begin(OpList); failed {
		return nil, "", f.err
	}
	var found []*fs.Object
	for _, id := range s.order {
		if o := s.objects[id]; s.matches(o, q) {
			found = append(found, o)
		}
	}
	start, end, next, err := s.page(len(found), pageToken)
	if err != nil {
		return nil, "", err
	}
	for _, o := range found[start:end] {
		objects = append(objects, snapshot(o))
	}
	return objects, next, nil
}

// Get reads the object with the id given
func (s *Store) Get(ctx context.Context, id string) (*fs.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, failed := s.begin(OpGet); failed {
		return nil, f.err
	}
	o, ok := s.objects[id]
	if !ok {
		return nil, errNotFound(id)
	}
	return snapshot(o), nil
}

// CreateFolder makes a new folder called name in parentID
func (s *Store) CreateFolder(ctx context.Context, parentID, name string) (*fs.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, failed := s.begin(OpCreateFolder)
	if failed && !f.apply {
		return nil, f.err
	}
	if _, ok := s.objects[parentID]; !ok {
		return nil, errNotFound(parentID)
	}
	o := s.add(&fs.Object{Name: name, Kind: fs.Folder, Parents: parents(parentID)})
	if failed {
		return nil, f.err
	}
	return snapshot(o), nil
}

// Copy duplicates srcID into dstParentID calling it name
func (s *Store) Copy(ctx context.Context, srcID, dstParentID, name string) (*fs.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, failed := s.begin(OpCopy)
	if failed && !f.apply {
		return nil, f.err
	}
	src, ok := s.objects[srcID]
	if !ok {
		return nil, errNotFound(srcID)
	}
	if src.IsDir() {
		return nil, fserrors.NoRetryError(errors.Errorf("can't copy folder %q", srcID))
	}
	if _, ok := s.objects[dstParentID]; !ok {
		return nil, errNotFound(dstParentID)
	}
	o := s.add(&fs.Object{
		Name:     name,
		Kind:     fs.File,
		MimeType: src.MimeType,
		Parents:  parents(dstParentID),
		Size:     src.Size,
	})
	if failed {
		return nil, f.err
	}
	return snapshot(o), nil
}

// SetModTime sets the modification time of id
func (s *Store) SetModTime(ctx context.Context, id string, modTime time.Time) (*fs.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, failed := s.begin(OpSetModTime)
	if failed && !f.apply {
		return nil, f.err
	}
	o, ok := s.objects[id]
	if !ok {
		return nil, errNotFound(id)
	}
	o.ModTime = modTime
	if failed {
		return nil, f.err
	}
	return snapshot(o), nil
}

// ListComments returns one page of the comments on id
func (s *Store) ListComments(ctx context.Context, id string, pageToken string) (comments []*fs.Comment, next string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, failed := s.begin(OpListComments); failed {
		return nil, "", f.err
	}
	if _, ok := s.objects[id]; !ok {
		return nil, "", errNotFound(id)
	}
	all := s.comments[id]
	start, end, next, err := s.page(len(all), pageToken)
	if err != nil {
		return nil, "", err
	}
	for _, c := range all[start:end] {
		comments = append(comments, copyComment(c))
	}
	return comments, next, nil
}

// InsertComment adds a comment without replies to id
func (s *Store) InsertComment(ctx context.Context, id string, comment *fs.Comment) (*fs.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, failed := s.begin(OpInsertComment)
	if failed && !f.apply {
		return nil, f.err
	}
	if _, ok := s.objects[id]; !ok {
		return nil, errNotFound(id)
	}
	if len(comment.Replies) != 0 {
		return nil, fserrors.NoRetryError(errors.New("comment must not have replies"))
	}
	c := &fs.Comment{
		ID:            uuid.New().String(),
		Author:        User,
		Content:       comment.Content,
		Anchor:        comment.Anchor,
		QuotedContent: comment.QuotedContent,
	}
	s.comments[id] = append(s.comments[id], c)
	if failed {
		return nil, f.err
	}
	return copyComment(c), nil
}

// InsertReply adds a reply to commentID on id
func (s *Store) InsertReply(ctx context.Context, id, commentID string, reply *fs.Reply) (*fs.Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, failed := s.begin(OpInsertReply)
	if failed && !f.apply {
		return nil, f.err
	}
	var comment *fs.Comment
	for _, c := range s.comments[id] {
		if c.ID == commentID {
			comment = c
		}
	}
	if comment == nil {
		return nil, errNotFound(commentID)
	}
	r := &fs.Reply{
		ID:      uuid.New().String(),
		Author:  User,
		Content: reply.Content,
		Verb:    reply.Verb,
	}
	comment.Replies = append(comment.Replies, r)
	if failed {
		return nil, f.err
	}
	rCopy := *r
	return &rCopy, nil
}

func copyComment(c *fs.Comment) *fs.Comment {
	out := *c
	out.Replies = nil
	for _, r := range c.Replies {
		rCopy := *r
		out.Replies = append(out.Replies, &rCopy)
	}
	return &out
}

// Auth is an fs.Authenticator handing out the Store
type Auth struct {
	mu    sync.Mutex
	store *Store
	count int
	errs  []error
}

// Check interface
var _ fs.Authenticator = (*Auth)(nil)

// NewAuth makes an Auth for s
func NewAuth(s *Store) *Auth {
	return &Auth{store: s}
}

// FailNext makes the next Authenticate return err
func (a *Auth) FailNext(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.errs = append(a.errs, err)
}

// Count returns the number of times Authenticate was called
func (a *Auth) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}

// Authenticate returns the Store
func (a *Auth) Authenticate(ctx context.Context) (fs.Store, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.count++
	if len(a.errs) > 0 {
		err := a.errs[0]
		a.errs = a.errs[1:]
		return nil, err
	}
	return a.store, nil
}
