// Package session owns the authenticated connection to the store and
// retries calls made through it
package session

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rclone/drivedup/fs"
	"github.com/rclone/drivedup/fs/accounting"
	"github.com/rclone/drivedup/fs/fserrors"
	"github.com/rclone/drivedup/lib/pacer"
)

// clockSkew is allowed between our clock and the store's when
// deciding whether an object was made by a call which failed
const clockSkew = 5 * time.Minute

// Session is an fs.Store which authenticates on first use and runs
// every call through a pacer.
//
// Errors are classified with fserrors: auth errors drop the
// connection and re-authenticate before retrying, retriable errors
// are retried after a back off and anything else is returned
// straight away. Calls which make things are checked before being
// retried so a call which succeeded but reported failure isn't done
// twice.
type Session struct {
	auth  fs.Authenticator
	pacer *pacer.Pacer
	stats *accounting.StatsInfo

	mu     sync.Mutex
	store  fs.Store
	rootID string
}

// Check interface
var _ fs.Store = (*Session)(nil)

// New makes a Session which connects with auth.
//
// calculator sets the pacing of the calls, nil for the default.
// Retries are bounded by --low-level-retries.
func New(ctx context.Context, auth fs.Authenticator, calculator pacer.Calculator, stats *accounting.StatsInfo) *Session {
	ci := fs.GetConfig(ctx)
	retries := ci.LowLevelRetries
	if retries <= 0 {
		retries = 1
	}
	if stats == nil {
		stats = accounting.NewStats()
	}
	s := &Session{
		auth:  auth,
		stats: stats,
	}
	s.pacer = pacer.New(
		pacer.InvokerOption(s.invoker),
		pacer.MaxConnectionsOption(1),
		pacer.RetriesOption(retries),
		pacer.CalculatorOption(&logCalculator{Calculator: defaultCalculator(calculator)}),
	)
	return s
}

func defaultCalculator(c pacer.Calculator) pacer.Calculator {
	if c == nil {
		return pacer.NewDefault()
	}
	return c
}

type logCalculator struct {
	pacer.Calculator
}

// Calculate logs changes of the sleep time
func (d *logCalculator) Calculate(state pacer.State) time.Duration {
	oldSleepTime := state.SleepTime
	newSleepTime := d.Calculator.Calculate(state)
	if state.ConsecutiveRetries > 0 {
		if newSleepTime != oldSleepTime {
			fs.Debugf("pacer", "Rate limited, increasing sleep to %v", newSleepTime)
		}
	} else {
		if newSleepTime != oldSleepTime {
			fs.Debugf("pacer", "Reducing sleep to %v", newSleepTime)
		}
	}
	return newSleepTime
}

func (s *Session) invoker(try, retries int, f pacer.Paced) (retry bool, err error) {
	retry, err = f()
	if retry {
		fs.Debugf("pacer", "low level retry %d/%d (error %v)", try, retries, err)
		s.stats.Retry()
		err = fserrors.RetryError(err)
	}
	return retry, err
}

// Connect authenticates if there is no connection yet
func (s *Session) Connect(ctx context.Context) (fs.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store != nil {
		return s.store, nil
	}
	fs.Debugf(nil, "Authenticating")
	store, err := s.auth.Authenticate(ctx)
	if err != nil {
		return nil, err
	}
	s.store = store
	s.rootID = store.RootID()
	return store, nil
}

// drop forgets the connection so the next call authenticates again
func (s *Session) drop() {
	s.mu.Lock()
	s.store = nil
	s.mu.Unlock()
}

// shouldRetry returns a boolean as to whether this err deserves to
// be retried, dropping the connection if it was rejected
func (s *Session) shouldRetry(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx.Err() != nil {
		return false
	}
	if fserrors.IsAuthError(err) {
		fs.Debugf(nil, "Connection rejected, will authenticate again: %v", err)
		s.drop()
		return true
	}
	return fserrors.ShouldRetryOrRetryError(err)
}

// Call runs fn with an authenticated connection, retrying as
// necessary. what describes the call for the logs.
func (s *Session) Call(ctx context.Context, what string, fn func(fs.Store) error) error {
	err := s.pacer.Call(func() (bool, error) {
		store, err := s.Connect(ctx)
		if err != nil {
			return s.shouldRetry(ctx, err), errors.Wrap(err, "authentication failed")
		}
		err = fn(store)
		return s.shouldRetry(ctx, err), err
	})
	if err != nil {
		fs.Debugf(nil, "%s failed: %v", what, err)
	}
	return err
}

// Probe looks for the result of a call which may have been applied
// even though it failed. It returns nil if it wasn't.
type Probe func(ctx context.Context, store fs.Store) (found bool, err error)

// CallOnce runs fn like Call but for calls which must not be applied
// twice. Before retrying after an error which might have happened
// after the store applied the call, probe is run and if it finds the
// result that is used instead of calling fn again.
//
// Authentication failures are taken as the call never having
// reached the store so aren't probed.
func (s *Session) CallOnce(ctx context.Context, what string, fn func(fs.Store) error, probe Probe) error {
	ambiguous := false
	err := s.pacer.Call(func() (bool, error) {
		store, err := s.Connect(ctx)
		if err != nil {
			return s.shouldRetry(ctx, err), errors.Wrap(err, "authentication failed")
		}
		if ambiguous {
			found, err := probe(ctx, store)
			if err != nil {
				return s.shouldRetry(ctx, err), err
			}
			if found {
				fs.Infof(nil, "%s had succeeded - not repeating", what)
				return false, nil
			}
		}
		err = fn(store)
		if err != nil && !fserrors.IsAuthError(err) {
			ambiguous = true
		}
		return s.shouldRetry(ctx, err), err
	})
	if err != nil {
		fs.Debugf(nil, "%s failed: %v", what, err)
	}
	return err
}

// Open connects to the store, retrying as necessary, so the root
// folder id is known
func (s *Session) Open(ctx context.Context) error {
	return s.Call(ctx, "connect", func(fs.Store) error {
		return nil
	})
}

// RootID returns the id of the fixed root folder, connecting first if
// the session hasn't yet. It returns "" if it couldn't connect.
func (s *Session) RootID() string {
	s.mu.Lock()
	rootID := s.rootID
	s.mu.Unlock()
	if rootID != "" {
		return rootID
	}
	if err := s.Open(context.Background()); err != nil {
		fs.Errorf(nil, "Failed to read the root folder id: %v", err)
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rootID
}

// List returns one page of objects matching q
func (s *Session) List(ctx context.Context, q fs.Query, pageToken string) (objects []*fs.Object, next string, err error) {
	err = s.Call(ctx, "list", func(store fs.Store) (err error) {
		objects, next, err = store.List(ctx, q, pageToken)
		return err
	})
	return objects, next, err
}

// Get reads the object with the id given
func (s *Session) Get(ctx context.Context, id string) (o *fs.Object, err error) {
	err = s.Call(ctx, "get "+id, func(store fs.Store) (err error) {
		o, err = store.Get(ctx, id)
		return err
	})
	return o, err
}

// CreateFolder makes a new folder called name in parentID
func (s *Session) CreateFolder(ctx context.Context, parentID, name string) (o *fs.Object, err error) {
	since := time.Now().Add(-clockSkew)
	before, err := s.named(ctx, parentID, name, true)
	if err != nil {
		return nil, err
	}
	err = s.CallOnce(ctx, "create folder "+name, func(store fs.Store) (err error) {
		o, err = store.CreateFolder(ctx, parentID, name)
		return err
	}, func(ctx context.Context, store fs.Store) (bool, error) {
		made, err := findMade(ctx, store, parentID, name, since, true, before)
		if made != nil {
			o = made
		}
		return made != nil, err
	})
	return o, err
}

// Copy duplicates srcID into dstParentID calling it name
func (s *Session) Copy(ctx context.Context, srcID, dstParentID, name string) (o *fs.Object, err error) {
	since := time.Now().Add(-clockSkew)
	before, err := s.named(ctx, dstParentID, name, false)
	if err != nil {
		return nil, err
	}
	err = s.CallOnce(ctx, "copy "+name, func(store fs.Store) (err error) {
		o, err = store.Copy(ctx, srcID, dstParentID, name)
		return err
	}, func(ctx context.Context, store fs.Store) (bool, error) {
		made, err := findMade(ctx, store, dstParentID, name, since, false, before)
		if made != nil {
			o = made
		}
		return made != nil, err
	})
	return o, err
}

// idSet is the ids which existed before a call was made
type idSet map[string]struct{}

func (ids idSet) has(id string) bool {
	_, ok := ids[id]
	return ok
}

// named returns the ids of the objects called name in parentID
func (s *Session) named(ctx context.Context, parentID, name string, folder bool) (idSet, error) {
	objects, err := fs.ListAll(ctx, s, nameQuery(parentID, name, folder))
	if err != nil {
		return nil, err
	}
	ids := make(idSet, len(objects))
	for _, o := range objects {
		ids[o.ID] = struct{}{}
	}
	return ids, nil
}

func nameQuery(parentID, name string, folder bool) fs.Query {
	return fs.Query{Name: name, ParentID: parentID, FoldersOnly: folder, FilesOnly: !folder}
}

// findMade looks for an object called name in parentID created since
// the time given which isn't in before. If there is more than one the
// newest is returned.
func findMade(ctx context.Context, store fs.Store, parentID, name string, since time.Time, folder bool, before idSet) (made *fs.Object, err error) {
	matches, err := fs.ListAll(ctx, store, nameQuery(parentID, name, folder))
	if err != nil {
		return nil, err
	}
	for _, o := range matches {
		if before.has(o.ID) || o.CreatedTime.Before(since) {
			continue
		}
		if made == nil || o.CreatedTime.After(made.CreatedTime) {
			made = o
		}
	}
	return made, nil
}

// SetModTime sets the modification time of id
func (s *Session) SetModTime(ctx context.Context, id string, modTime time.Time) (o *fs.Object, err error) {
	err = s.Call(ctx, "set modification time "+id, func(store fs.Store) (err error) {
		o, err = store.SetModTime(ctx, id, modTime)
		return err
	})
	return o, err
}

// ListComments returns one page of the comments on id
func (s *Session) ListComments(ctx context.Context, id string, pageToken string) (comments []*fs.Comment, next string, err error) {
	err = s.Call(ctx, "list comments "+id, func(store fs.Store) (err error) {
		comments, next, err = store.ListComments(ctx, id, pageToken)
		return err
	})
	return comments, next, err
}

// InsertComment adds a comment without replies to id
func (s *Session) InsertComment(ctx context.Context, id string, comment *fs.Comment) (c *fs.Comment, err error) {
	existing, err := fs.ListAllComments(ctx, s, id)
	if err != nil {
		return nil, err
	}
	before := make(idSet, len(existing))
	for _, old := range existing {
		before[old.ID] = struct{}{}
	}
	err = s.CallOnce(ctx, "insert comment on "+id, func(store fs.Store) (err error) {
		c, err = store.InsertComment(ctx, id, comment)
		return err
	}, func(ctx context.Context, store fs.Store) (bool, error) {
		comments, err := fs.ListAllComments(ctx, store, id)
		if err != nil {
			return false, err
		}
		for _, made := range comments {
			if !before.has(made.ID) && made.Content == comment.Content && made.Anchor == comment.Anchor {
				c = made
				return true, nil
			}
		}
		return false, nil
	})
	return c, err
}

// findComment returns the comment commentID from comments or nil
func findComment(comments []*fs.Comment, commentID string) *fs.Comment {
	for _, c := range comments {
		if c.ID == commentID {
			return c
		}
	}
	return nil
}

// InsertReply adds a reply to commentID on id
func (s *Session) InsertReply(ctx context.Context, id, commentID string, reply *fs.Reply) (r *fs.Reply, err error) {
	existing, err := fs.ListAllComments(ctx, s, id)
	if err != nil {
		return nil, err
	}
	before := make(idSet)
	if c := findComment(existing, commentID); c != nil {
		for _, old := range c.Replies {
			before[old.ID] = struct{}{}
		}
	}
	err = s.CallOnce(ctx, "insert reply on "+id, func(store fs.Store) (err error) {
		r, err = store.InsertReply(ctx, id, commentID, reply)
		return err
	}, func(ctx context.Context, store fs.Store) (bool, error) {
		comments, err := fs.ListAllComments(ctx, store, id)
		if err != nil {
			return false, err
		}
		c := findComment(comments, commentID)
		if c == nil {
			return false, nil
		}
		for _, made := range c.Replies {
			if !before.has(made.ID) && made.Content == reply.Content && made.Verb == reply.Verb {
				r = made
				return true, nil
			}
		}
		return false, nil
	})
	return r, err
}
