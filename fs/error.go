// Errors and error handling

package fs

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Globals
var (
	ErrorPathNotFound       = errors.New("path not found")
	ErrorAmbiguousPath      = errors.New("ambiguous path")
	ErrorInvalidDestination = errors.New("destination is not a folder")
	ErrorCycleDetected      = errors.New("folder cycle detected")
	ErrorDuplicateName      = errors.New("duplicate name in folder")
	ErrorCommentCopy        = errors.New("failed to copy comments")
	ErrorCopyIncomplete     = errors.New("not all objects were copied")
	ErrorNotEnoughArguments = errors.New("not enough arguments")
	ErrorTooManyArguments   = errors.New("too many arguments")
	ErrorConfigFileNotFound = errors.New("config file not found")
	ErrorNotAuthenticated   = errors.New("no authenticated connection")
	ErrorMalformedComment   = errors.New("comment has no author")
	ErrorNoParentID         = errors.New("no parent folder id")
)

// PathError records an error resolving or creating a path and the
// segment which caused it
type PathError struct {
	Op      string   // operation, e.g. "resolve" or "mkdir"
	Path    []string // the whole path
	Segment string   // the segment being worked on when the error happened
	Depth   int      // number of segments successfully walked
	Err     error    // one of the Error* sentinels
}

// Error satisfies the error interface
func (e *PathError) Error() string {
	return fmt.Sprintf("%s %q: %v: %q", e.Op, strings.Join(e.Path, "/"), e.Err, e.Segment)
}

// Unwrap returns the underlying error
func (e *PathError) Unwrap() error {
	return e.Err
}

// Cause returns the underlying error for github.com/pkg/errors
func (e *PathError) Cause() error {
	return e.Err
}

// NewPathError makes a *PathError
func NewPathError(op string, path []string, depth int, segment string, err error) *PathError {
	return &PathError{
		Op:      op,
		Path:    path,
		Segment: segment,
		Depth:   depth,
		Err:     err,
	}
}
