// Package exitcode exports drivedup's exit status numbers.
package exitcode

const (
	// Success is returned when drivedup finished without error.
	Success = iota
	// UsageError is returned when there was a syntax or usage error in the arguments.
	UsageError
	// UncategorizedError is returned for any error not categorised otherwise.
	UncategorizedError
	// PathNotFound is returned when the source or destination path doesn't resolve.
	PathNotFound
	// AmbiguousPath is returned when a path segment matches more than one object.
	AmbiguousPath
	// InvalidDestination is returned when the destination can't hold a copy.
	InvalidDestination
	// RetryError is returned for temporary errors which ran out of retries.
	RetryError
	// NoRetryError is returned for errors from operations which can't/shouldn't be retried.
	NoRetryError
	// FatalError is returned for errors one or more retries won't resolve.
	FatalError
	// CopyIncomplete is returned when the copy finished but some objects or comments failed.
	CopyIncomplete
)
