// Package accounting counts what a run has done
package accounting

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rclone/drivedup/fs"
)

// StatsInfo accounts all copies made in a run
type StatsInfo struct {
	mu            sync.RWMutex
	files         int64
	bytes         int64
	folders       int64
	comments      int64
	replies       int64
	errors        int64
	commentErrors int64
	retries       int64
	lastError     error
	start         time.Time
}

// NewStats creates an initialised StatsInfo
func NewStats() *StatsInfo {
	return &StatsInfo{
		start: time.Now(),
	}
}

// String convert the StatsInfo to a string for printing
func (s *StatsInfo) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dt := time.Since(s.start)
	dtRounded := dt - (dt % (time.Second / 10))
	buf := &bytes.Buffer{}
	fmt.Fprintf(buf, `
Copied:        %10s files (%s)
Folders:       %10s
Comments:      %10s (%s replies)
Errors:        %10s (%s comment errors)
Retries:       %10s
Elapsed time:  %10v
`,
		humanize.Comma(s.files), humanize.Bytes(uint64(s.bytes)),
		humanize.Comma(s.folders),
		humanize.Comma(s.comments), humanize.Comma(s.replies),
		humanize.Comma(s.errors), humanize.Comma(s.commentErrors),
		humanize.Comma(s.retries),
		dtRounded)
	return buf.String()
}

// Log outputs the StatsInfo to the log
func (s *StatsInfo) Log() {
	fs.Infof(nil, "%v", s)
}

// File records a copied file of size bytes
func (s *StatsInfo) File(size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files++
	if size > 0 {
		s.bytes += size
	}
}

// Folder records a created folder
func (s *StatsInfo) Folder() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folders++
}

// Comment records a copied comment
func (s *StatsInfo) Comment() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments++
}

// Reply records a copied reply
func (s *StatsInfo) Reply() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies++
}

// Retry records a low level retry
func (s *StatsInfo) Retry() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retries++
}

// Error adds a single error into the stats and records it as the
// last error
func (s *StatsInfo) Error(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors++
	s.lastError = err
}

// CommentError records a comment or reply which couldn't be copied
func (s *StatsInfo) CommentError(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commentErrors++
	s.lastError = err
}

// GetFiles returns the number of files copied
func (s *StatsInfo) GetFiles() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.files
}

// GetBytes returns the number of bytes copied
func (s *StatsInfo) GetBytes() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bytes
}

// GetFolders returns the number of folders created
func (s *StatsInfo) GetFolders() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.folders
}

// GetComments returns the number of comments copied
func (s *StatsInfo) GetComments() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.comments
}

// GetReplies returns the number of replies copied
func (s *StatsInfo) GetReplies() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.replies
}

// GetErrors reads the number of errors
func (s *StatsInfo) GetErrors() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errors
}

// GetCommentErrors reads the number of comment errors
func (s *StatsInfo) GetCommentErrors() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.commentErrors
}

// GetRetries reads the number of low level retries
func (s *StatsInfo) GetRetries() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.retries
}

// GetLastError returns the lastError
func (s *StatsInfo) GetLastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// HadErrors returns true if anything failed
func (s *StatsInfo) HadErrors() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errors != 0 || s.commentErrors != 0
}

// ResetCounters sets the counters (bytes, files, errors etc) to 0
func (s *StatsInfo) ResetCounters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = 0
	s.bytes = 0
	s.folders = 0
	s.comments = 0
	s.replies = 0
	s.errors = 0
	s.commentErrors = 0
	s.retries = 0
	s.lastError = nil
	s.start = time.Now()
}
