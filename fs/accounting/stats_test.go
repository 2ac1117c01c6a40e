package accounting

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsCounters(t *testing.T) {
	s := NewStats()
	assert.False(t, s.HadErrors())

	s.File(100)
	s.File(-1)
	s.Folder()
	s.Comment()
	s.Comment()
	s.Reply()
	s.Retry()
	assert.Equal(t, int64(2), s.GetFiles())
	assert.Equal(t, int64(100), s.GetBytes())
	assert.Equal(t, int64(1), s.GetFolders())
	assert.Equal(t, int64(2), s.GetComments())
	assert.Equal(t, int64(1), s.GetReplies())
	assert.Equal(t, int64(1), s.GetRetries())
	assert.False(t, s.HadErrors())

	s.Error(nil)
	assert.False(t, s.HadErrors())

	errComment := errors.New("comment")
	s.CommentError(errComment)
	assert.True(t, s.HadErrors())
	assert.Equal(t, int64(0), s.GetErrors())
	assert.Equal(t, int64(1), s.GetCommentErrors())
	assert.Equal(t, errComment, s.GetLastError())

	errCopy := errors.New("copy")
	s.Error(errCopy)
	assert.Equal(t, int64(1), s.GetErrors())
	assert.Equal(t, errCopy, s.GetLastError())

	out := s.String()
	assert.Contains(t, out, "Copied:")
	assert.Contains(t, out, "100 B")

	s.ResetCounters()
	assert.Equal(t, int64(0), s.GetFiles())
	assert.Nil(t, s.GetLastError())
	assert.False(t, s.HadErrors())
}

func TestCollector(t *testing.T) {
	s := NewStats()
	s.File(1500)
	s.Folder()
	s.CommentError(errors.New("potato"))

	c := NewCollector(s)
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))

	expected := `
# HELP drivedup_bytes_copied_total Total size of the files copied
# TYPE drivedup_bytes_copied_total counter
drivedup_bytes_copied_total 1500
# HELP drivedup_comment_errors_total Number of comments and replies which couldn't be copied
# TYPE drivedup_comment_errors_total counter
drivedup_comment_errors_total 1
# HELP drivedup_folders_created_total Total number of folders created
# TYPE drivedup_folders_created_total counter
drivedup_folders_created_total 1
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"drivedup_bytes_copied_total",
		"drivedup_comment_errors_total",
		"drivedup_folders_created_total",
	)
	assert.NoError(t, err)
	assert.Equal(t, 8, testutil.CollectAndCount(c))
}
