package fs

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestPathError(t *testing.T) {
	err := NewPathError("resolve", []string{"a", "b", "c"}, 1, "b", ErrorAmbiguousPath)
	assert.Equal(t, `resolve "a/b/c": ambiguous path: "b"`, err.Error())
	assert.True(t, errors.Is(err, ErrorAmbiguousPath))
	assert.Equal(t, ErrorAmbiguousPath, errors.Cause(err))

	wrapped := errors.Wrap(err, "failed")
	var pathErr *PathError
	assert.True(t, errors.As(wrapped, &pathErr))
	assert.Equal(t, 1, pathErr.Depth)
}

func TestObjectHelpers(t *testing.T) {
	o := &Object{Name: "x", Kind: Folder, Parents: []string{"p1", "p2"}}
	assert.True(t, o.IsDir())
	assert.False(t, o.IsRootless())
	assert.True(t, o.HasParent("p2"))
	assert.False(t, o.HasParent("p3"))
	assert.Equal(t, "x", o.String())
	assert.Equal(t, "<nil>", (*Object)(nil).String())
	assert.Equal(t, "folder", Folder.String())
	assert.Equal(t, "Kind(7)", Kind(7).String())
}
