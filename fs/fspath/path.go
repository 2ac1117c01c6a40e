// Package fspath contains routines for path manipulation
package fspath

import (
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/unicode/norm"
)

const (
	// Separator splits the segments of a path
	Separator = "/"
	// Root is the command line spelling of the fixed root
	Root = "/"
	// Rootless is the segment meaning "everything without a parent"
	Rootless = "."
)

var (
	errCantBeEmpty   = errors.New("can't use empty string as a path")
	errEmptySegment  = errors.New("path contains an empty segment")
	errRootlessInner = errors.New("\".\" is only allowed on its own")
)

// Path is a slash separated path split into segments
//
// Path{""} is the fixed root of the store and Path{"."} means every
// object without a parent.
type Path []string

// Parse splits a command line argument into a Path
//
// "/" is the fixed root, anything else is split on "/" with empty
// segments preserved. Each segment is normalised to NFC.
func Parse(arg string) (Path, error) {
	if arg == "" {
		return nil, errCantBeEmpty
	}
	if arg == Root {
		return Path{""}, nil
	}
	p := Path(strings.Split(arg, Separator))
	for i := range p {
		p[i] = norm.NFC.String(p[i])
	}
	return p, nil
}

// IsRoot returns true if p is the fixed root
func (p Path) IsRoot() bool {
	return len(p) == 1 && p[0] == ""
}

// IsRootless returns true if p is the rootless sentinel
func (p Path) IsRootless() bool {
	return len(p) == 1 && p[0] == Rootless
}

// String joins the segments back together with "/"
func (p Path) String() string {
	return strings.Join(p, Separator)
}

// Segments returns p as a []string
func (p Path) Segments() []string {
	return []string(p)
}

// CheckDestination returns an error if p can't be used to make
// folders with: every segment must be non empty and "." is only
// allowed as the rootless sentinel on the source side.
func (p Path) CheckDestination() error {
	if p.IsRoot() {
		return nil
	}
	for _, segment := range p {
		switch segment {
		case "":
			return errEmptySegment
		case Rootless:
			return errRootlessInner
		}
	}
	return nil
}
