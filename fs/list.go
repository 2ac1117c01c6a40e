package fs

import (
	"context"

	"github.com/pkg/errors"
)

// ListAll reads every page of q from the store
func ListAll(ctx context.Context, s Store, q Query) (objects []*Object, err error) {
	pageToken := ""
	for {
		var page []*Object
		page, pageToken, err = s.List(ctx, q, pageToken)
		if err != nil {
			return nil, err
		}
		objects = append(objects, page...)
		if pageToken == "" {
			return objects, nil
		}
	}
}

// ListAllComments reads every page of comments on id
func ListAllComments(ctx context.Context, s Store, id string) (comments []*Comment, err error) {
	pageToken := ""
	for {
		var page []*Comment
		page, pageToken, err = s.ListComments(ctx, id, pageToken)
		if err != nil {
			return nil, err
		}
		comments = append(comments, page...)
		if pageToken == "" {
			return comments, nil
		}
	}
}

// FindChildren returns all the objects called name in parentID,
// reading every page before returning
//
// An empty parentID is an error as the store would match name
// anywhere.
func FindChildren(ctx context.Context, s Store, parentID, name string) ([]*Object, error) {
	if parentID == "" {
		return nil, errors.Wrapf(ErrorNoParentID, "looking for %q", name)
	}
	return ListAll(ctx, s, Query{Name: name, ParentID: parentID})
}

// FindOrphans returns all the objects called name which have no
// parents
func FindOrphans(ctx context.Context, s Store, name string) ([]*Object, error) {
	return ListAll(ctx, s, Query{Name: name, Orphans: true})
}
