package drive

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rclone/drivedup/fs"
	drive "google.golang.org/api/drive/v3"
)

// authorName returns the display name of a comment or reply author
func authorName(user *drive.User) string {
	if user == nil {
		return ""
	}
	return user.DisplayName
}

// toComment converts a drive comment dropping deleted replies
func toComment(item *drive.Comment) *fs.Comment {
	c := &fs.Comment{
		ID:      item.Id,
		Author:  authorName(item.Author),
		Content: item.Content,
		Anchor:  item.Anchor,
	}
	if item.QuotedFileContent != nil {
		c.QuotedContent = item.QuotedFileContent.Value
	}
	for _, reply := range item.Replies {
		if reply.Deleted {
			continue
		}
		c.Replies = append(c.Replies, toReply(reply))
	}
	return c
}

// toReply converts a drive reply
func toReply(item *drive.Reply) *fs.Reply {
	return &fs.Reply{
		ID:      item.Id,
		Author:  authorName(item.Author),
		Content: item.Content,
		Verb:    item.Action,
	}
}

// ListComments returns one page of the comments on id
func (f *Fs) ListComments(ctx context.Context, id string, pageToken string) (comments []*fs.Comment, next string, err error) {
	list := f.svc.Comments.List(id).
		Fields("comments(" + commentFields + "),nextPageToken").
		PageSize(defaultCommentMax).
		Context(ctx)
	if pageToken != "" {
		list.PageToken(pageToken)
	}
	result, err := list.Do()
	if err != nil {
		return nil, "", errors.Wrapf(classify(err), "couldn't list comments on %q", id)
	}
	for _, item := range result.Comments {
		if item.Deleted {
			continue
		}
		comments = append(comments, toComment(item))
	}
	return comments, result.NextPageToken, nil
}

// InsertComment adds a comment without replies to id
func (f *Fs) InsertComment(ctx context.Context, id string, comment *fs.Comment) (*fs.Comment, error) {
	if len(comment.Replies) != 0 {
		return nil, errors.New("comments must be inserted without replies")
	}
	createInfo := &drive.Comment{
		Content: comment.Content,
		Anchor:  comment.Anchor,
	}
	if comment.QuotedContent != "" {
		createInfo.QuotedFileContent = &drive.CommentQuotedFileContent{
			Value: comment.QuotedContent,
		}
	}
	info, err := f.svc.Comments.Create(id, createInfo).
		Fields(newCommentFields).
		Context(ctx).
		Do()
	if err != nil {
		return nil, errors.Wrapf(classify(err), "couldn't insert comment on %q", id)
	}
	return toComment(info), nil
}

// InsertReply adds a reply to commentID on id
func (f *Fs) InsertReply(ctx context.Context, id, commentID string, reply *fs.Reply) (*fs.Reply, error) {
	createInfo := &drive.Reply{
		Content: reply.Content,
		Action:  reply.Verb,
	}
	info, err := f.svc.Replies.Create(id, commentID, createInfo).
		Fields(newReplyFields).
		Context(ctx).
		Do()
	if err != nil {
		return nil, errors.Wrapf(classify(err), "couldn't insert reply on %q", id)
	}
	return toReply(info), nil
}
