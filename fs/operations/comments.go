package operations

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/rclone/drivedup/fs"
)

// mentionReplacement stands in for "@" in copied text so nobody is
// notified by the copies
const mentionReplacement = "-at-"

// commentBody is the text of a copied comment or reply - the original
// author is put in front of the content as the store will record the
// copier as the author
func commentBody(author, content string) string {
	content = strings.Replace(content, "@", mentionReplacement, -1)
	if author == "" {
		return content
	}
	return author + ": " + content
}

// copyComments copies the comment threads on src onto dst.
//
// A failure with one comment or reply is logged and the copy carries
// on with the next one.
func (c *Copier) copyComments(ctx context.Context, src, dst *fs.Object) {
	comments, err := fs.ListAllComments(ctx, c.store, src.ID)
	if err != nil {
		c.missingComments(src, dst, "", errors.Wrap(err, "failed to list comments"))
		return
	}
	for _, comment := range comments {
		if comment.Author == "" {
			c.missingComments(src, dst, comment.Anchor, fs.ErrorMalformedComment)
			continue
		}
		newComment, err := c.store.InsertComment(ctx, dst.ID, &fs.Comment{
			Content:       commentBody(comment.Author, comment.Content),
			Anchor:        comment.Anchor,
			QuotedContent: comment.QuotedContent,
		})
		if err != nil {
			c.missingComments(src, dst, comment.Anchor, err)
			continue
		}
		c.stats.Comment()
		for _, reply := range comment.Replies {
			_, err = c.store.InsertReply(ctx, dst.ID, newComment.ID, &fs.Reply{
				Content: commentBody(reply.Author, reply.Content),
				Verb:    reply.Verb,
			})
			if err != nil {
				c.missingComments(src, dst, comment.Anchor, err)
				continue
			}
			c.stats.Reply()
		}
	}
	if len(comments) > 0 {
		fs.Debugf(src, "Copied %d comments", len(comments))
	}
}

// missingComments reports a comment or reply which couldn't be copied
func (c *Copier) missingComments(src, dst *fs.Object, anchor string, err error) {
	err = errors.Wrap(fs.ErrorCommentCopy, err.Error())
	c.stats.CommentError(err)
	fs.Errorf(src, "%v", err)
	fmt.Fprintf(c.opt.ErrorLog, "MISSING COMMENTS: %s: %s => %s, anchor: %s: %v\n", src.Name, src.ID, dst.ID, anchor, err)
}
