package output

import (
	"context"

	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/domain"
)

// Writer is the local file-tree sink.
type Writer interface {
	// WritePosts persists each post newer than sinceID under
	// <dir>/<platform-prefix>-<username>/<post-id>/data.json with its
	// media files alongside, plus a posts.json aggregating the whole
	// fetched window. Returns the path of posts.json. Cancelling the
	// context stops the unload between posts.
	WritePosts(ctx context.Context, platformDomain, username string, posts []domain.Post, sinceID int64) (string, error)
}
