package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/domain"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/platform"
	"github.com/dmvasilenko/blog-parser-telegram-bot/pkg/config"
	"github.com/dmvasilenko/blog-parser-telegram-bot/pkg/logger"
	"go.uber.org/fx"
)

type Opts struct {
	fx.In

	Config *config.Config
	Logger logger.Logger
}

type FS struct {
	Dir        string
	HTTPClient *http.Client
	Logger     logger.Logger
}

func New(opts Opts) *FS {
	return &FS{
		Dir:        opts.Config.Output.Directory,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Logger:     opts.Logger.WithComponent("OutputFS"),
	}
}

var _ Writer = (*FS)(nil)

func (f *FS) WritePosts(ctx context.Context, platformDomain, username string, posts []domain.Post, sinceID int64) (string, error) {
	userDir := filepath.Join(f.Dir, platform.Prefix(platformDomain)+"-"+username)
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, post := range posts {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if sinceID != 0 && post.ID <= sinceID {
			continue
		}

		postDir := filepath.Join(userDir, strconv.FormatInt(post.ID, 10))
		if err := os.MkdirAll(postDir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create post directory: %w", err)
		}

		for _, media := range post.Media {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			if err := f.downloadMedia(ctx, postDir, media); err != nil {
				// A missing picture does not fail the whole unload.
				f.Logger.Warn("Failed to download media file", "url", media.URL, "error", err)
			}
		}

		if err := writeJSON(filepath.Join(postDir, "data.json"), post.Payload); err != nil {
			return "", err
		}
	}

	payloads := make([]json.RawMessage, 0, len(posts))
	for _, post := range posts {
		payloads = append(payloads, post.Payload)
	}
	aggregate, err := json.MarshalIndent(payloads, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal posts aggregate: %w", err)
	}

	postsPath := filepath.Join(userDir, "posts.json")
	if err := os.WriteFile(postsPath, aggregate, 0o644); err != nil {
		return "", fmt.Errorf("failed to write posts.json: %w", err)
	}
	return postsPath, nil
}

func (f *FS) downloadMedia(ctx context.Context, postDir string, media domain.MediaRef) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, media.URL, nil)
	if err != nil {
		return err
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	name := media.Name + "." + extensionFor(resp.Header.Get("Content-Type"))
	return os.WriteFile(filepath.Join(postDir, name), data, 0o644)
}

func writeJSON(path string, payload json.RawMessage) error {
	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return fmt.Errorf("post payload is not valid json: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func extensionFor(contentType string) string {
	if contentType == "" {
		return "jpg"
	}
	_, ext, found := strings.Cut(contentType, "/")
	if !found || ext == "" {
		return "jpg"
	}
	if semi := strings.Index(ext, ";"); semi != -1 {
		ext = ext[:semi]
	}
	return ext
}
