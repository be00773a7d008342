package tenchat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/domain"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/platform"
	"github.com/dmvasilenko/blog-parser-telegram-bot/pkg/config"
	"github.com/dmvasilenko/blog-parser-telegram-bot/pkg/logger"
	"go.uber.org/fx"
)

// blockedMarker is the UI element Tenchat renders on suspended
// profiles. The platform exposes no metadata flag for this, so the
// profile page itself is inspected.
const blockedMarker = `data-qa="profile-blocked"`

var profileNamePattern = regexp.MustCompile(`<meta\s+property="og:title"\s+content="([^"]*)"`)

type Opts struct {
	fx.In

	Config *config.Config
	Logger logger.Logger
}

// Client scrapes tenchat.ru profiles and pages through the public
// media-post listing.
type Client struct {
	HTTPClient *http.Client
	Logger     logger.Logger
	// BaseURL is the site root, overridable in tests.
	BaseURL string
	// PageDelay is the fixed politeness pause before each listing page.
	PageDelay time.Duration
}

func New(opts Opts) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Logger:     opts.Logger.WithComponent("TenchatClient"),
		BaseURL:    "https://tenchat.ru",
		PageDelay:  time.Duration(opts.Config.Parser.PageDelaySecs) * time.Second,
	}
}

var _ platform.Adapter = (*Client)(nil)

// ResolveIdentity fetches the public profile page. The display name is
// taken from the og:title meta tag; the blocked status from the
// presence of the blocked marker element in the page body.
func (c *Client) ResolveIdentity(ctx context.Context, ref platform.Ref) (platform.Identity, error) {
	endpoint := fmt.Sprintf("%s/%s", c.BaseURL, ref.Username)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return platform.Identity{}, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return platform.Identity{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return platform.Identity{}, platform.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return platform.Identity{}, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return platform.Identity{}, fmt.Errorf("failed to read profile page: %w", err)
	}
	page := string(body)

	name := ref.Username
	if match := profileNamePattern.FindStringSubmatch(page); match != nil && match[1] != "" {
		name = match[1]
	}

	return platform.Identity{
		URL:       fmt.Sprintf("https://%s/%s", platform.DomainTenchat, ref.Username),
		Name:      name,
		IsBlocked: strings.Contains(page, blockedMarker),
	}, nil
}

type listingResponse struct {
	Items []json.RawMessage `json:"items"`
	Next  string            `json:"next"`
}

type mediaPost struct {
	ID                   int64  `json:"id"`
	Title                string `json:"title"`
	TitleTransliteration string `json:"titleTransliteration"`
	ViewCount            int    `json:"viewCount"`
	PublishDate          string `json:"publishDate"`
	User                 struct {
		Name    string `json:"name"`
		Surname string `json:"surname"`
	} `json:"user"`
	Pictures []struct {
		Link string `json:"link"`
	} `json:"pictures"`
}

// FetchPosts pages through the author's media listing using the opaque
// next-cursor returned with each page.
func (c *Client) FetchPosts(ctx context.Context, ref platform.Ref, opts platform.FetchOpts) ([]domain.Post, error) {
	cursor := ""

	var posts []domain.Post
	for opts.Limit == 0 || len(posts) < opts.Limit {
		if err := c.pause(ctx); err != nil {
			return nil, err
		}

		endpoint := fmt.Sprintf("%s/media/api/authors/%s/posts", c.BaseURL, ref.Username)
		if cursor != "" {
			endpoint += "?cursor=" + cursor
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode == http.StatusNotFound {
			resp.Body.Close()
			return nil, platform.ErrNotFound
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint)
		}

		var page listingResponse
		err = json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to decode listing page: %w", err)
		}

		if len(page.Items) == 0 {
			break
		}

		reachedCheckpoint := false
		for _, item := range page.Items {
			post, err := normalizePost(item)
			if err != nil {
				c.Logger.Warn("Skipping malformed media post", "username", ref.Username, "error", err)
				continue
			}
			if opts.SinceID != 0 && post.ID <= opts.SinceID {
				reachedCheckpoint = true
				break
			}
			posts = append(posts, post)
			if opts.Limit != 0 && len(posts) >= opts.Limit {
				break
			}
		}

		if reachedCheckpoint || page.Next == "" {
			break
		}
		cursor = page.Next
	}

	return posts, nil
}

func normalizePost(data json.RawMessage) (domain.Post, error) {
	var raw mediaPost
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.Post{}, err
	}
	if raw.ID == 0 {
		return domain.Post{}, fmt.Errorf("media post has no id")
	}

	publishedAt, err := time.Parse(time.RFC3339, raw.PublishDate)
	if err != nil {
		// Some listings omit the offset.
		publishedAt, err = time.Parse("2006-01-02T15:04:05", raw.PublishDate)
		if err != nil {
			return domain.Post{}, fmt.Errorf("bad publish date %q: %w", raw.PublishDate, err)
		}
	}

	author := raw.User.Name
	if raw.User.Surname != "" {
		if author != "" {
			author += " "
		}
		author += raw.User.Surname
	}

	var media []domain.MediaRef
	for i, picture := range raw.Pictures {
		if picture.Link == "" {
			continue
		}
		media = append(media, domain.MediaRef{
			URL:  picture.Link,
			Name: fmt.Sprintf("image_%d", i),
		})
	}

	return domain.Post{
		ID:          raw.ID,
		URL:         fmt.Sprintf("https://%s/media/%s", platform.DomainTenchat, raw.TitleTransliteration),
		Title:       raw.Title,
		Views:       raw.ViewCount,
		PublishedAt: publishedAt,
		Author:      author,
		Media:       media,
		Payload:     data,
	}, nil
}

func (c *Client) pause(ctx context.Context) error {
	if c.PageDelay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.PageDelay):
		return nil
	}
}
