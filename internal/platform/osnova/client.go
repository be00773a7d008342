package osnova

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/domain"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/platform"
	"github.com/dmvasilenko/blog-parser-telegram-bot/pkg/config"
	"github.com/dmvasilenko/blog-parser-telegram-bot/pkg/logger"
	"go.uber.org/fx"
)

const mediaBaseURL = "https://leonardo.osnova.io"

type Opts struct {
	fx.In

	Config *config.Config
	Logger logger.Logger
}

// Client talks to the Osnova CMS API shared by dtf.ru and vc.ru.
type Client struct {
	HTTPClient *http.Client
	Logger     logger.Logger
	// BaseURL maps a site domain to its API root. Overridable in tests.
	BaseURL func(domain string) string
	// PageDelay is the fixed politeness pause before each timeline page.
	PageDelay time.Duration
}

func New(opts Opts) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Logger:     opts.Logger.WithComponent("OsnovaClient"),
		BaseURL: func(domain string) string {
			return fmt.Sprintf("https://api.%s", domain)
		},
		PageDelay: time.Duration(opts.Config.Parser.PageDelaySecs) * time.Second,
	}
}

var _ platform.Adapter = (*Client)(nil)

type subsiteResponse struct {
	Result struct {
		ID        int64  `json:"id"`
		Name      string `json:"name"`
		URI       string `json:"uri"`
		IsBlocked bool   `json:"isBlocked"`
	} `json:"result"`
}

// ResolveIdentity looks the subsite up by numeric id when known, by uri
// otherwise. The blocked status comes from the subsite metadata flag.
func (c *Client) ResolveIdentity(ctx context.Context, ref platform.Ref) (platform.Identity, error) {
	params := url.Values{"markdown": {"false"}}
	if ref.UserID != 0 {
		params.Set("id", strconv.FormatInt(ref.UserID, 10))
	} else {
		params.Set("uri", ref.Username)
	}

	endpoint := fmt.Sprintf("%s/v2.7/subsite?%s", c.BaseURL(ref.Domain), params.Encode())

	var parsed subsiteResponse
	if err := c.getJSON(ctx, endpoint, &parsed); err != nil {
		return platform.Identity{}, err
	}

	uri := parsed.Result.URI
	if uri == "" {
		uri = ref.Username
	}

	return platform.Identity{
		URL:       fmt.Sprintf("https://%s/%s", ref.Domain, uri),
		Name:      parsed.Result.Name,
		UserID:    parsed.Result.ID,
		IsBlocked: parsed.Result.IsBlocked,
	}, nil
}

type timelineResponse struct {
	Result struct {
		Items []struct {
			Data json.RawMessage `json:"data"`
		} `json:"items"`
		LastID           int64 `json:"lastId"`
		LastSortingValue int64 `json:"lastSortingValue"`
	} `json:"result"`
}

type timelinePost struct {
	ID       int64  `json:"id"`
	URL      string `json:"url"`
	Title    string `json:"title"`
	Date     int64  `json:"date"`
	Counters struct {
		Hits int `json:"hits"`
	} `json:"counters"`
	Author struct {
		Name string `json:"name"`
	} `json:"author"`
	Blocks []struct {
		Type string `json:"type"`
		Data struct {
			Items []struct {
				Image struct {
					Data struct {
						UUID string `json:"uuid"`
						Type string `json:"type"`
					} `json:"data"`
				} `json:"image"`
			} `json:"items"`
		} `json:"data"`
	} `json:"blocks"`
}

// FetchPosts pages through the subsite timeline, newest first, using
// the lastId/lastSortingValue cursor pair returned with each page.
func (c *Client) FetchPosts(ctx context.Context, ref platform.Ref, opts platform.FetchOpts) ([]domain.Post, error) {
	if ref.UserID == 0 {
		return nil, fmt.Errorf("osnova: ref for %s has no user id", ref.Username)
	}

	params := url.Values{
		"markdown":    {"false"},
		"sorting":     {"new"},
		"subsitesIds": {strconv.FormatInt(ref.UserID, 10)},
	}

	var posts []domain.Post
	for opts.Limit == 0 || len(posts) < opts.Limit {
		if err := c.pause(ctx); err != nil {
			return nil, err
		}

		endpoint := fmt.Sprintf("%s/v2.8/timeline?%s", c.BaseURL(ref.Domain), params.Encode())

		var page timelineResponse
		if err := c.getJSON(ctx, endpoint, &page); err != nil {
			return nil, err
		}

		if len(page.Result.Items) == 0 {
			break
		}

		reachedCheckpoint := false
		for _, item := range page.Result.Items {
			post, err := normalizePost(item.Data)
			if err != nil {
				c.Logger.Warn("Skipping malformed timeline item", "domain", ref.Domain, "error", err)
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

		if reachedCheckpoint || page.Result.LastID == 0 {
			break
		}

		params.Set("lastId", strconv.FormatInt(page.Result.LastID, 10))
		params.Set("lastSortingValue", strconv.FormatInt(page.Result.LastSortingValue, 10))
	}

	if opts.Limit != 0 && len(posts) > opts.Limit {
		posts = posts[:opts.Limit]
	}
	return posts, nil
}

func normalizePost(data json.RawMessage) (domain.Post, error) {
	var raw timelinePost
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.Post{}, err
	}
	if raw.ID == 0 {
		return domain.Post{}, fmt.Errorf("timeline item has no post id")
	}

	var media []domain.MediaRef
	for _, block := range raw.Blocks {
		if block.Type != "media" {
			continue
		}
		for _, item := range block.Data.Items {
			if item.Image.Data.UUID == "" {
				continue
			}
			media = append(media, domain.MediaRef{
				URL:  fmt.Sprintf("%s/%s", mediaBaseURL, item.Image.Data.UUID),
				Name: item.Image.Data.UUID,
			})
		}
	}

	return domain.Post{
		ID:          raw.ID,
		URL:         raw.URL,
		Title:       raw.Title,
		Views:       raw.Counters.Hits,
		PublishedAt: time.Unix(raw.Date, 0),
		Author:      raw.Author.Name,
		Media:       media,
		Payload:     CleanLinks(data),
	}, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return platform.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint)
	}

	return json.NewDecoder(resp.Body).Decode(out)
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
