package osnova

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/platform"
	"github.com/dmvasilenko/blog-parser-telegram-bot/pkg/logger"
)

func newTestClient(server *httptest.Server) *Client {
	return &Client{
		HTTPClient: server.Client(),
		Logger:     logger.New(logger.Opts{Env: "production"}),
		BaseURL:    func(string) string { return server.URL },
		PageDelay:  0,
	}
}

func timelineItem(id int64) string {
	return fmt.Sprintf(`{"data": {"id": %d, "url": "https://dtf.ru/p/%d", "title": "post %d",
		"date": 1700000000, "counters": {"hits": %d}, "author": {"name": "Автор"}}}`, id, id, id, id*10)
}

func timelinePage(lastID int64, ids ...int64) string {
	items := make([]string, 0, len(ids))
	for _, id := range ids {
		items = append(items, timelineItem(id))
	}
	return fmt.Sprintf(`{"result": {"items": [%s], "lastId": %d, "lastSortingValue": %d}}`,
		strings.Join(items, ","), lastID, lastID)
}

func TestResolveIdentity_ByID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2.7/subsite", r.URL.Path)
		assert.Equal(t, "77", r.URL.Query().Get("id"))
		fmt.Fprint(w, `{"result": {"id": 77, "name": "Автор", "uri": "author", "isBlocked": false}}`)
	}))
	defer server.Close()

	client := newTestClient(server)
	identity, err := client.ResolveIdentity(context.Background(), platform.Ref{Domain: "dtf.ru", Username: "author", UserID: 77})
	require.NoError(t, err)

	assert.Equal(t, "https://dtf.ru/author", identity.URL)
	assert.Equal(t, "Автор", identity.Name)
	assert.Equal(t, int64(77), identity.UserID)
	assert.False(t, identity.IsBlocked)
}

func TestResolveIdentity_ByURIWhenNoID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "author", r.URL.Query().Get("uri"))
		fmt.Fprint(w, `{"result": {"id": 55, "name": "Автор", "uri": "author", "isBlocked": true}}`)
	}))
	defer server.Close()

	client := newTestClient(server)
	identity, err := client.ResolveIdentity(context.Background(), platform.Ref{Domain: "vc.ru", Username: "author"})
	require.NoError(t, err)

	assert.Equal(t, int64(55), identity.UserID)
	assert.True(t, identity.IsBlocked)
}

func TestResolveIdentity_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.ResolveIdentity(context.Background(), platform.Ref{Domain: "dtf.ru", Username: "gone"})
	assert.ErrorIs(t, err, platform.ErrNotFound)
}

func TestFetchPosts_StopsAtCheckpoint(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, "/v2.8/timeline", r.URL.Path)
		assert.Equal(t, "77", r.URL.Query().Get("subsitesIds"))

		switch r.URL.Query().Get("lastId") {
		case "":
			fmt.Fprint(w, timelinePage(103, 105, 104, 103))
		case "103":
			fmt.Fprint(w, timelinePage(40, 100, 42, 40))
		default:
			t.Errorf("unexpected cursor %q", r.URL.Query().Get("lastId"))
		}
	}))
	defer server.Close()

	client := newTestClient(server)
	posts, err := client.FetchPosts(context.Background(), platform.Ref{Domain: "dtf.ru", UserID: 77}, platform.FetchOpts{SinceID: 42})
	require.NoError(t, err)

	ids := make([]int64, 0, len(posts))
	for _, post := range posts {
		ids = append(ids, post.ID)
	}
	assert.Equal(t, []int64{105, 104, 103, 100}, ids)
	assert.Equal(t, 2, requests, "paging must stop once the checkpoint is reached")
}

func TestFetchPosts_LimitStopsPaging(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		fmt.Fprint(w, timelinePage(103, 105, 104, 103))
	}))
	defer server.Close()

	client := newTestClient(server)
	posts, err := client.FetchPosts(context.Background(), platform.Ref{Domain: "dtf.ru", UserID: 77}, platform.FetchOpts{Limit: 2})
	require.NoError(t, err)

	require.Len(t, posts, 2)
	assert.Equal(t, int64(105), posts[0].ID)
	assert.Equal(t, 1, requests)
}

func TestFetchPosts_EmptyTimeline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result": {"items": [], "lastId": 0, "lastSortingValue": 0}}`)
	}))
	defer server.Close()

	client := newTestClient(server)
	posts, err := client.FetchPosts(context.Background(), platform.Ref{Domain: "vc.ru", UserID: 5}, platform.FetchOpts{})
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestFetchPosts_RequiresUserID(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	client := newTestClient(server)
	_, err := client.FetchPosts(context.Background(), platform.Ref{Domain: "dtf.ru", Username: "author"}, platform.FetchOpts{})
	assert.ErrorContains(t, err, "no user id")
}

func TestNormalizePost_ExtractsMedia(t *testing.T) {
	data := []byte(`{
		"id": 9, "url": "https://dtf.ru/p/9", "title": "с картинками", "date": 1700000000,
		"counters": {"hits": 12}, "author": {"name": "Автор"},
		"blocks": [
			{"type": "text", "data": {}},
			{"type": "media", "data": {"items": [
				{"image": {"data": {"uuid": "abc-123", "type": "jpg"}}},
				{"image": {"data": {"uuid": "", "type": ""}}}
			]}}
		]
	}`)

	post, err := normalizePost(data)
	require.NoError(t, err)

	require.Len(t, post.Media, 1)
	assert.Equal(t, "https://leonardo.osnova.io/abc-123", post.Media[0].URL)
	assert.Equal(t, "abc-123", post.Media[0].Name)
	assert.Equal(t, 12, post.Views)
}
