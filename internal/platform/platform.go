package platform

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/domain"
	pkgerrors "github.com/dmvasilenko/blog-parser-telegram-bot/pkg/errors"
)

const (
	DomainDTF     = "dtf.ru"
	DomainVC      = "vc.ru"
	DomainTenchat = "tenchat.ru"
)

var ErrNotFound = errors.New("profile not found")

// Ref addresses one profile on a platform. UserID is only meaningful
// for Osnova domains and may be zero until the identity is resolved.
type Ref struct {
	Domain   string
	Username string
	UserID   int64
}

func RefFromAccount(account domain.Account) Ref {
	return Ref{
		Domain:   account.Domain,
		Username: account.Username,
		UserID:   account.UserID,
	}
}

// Identity is the profile metadata returned by ResolveIdentity.
type Identity struct {
	URL       string
	Name      string
	UserID    int64
	IsBlocked bool
}

// FetchOpts bounds a post listing. SinceID excludes the post with that
// id and everything older; Limit caps the number of posts collected.
// Zero values mean unbounded.
type FetchOpts struct {
	SinceID int64
	Limit   int
}

// Adapter is the per-platform capability surface. Implementations page
// through the remote listing with a fixed politeness delay and never
// retry locally; transport errors propagate to the caller.
type Adapter interface {
	// ResolveIdentity fetches current profile metadata. A missing
	// profile yields ErrNotFound rather than a transport error.
	ResolveIdentity(ctx context.Context, ref Ref) (Identity, error)

	// FetchPosts returns posts in strictly descending id order, newest
	// first, so the first element is the checkpoint candidate.
	FetchPosts(ctx context.Context, ref Ref, opts FetchOpts) ([]domain.Post, error)
}

// Registry selects the adapter for a domain once, at the point the
// domain becomes known.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(osnova, tenchat Adapter) *Registry {
	return &Registry{
		adapters: map[string]Adapter{
			DomainDTF:     osnova,
			DomainVC:      osnova,
			DomainTenchat: tenchat,
		},
	}
}

func (r *Registry) ForDomain(domain string) (Adapter, error) {
	adapter, ok := r.adapters[strings.ToLower(domain)]
	if !ok {
		return nil, fmt.Errorf("unsupported domain: %s", domain)
	}
	return adapter, nil
}

// Prefix is the short platform label used in file-tree directories
// ("dtf", "vc", "tenchat").
func Prefix(domain string) string {
	name, _, _ := strings.Cut(domain, ".")
	return name
}

// SheetPrefix is the worksheet-title label, at most three characters.
func SheetPrefix(domain string) string {
	prefix := Prefix(domain)
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	return prefix
}

var profilePathPattern = regexp.MustCompile(`^(?:id(\d+)|u/(\d+)-([\w\-]+)|([\w\-]+))`)

// ParseURL extracts a profile reference from a user-supplied link.
// Tenchat profiles carry no numeric id; Osnova links may address the
// profile as /id12345, /u/12345-handle or /handle. When only a handle
// is present the UserID stays zero and must be resolved via the
// adapter before fetching posts.
func ParseURL(raw string) (Ref, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Ref{}, pkgerrors.Wrap(pkgerrors.ErrInvalidInput, "invalid url")
	}

	domain := strings.ToLower(parsed.Hostname())
	domain = strings.TrimPrefix(domain, "www.")
	path := strings.Trim(parsed.Path, "/")

	if domain == "" || path == "" {
		return Ref{}, pkgerrors.Wrap(pkgerrors.ErrInvalidInput, "url must contain a domain and a profile path")
	}

	if domain == DomainTenchat {
		return Ref{Domain: domain, Username: path}, nil
	}

	match := profilePathPattern.FindStringSubmatch(path)
	if match == nil {
		return Ref{}, pkgerrors.Wrap(pkgerrors.ErrInvalidInput, "unrecognized profile path "+path)
	}

	rawID := match[1]
	if rawID == "" {
		rawID = match[2]
	}

	username := match[3]
	if username == "" {
		username = match[4]
	}

	var userID int64
	if rawID != "" {
		userID, err = strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			return Ref{}, pkgerrors.Wrap(pkgerrors.ErrInvalidInput, "invalid profile id "+rawID)
		}
		if username == "" {
			username = "id" + rawID
		}
	}

	return Ref{Domain: domain, Username: username, UserID: userID}, nil
}
