package providers

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"github.com/stacklok/toolhive-catalog-sync/internal/httpclient"
	"github.com/stacklok/toolhive-catalog-sync/internal/models"
)

const (
	bitbucketDefaultAPI    = "https://api.bitbucket.org"
	bitbucketDefaultDomain = "bitbucket.org"
	bitbucketTokenURL      = "https://bitbucket.org/site/oauth2/access_token"
	bitbucketRefPageLen    = 100

	tokenExpiredMessage = "access token expired"
)

// TokenRefresher exchanges a refresh token for a new access token
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// OAuth2Refresher refreshes tokens with the OAuth2 refresh token grant
type OAuth2Refresher struct {
	Config *oauth2.Config

	// HTTPClient is used for the token request when set
	HTTPClient *http.Client
}

// NewBitbucketRefresher creates a refresher for the Bitbucket OAuth consumer.
// An empty tokenURL selects the public Bitbucket endpoint.
func NewBitbucketRefresher(clientID, clientSecret, tokenURL string) *OAuth2Refresher {
	if tokenURL == "" {
		tokenURL = bitbucketTokenURL
	}
	return &OAuth2Refresher{
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
	}
}

// Refresh returns a fresh token for refreshToken
func (r *OAuth2Refresher) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if r.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, r.HTTPClient)
	}
	// A token without an access token is never valid, so the source always
	// performs the refresh grant.
	return r.Config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
}

// BitbucketCloud enumerates the account namespace and every workspace the
// account has access to. Each namespace is a source group of the cursor.
type BitbucketCloud struct {
	client    httpclient.Client
	baseURL   string
	account   *models.Account
	pageSize  int
	refresher TokenRefresher

	mu sync.Mutex
}

var _ Provider = (*BitbucketCloud)(nil)

// NewBitbucketCloud creates a Bitbucket Cloud adapter for account
func NewBitbucketCloud(account *models.Account, opts Options) (*BitbucketCloud, error) {
	opts = opts.withDefaults()
	baseURL := strings.TrimSuffix(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = bitbucketDefaultAPI
	}
	return &BitbucketCloud{
		client:    opts.httpClient(),
		baseURL:   baseURL,
		account:   account,
		pageSize:  opts.PageSize,
		refresher: opts.Refresher,
	}, nil
}

// Name returns the provider key
func (*BitbucketCloud) Name() string {
	return models.ProviderBitbucket
}

// Authenticate resolves the authenticated user
func (b *BitbucketCloud) Authenticate(ctx context.Context) (*Identity, error) {
	body, err := b.get(ctx, b.baseURL+"/2.0/user")
	if err != nil {
		return nil, err
	}
	id := gjson.GetBytes(body, "account_id").String()
	if id == "" {
		id = gjson.GetBytes(body, "uuid").String()
	}
	return &Identity{
		Owner:    gjson.GetBytes(body, "username").String(),
		GlobalID: id,
	}, nil
}

// EnumeratePage fetches the next page of the first source group that still
// has pages. The groups are discovered on the first call: the account owner
// followed by every workspace, the latter only for accounts with a token.
func (b *BitbucketCloud) EnumeratePage(ctx context.Context, cursor Cursor) (*Page, Cursor, error) {
	next := cursor.Clone()
	if !next.Initialized {
		groups, err := b.sourceGroups(ctx)
		if err != nil {
			return nil, cursor, err
		}
		next = Cursor{Initialized: true, Groups: groups}
	}

	idx := next.NextGroup()
	if idx < 0 {
		return &Page{}, next, nil
	}
	group := &next.Groups[idx]
	page := group.Attempted + 1

	reqURL := fmt.Sprintf("%s/2.0/repositories/%s?pagelen=%d&page=%d",
		b.baseURL, url.PathEscape(group.Name), b.pageSize, page)
	body, err := b.get(ctx, reqURL)
	if err != nil {
		return nil, cursor, err
	}
	group.Attempted = page
	if group.TotalPages == UnknownTotal {
		group.TotalPages = pageCount(body, b.pageSize)
	}

	var records []RawRecord
	gjson.GetBytes(body, "values").ForEach(func(_, value gjson.Result) bool {
		records = append(records, RawRecord(value.Raw))
		return true
	})

	slog.Debug("Fetched Bitbucket repository page",
		"owner", b.account.Owner,
		"group", group.Name,
		"page", page,
		"total_pages", group.TotalPages,
		"records", len(records))

	return &Page{Records: records, HasMore: !next.Exhausted()}, next, nil
}

// pageCount computes ceil(size/pagelen), defaulting to one page when the
// response does not carry numeric values
func pageCount(body []byte, requested int) int {
	size := gjson.GetBytes(body, "size")
	if size.Type != gjson.Number {
		return 1
	}
	pageLen := requested
	if pl := gjson.GetBytes(body, "pagelen"); pl.Type == gjson.Number && pl.Int() > 0 {
		pageLen = int(pl.Int())
	}
	return int(math.Ceil(size.Float() / float64(pageLen)))
}

func (b *BitbucketCloud) sourceGroups(ctx context.Context) ([]GroupProgress, error) {
	groups := []GroupProgress{{Name: b.account.Owner, TotalPages: UnknownTotal}}
	if !b.account.HasToken() {
		return groups, nil
	}
	workspaces, err := b.ListOrganizations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	for _, ws := range workspaces {
		if ws == b.account.Owner {
			continue
		}
		groups = append(groups, GroupProgress{Name: ws, TotalPages: UnknownTotal})
	}
	return groups, nil
}

// CreateRepositoryRecord normalizes a Bitbucket repository entry
func (b *BitbucketCloud) CreateRepositoryRecord(raw RawRecord) (*models.Repository, error) {
	parsed := gjson.ParseBytes(raw)
	fullName := parsed.Get("full_name").String()
	owner, _, err := splitFullName(fullName)
	if err != nil {
		return nil, err
	}
	access := models.AccessPublic
	if parsed.Get("is_private").Bool() {
		access = models.AccessPrivate
	}
	return &models.Repository{
		Repository: fullName,
		Name:       parsed.Get("name").String(),
		Type:       models.RepositoryType,
		Owner:      owner,
		Provider:   models.ProviderBitbucket,
		Domain:     domainOrDefault(b.account.Domain, bitbucketDefaultDomain),
		Access:     access,
	}, nil
}

// ListBranches returns every branch of repo
func (b *BitbucketCloud) ListBranches(ctx context.Context, repo string) ([]models.Ref, error) {
	return b.listRefs(ctx, repo, "branches")
}

// ListTags returns every tag of repo
func (b *BitbucketCloud) ListTags(ctx context.Context, repo string) ([]models.Ref, error) {
	return b.listRefs(ctx, repo, "tags")
}

func (b *BitbucketCloud) listRefs(ctx context.Context, repo, kind string) ([]models.Ref, error) {
	repoPath, err := b.repoPath(repo)
	if err != nil {
		return nil, err
	}
	var refs []models.Ref
	err = b.followPages(ctx, fmt.Sprintf("%s/refs/%s?pagelen=%d", repoPath, kind, bitbucketRefPageLen),
		func(value gjson.Result) {
			refs = append(refs, models.Ref{
				Name:   value.Get("name").String(),
				Commit: value.Get("target.hash").String(),
			})
		})
	return refs, err
}

// GetBranch returns a single branch
func (b *BitbucketCloud) GetBranch(ctx context.Context, repo, name string) (*models.Ref, error) {
	return b.getRef(ctx, repo, "branches", name)
}

// GetTag returns a single tag
func (b *BitbucketCloud) GetTag(ctx context.Context, repo, name string) (*models.Ref, error) {
	return b.getRef(ctx, repo, "tags", name)
}

func (b *BitbucketCloud) getRef(ctx context.Context, repo, kind, name string) (*models.Ref, error) {
	repoPath, err := b.repoPath(repo)
	if err != nil {
		return nil, err
	}
	body, err := b.get(ctx, fmt.Sprintf("%s/refs/%s/%s", repoPath, kind, url.PathEscape(name)))
	if err != nil {
		return nil, err
	}
	return &models.Ref{
		Name:   gjson.GetBytes(body, "name").String(),
		Commit: gjson.GetBytes(body, "target.hash").String(),
	}, nil
}

// FetchFile returns the raw content of path at ref
func (b *BitbucketCloud) FetchFile(ctx context.Context, repo, ref, path string) ([]byte, error) {
	repoPath, err := b.repoPath(repo)
	if err != nil {
		return nil, err
	}
	return b.get(ctx, fmt.Sprintf("%s/src/%s/%s", repoPath, url.PathEscape(ref), escapePath(path)))
}

// ListOrganizations returns the slugs of the workspaces the account can access
func (b *BitbucketCloud) ListOrganizations(ctx context.Context) ([]string, error) {
	var slugs []string
	err := b.followPages(ctx,
		fmt.Sprintf("%s/2.0/user/permissions/workspaces?pagelen=%d", b.baseURL, bitbucketRefPageLen),
		func(value gjson.Result) {
			if slug := value.Get("workspace.slug").String(); slug != "" {
				slugs = append(slugs, slug)
			}
		})
	return slugs, err
}

// followPages walks a paginated collection through its "next" links
func (b *BitbucketCloud) followPages(ctx context.Context, reqURL string, fn func(gjson.Result)) error {
	for reqURL != "" {
		body, err := b.get(ctx, reqURL)
		if err != nil {
			return err
		}
		gjson.GetBytes(body, "values").ForEach(func(_, value gjson.Result) bool {
			fn(value)
			return true
		})
		reqURL = gjson.GetBytes(body, "next").String()
	}
	return nil
}

func (b *BitbucketCloud) repoPath(repo string) (string, error) {
	owner, name, err := splitFullName(repo)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/2.0/repositories/%s/%s", b.baseURL, url.PathEscape(owner), url.PathEscape(name)), nil
}

// get performs the request. An expired access token is refreshed once and
// the request retried once; a second failure is returned as is.
func (b *BitbucketCloud) get(ctx context.Context, reqURL string) ([]byte, error) {
	resp, err := b.client.Do(ctx, &httpclient.Request{URL: reqURL, Header: b.authHeader()})
	if err != nil && b.canRefresh(err) {
		slog.Info("Bitbucket access token expired, refreshing", "owner", b.account.Owner)
		if refreshErr := b.refresh(ctx); refreshErr != nil {
			return nil, fmt.Errorf("failed to refresh Bitbucket access token: %w", refreshErr)
		}
		resp, err = b.client.Do(ctx, &httpclient.Request{URL: reqURL, Header: b.authHeader()})
	}
	if err != nil {
		return nil, wrapHTTPErr(models.ProviderBitbucket, err)
	}
	return resp.Body, nil
}

func (b *BitbucketCloud) canRefresh(err error) bool {
	if b.refresher == nil || b.account.RefreshToken == "" {
		return false
	}
	httpErr, ok := httpclient.AsHTTPError(err)
	if !ok {
		return false
	}
	msg := envelopeMessage(httpErr.Body, "")
	return strings.Contains(strings.ToLower(msg), tokenExpiredMessage)
}

func (b *BitbucketCloud) refresh(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	token, err := b.refresher.Refresh(ctx, b.account.RefreshToken)
	if err != nil {
		return err
	}
	b.account.Token = token.AccessToken
	if token.RefreshToken != "" {
		b.account.RefreshToken = token.RefreshToken
	}
	return nil
}

func (b *BitbucketCloud) authHeader() http.Header {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case b.account.Token != "":
		return http.Header{"Authorization": []string{"Bearer " + b.account.Token}}
	case b.account.Username != "":
		creds := base64.StdEncoding.EncodeToString([]byte(b.account.Username + ":" + b.account.Password))
		return http.Header{"Authorization": []string{"Basic " + creds}}
	default:
		return nil
	}
}

// escapePath escapes every segment of a slash separated path
func escapePath(path string) string {
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
