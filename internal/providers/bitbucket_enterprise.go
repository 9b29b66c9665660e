package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/stacklok/toolhive-catalog-sync/internal/httpclient"
	"github.com/stacklok/toolhive-catalog-sync/internal/models"
)

const (
	enterpriseAPIPrefix = "/rest/api/1.0"

	// MaxEnterpriseFileSize is the largest file reassembled from browse lines
	MaxEnterpriseFileSize = 1 << 20
)

// BitbucketEnterprise enumerates repositories of a self hosted Bitbucket
// server using limit/start pagination terminated by isLastPage.
type BitbucketEnterprise struct {
	client   httpclient.Client
	baseURL  string
	account  *models.Account
	pageSize int
}

var _ Provider = (*BitbucketEnterprise)(nil)

// NewBitbucketEnterprise creates a Bitbucket Enterprise adapter for account.
// The API root defaults to the account domain.
func NewBitbucketEnterprise(account *models.Account, opts Options) (*BitbucketEnterprise, error) {
	opts = opts.withDefaults()
	baseURL := opts.BaseURL
	if baseURL == "" {
		if account.Domain == "" {
			return nil, fmt.Errorf("bitbucket enterprise account %q has no domain", account.Owner)
		}
		baseURL = account.Domain
		if !strings.Contains(baseURL, "://") {
			baseURL = "https://" + baseURL
		}
	}

	var auth httpclient.Auth = httpclient.NoAuth{}
	switch {
	case account.Token != "":
		auth = httpclient.BearerToken{Token: account.Token}
	case account.Username != "":
		auth = httpclient.BasicAuth{Username: account.Username, Password: account.Password}
	}

	return &BitbucketEnterprise{
		client: httpclient.NewDefaultClient(opts.Timeout,
			httpclient.WithAuth(auth),
			httpclient.WithRateLimit(opts.RequestsPerSecond, opts.Burst)),
		baseURL:  strings.TrimSuffix(baseURL, "/") + enterpriseAPIPrefix,
		account:  account,
		pageSize: opts.PageSize,
	}, nil
}

// Name returns the provider key
func (*BitbucketEnterprise) Name() string {
	return models.ProviderBitbucketEnterprise
}

// Authenticate resolves the configured user
func (e *BitbucketEnterprise) Authenticate(ctx context.Context) (*Identity, error) {
	username := e.account.Username
	if username == "" {
		username = e.account.Owner
	}
	body, err := e.get(ctx, fmt.Sprintf("%s/users/%s", e.baseURL, url.PathEscape(username)))
	if err != nil {
		return nil, err
	}
	return &Identity{
		Owner:    gjson.GetBytes(body, "slug").String(),
		GlobalID: gjson.GetBytes(body, "id").String(),
	}, nil
}

// EnumeratePage fetches the page starting at the cursor offset. The total is
// unknown until the server reports isLastPage.
func (e *BitbucketEnterprise) EnumeratePage(ctx context.Context, cursor Cursor) (*Page, Cursor, error) {
	next := singleGroupCursor(cursor, e.account.Owner)
	group := &next.Groups[0]
	if group.Exhausted() {
		return &Page{}, next, nil
	}

	body, err := e.get(ctx, fmt.Sprintf("%s/repos?limit=%d&start=%d", e.baseURL, e.pageSize, group.Offset))
	if err != nil {
		return nil, cursor, err
	}
	group.Attempted++

	lastPage := gjson.GetBytes(body, "isLastPage").Bool()
	if lastPage {
		group.TotalPages = group.Attempted
	} else {
		nextStart := gjson.GetBytes(body, "nextPageStart")
		if !nextStart.Exists() || int(nextStart.Int()) <= group.Offset {
			// a server that does not advance would loop forever
			return nil, cursor, &APIError{
				Provider:   models.ProviderBitbucketEnterprise,
				StatusCode: http.StatusOK,
				Message:    fmt.Sprintf("page at start=%d did not advance", group.Offset),
			}
		}
		group.Offset = int(nextStart.Int())
	}

	var records []RawRecord
	gjson.GetBytes(body, "values").ForEach(func(_, value gjson.Result) bool {
		records = append(records, RawRecord(value.Raw))
		return true
	})

	slog.Debug("Fetched Bitbucket Enterprise repository page",
		"owner", e.account.Owner,
		"page", group.Attempted,
		"last_page", lastPage,
		"records", len(records))

	return &Page{Records: records, HasMore: !lastPage}, next, nil
}

// CreateRepositoryRecord normalizes a Bitbucket Enterprise repository entry.
// The full name is "<project key>/<slug>".
func (e *BitbucketEnterprise) CreateRepositoryRecord(raw RawRecord) (*models.Repository, error) {
	parsed := gjson.ParseBytes(raw)
	project := parsed.Get("project.key").String()
	slug := parsed.Get("slug").String()
	if project == "" || slug == "" {
		return nil, fmt.Errorf("bitbucket enterprise repository record has no project key or slug")
	}
	access := models.AccessPrivate
	if parsed.Get("public").Bool() {
		access = models.AccessPublic
	}
	domain := e.account.Domain
	if u, err := url.Parse(e.baseURL); err == nil && domain == "" {
		domain = u.Host
	}
	return &models.Repository{
		Repository: project + "/" + slug,
		Name:       parsed.Get("name").String(),
		Type:       models.RepositoryType,
		Owner:      project,
		Provider:   models.ProviderBitbucketEnterprise,
		Domain:     domain,
		Access:     access,
	}, nil
}

// ListBranches returns every branch of repo
func (e *BitbucketEnterprise) ListBranches(ctx context.Context, repo string) ([]models.Ref, error) {
	return e.listRefs(ctx, repo, "branches", "")
}

// ListTags returns every tag of repo
func (e *BitbucketEnterprise) ListTags(ctx context.Context, repo string) ([]models.Ref, error) {
	return e.listRefs(ctx, repo, "tags", "")
}

func (e *BitbucketEnterprise) listRefs(ctx context.Context, repo, kind, filter string) ([]models.Ref, error) {
	repoPath, err := e.repoPath(repo)
	if err != nil {
		return nil, err
	}
	query := url.Values{}
	if filter != "" {
		query.Set("filterText", filter)
	}
	var refs []models.Ref
	err = e.walk(ctx, repoPath+"/"+kind, query, func(value gjson.Result) int {
		refs = append(refs, models.Ref{
			Name:   value.Get("displayId").String(),
			Commit: value.Get("latestCommit").String(),
		})
		return 0
	})
	return refs, err
}

// GetBranch returns a single branch. The server only supports filtering, so
// the exact name is matched among the filtered results.
func (e *BitbucketEnterprise) GetBranch(ctx context.Context, repo, name string) (*models.Ref, error) {
	refs, err := e.listRefs(ctx, repo, "branches", name)
	if err != nil {
		return nil, err
	}
	for i := range refs {
		if refs[i].Name == name {
			return &refs[i], nil
		}
	}
	return nil, fmt.Errorf("%w: branch %s", ErrNotFound, name)
}

// GetTag returns a single tag
func (e *BitbucketEnterprise) GetTag(ctx context.Context, repo, name string) (*models.Ref, error) {
	repoPath, err := e.repoPath(repo)
	if err != nil {
		return nil, err
	}
	body, err := e.get(ctx, repoPath+"/tags/"+url.PathEscape(name))
	if err != nil {
		return nil, err
	}
	return &models.Ref{
		Name:   gjson.GetBytes(body, "displayId").String(),
		Commit: gjson.GetBytes(body, "latestCommit").String(),
	}, nil
}

// FetchFile reassembles path at ref from the browse endpoint lines. Files
// larger than MaxEnterpriseFileSize fail with ErrFileTooLarge.
func (e *BitbucketEnterprise) FetchFile(ctx context.Context, repo, ref, path string) ([]byte, error) {
	repoPath, err := e.repoPath(repo)
	if err != nil {
		return nil, err
	}
	query := url.Values{}
	query.Set("at", ref)

	var sb strings.Builder
	lines := 0
	err = e.walkField(ctx, repoPath+"/browse/"+escapePath(path), query, "lines", func(value gjson.Result) int {
		if lines > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(value.Get("text").String())
		lines++
		return sb.Len()
	})
	if err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

// ListOrganizations returns the keys of the projects visible to the account
func (e *BitbucketEnterprise) ListOrganizations(ctx context.Context) ([]string, error) {
	var keys []string
	err := e.walk(ctx, e.baseURL+"/projects", url.Values{}, func(value gjson.Result) int {
		keys = append(keys, value.Get("key").String())
		return 0
	})
	return keys, err
}

func (e *BitbucketEnterprise) walk(ctx context.Context, endpoint string, query url.Values, fn func(gjson.Result) int) error {
	return e.walkField(ctx, endpoint, query, "values", fn)
}

// walkField follows limit/start pages of endpoint until isLastPage. fn returns
// the accumulated byte count, which is checked against the file size ceiling.
func (e *BitbucketEnterprise) walkField(
	ctx context.Context, endpoint string, query url.Values, field string, fn func(gjson.Result) int,
) error {
	start := 0
	for {
		query.Set("limit", fmt.Sprint(e.pageSize))
		query.Set("start", fmt.Sprint(start))
		body, err := e.get(ctx, endpoint+"?"+query.Encode())
		if err != nil {
			return err
		}

		size := 0
		gjson.GetBytes(body, field).ForEach(func(_, value gjson.Result) bool {
			size = fn(value)
			return size <= MaxEnterpriseFileSize
		})
		if size > MaxEnterpriseFileSize {
			return fmt.Errorf("%w: %s is larger than %d bytes", ErrFileTooLarge, endpoint, MaxEnterpriseFileSize)
		}

		if gjson.GetBytes(body, "isLastPage").Bool() {
			return nil
		}
		nextStart := int(gjson.GetBytes(body, "nextPageStart").Int())
		if nextStart <= start {
			return nil
		}
		start = nextStart
	}
}

func (e *BitbucketEnterprise) repoPath(repo string) (string, error) {
	project, slug, err := splitFullName(repo)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/projects/%s/repos/%s", e.baseURL, url.PathEscape(project), url.PathEscape(slug)), nil
}

func (e *BitbucketEnterprise) get(ctx context.Context, reqURL string) ([]byte, error) {
	body, err := e.client.Get(ctx, reqURL)
	if err != nil {
		return nil, wrapHTTPErr(models.ProviderBitbucketEnterprise, err)
	}
	return body, nil
}
