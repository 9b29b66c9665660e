package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/go-github/v48/github"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"github.com/stacklok/toolhive-catalog-sync/internal/models"
)

const (
	githubDefaultDomain = "github.com"
	githubAffiliation   = "owner,collaborator,organization_member"
	githubOwnerType     = "owner"
)

// GitHub enumerates repositories through the GitHub REST API. Pagination
// follows the Link response header.
type GitHub struct {
	client   *github.Client
	account  *models.Account
	pageSize int
}

var _ Provider = (*GitHub)(nil)

// NewGitHub creates a GitHub adapter for account
func NewGitHub(account *models.Account, opts Options) (*GitHub, error) {
	opts = opts.withDefaults()

	httpClient := &http.Client{}
	if account.HasToken() {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: account.Token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}
	httpClient.Timeout = opts.Timeout

	client := github.NewClient(httpClient)
	if opts.BaseURL != "" {
		baseURL := opts.BaseURL
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL %q: %w", opts.BaseURL, err)
		}
		client.BaseURL = u
	}

	return &GitHub{
		client:   client,
		account:  account,
		pageSize: opts.PageSize,
	}, nil
}

// Name returns the provider key
func (*GitHub) Name() string {
	return models.ProviderGitHub
}

// public reports whether the account is read through the owner's public
// endpoints instead of the authenticated /user ones
func (g *GitHub) public() bool {
	return g.account.AccessLevel == models.AccessPublic || !g.account.HasToken()
}

// self is the user argument of go-github calls: empty selects the
// authenticated user
func (g *GitHub) self() string {
	if g.public() {
		return g.account.Owner
	}
	return ""
}

// Authenticate resolves the authenticated user, or the owner of a public
// account
func (g *GitHub) Authenticate(ctx context.Context) (*Identity, error) {
	user, _, err := g.client.Users.Get(ctx, g.self())
	if err != nil {
		return nil, g.wrapErr(err)
	}
	return &Identity{
		Owner:    user.GetLogin(),
		GlobalID: strconv.FormatInt(user.GetID(), 10),
	}, nil
}

// EnumeratePage fetches the next page of the account's repositories. The total
// page count is read from the "last" relation of the first page and cached in
// the cursor; hasMore follows the "next" relation.
func (g *GitHub) EnumeratePage(ctx context.Context, cursor Cursor) (*Page, Cursor, error) {
	next := singleGroupCursor(cursor, g.account.Owner)
	group := &next.Groups[0]
	if group.Exhausted() {
		return &Page{}, next, nil
	}

	page := group.Attempted + 1
	listOpts := &github.RepositoryListOptions{
		Affiliation: githubAffiliation,
		ListOptions: github.ListOptions{Page: page, PerPage: g.pageSize},
	}
	if g.public() {
		// affiliation is only accepted on /user/repos
		listOpts.Affiliation = ""
		listOpts.Type = githubOwnerType
	}
	repos, resp, err := g.client.Repositories.List(ctx, g.self(), listOpts)
	if err != nil {
		return nil, cursor, g.wrapErr(err)
	}
	group.Attempted = page

	if group.TotalPages == UnknownTotal {
		group.TotalPages = page
		if resp != nil && resp.LastPage > 0 {
			group.TotalPages = resp.LastPage
		}
	}

	hasMore := resp != nil && resp.NextPage != 0
	if !hasMore {
		group.TotalPages = group.Attempted
	}

	records := make([]RawRecord, 0, len(repos))
	for _, repo := range repos {
		raw, err := json.Marshal(repo)
		if err != nil {
			return nil, cursor, fmt.Errorf("failed to encode GitHub repository: %w", err)
		}
		records = append(records, raw)
	}

	slog.Debug("Fetched GitHub repository page",
		"owner", g.account.Owner,
		"page", page,
		"total_pages", group.TotalPages,
		"records", len(records))

	return &Page{Records: records, HasMore: hasMore}, next, nil
}

// CreateRepositoryRecord normalizes a GitHub repository entry
func (g *GitHub) CreateRepositoryRecord(raw RawRecord) (*models.Repository, error) {
	parsed := gjson.ParseBytes(raw)
	fullName := parsed.Get("full_name").String()
	if fullName == "" {
		return nil, fmt.Errorf("GitHub repository record has no full_name")
	}
	access := models.AccessPublic
	if parsed.Get("private").Bool() {
		access = models.AccessPrivate
	}
	return &models.Repository{
		Repository: fullName,
		Name:       parsed.Get("name").String(),
		Type:       models.RepositoryType,
		Owner:      parsed.Get("owner.login").String(),
		Provider:   models.ProviderGitHub,
		Domain:     domainOrDefault(g.account.Domain, githubDefaultDomain),
		Access:     access,
	}, nil
}

// ListBranches returns every branch of repo
func (g *GitHub) ListBranches(ctx context.Context, repo string) ([]models.Ref, error) {
	owner, name, err := splitFullName(repo)
	if err != nil {
		return nil, err
	}

	var refs []models.Ref
	opts := &github.BranchListOptions{ListOptions: github.ListOptions{PerPage: g.pageSize}}
	for {
		branches, resp, err := g.client.Repositories.ListBranches(ctx, owner, name, opts)
		if err != nil {
			return nil, g.wrapErr(err)
		}
		for _, b := range branches {
			refs = append(refs, models.Ref{Name: b.GetName(), Commit: b.GetCommit().GetSHA()})
		}
		if resp == nil || resp.NextPage == 0 {
			return refs, nil
		}
		opts.Page = resp.NextPage
	}
}

// ListTags returns every tag of repo
func (g *GitHub) ListTags(ctx context.Context, repo string) ([]models.Ref, error) {
	owner, name, err := splitFullName(repo)
	if err != nil {
		return nil, err
	}

	var refs []models.Ref
	opts := &github.ListOptions{PerPage: g.pageSize}
	for {
		tags, resp, err := g.client.Repositories.ListTags(ctx, owner, name, opts)
		if err != nil {
			return nil, g.wrapErr(err)
		}
		for _, t := range tags {
			refs = append(refs, models.Ref{Name: t.GetName(), Commit: t.GetCommit().GetSHA()})
		}
		if resp == nil || resp.NextPage == 0 {
			return refs, nil
		}
		opts.Page = resp.NextPage
	}
}

// GetBranch returns a single branch
func (g *GitHub) GetBranch(ctx context.Context, repo, branch string) (*models.Ref, error) {
	return g.getRef(ctx, repo, "heads/"+branch, branch)
}

// GetTag returns a single tag
func (g *GitHub) GetTag(ctx context.Context, repo, tag string) (*models.Ref, error) {
	return g.getRef(ctx, repo, "tags/"+tag, tag)
}

func (g *GitHub) getRef(ctx context.Context, repo, ref, name string) (*models.Ref, error) {
	owner, repoName, err := splitFullName(repo)
	if err != nil {
		return nil, err
	}
	reference, _, err := g.client.Git.GetRef(ctx, owner, repoName, ref)
	if err != nil {
		return nil, g.wrapErr(err)
	}
	return &models.Ref{Name: name, Commit: reference.GetObject().GetSHA()}, nil
}

// FetchFile returns the decoded content of path at ref
func (g *GitHub) FetchFile(ctx context.Context, repo, ref, path string) ([]byte, error) {
	owner, name, err := splitFullName(repo)
	if err != nil {
		return nil, err
	}
	file, _, _, err := g.client.Repositories.GetContents(ctx, owner, name, path,
		&github.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		return nil, g.wrapErr(err)
	}
	if file == nil {
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotFound, path)
	}
	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return []byte(content), nil
}

// ListOrganizations returns the logins of the user's organizations. Public
// accounts only see public memberships.
func (g *GitHub) ListOrganizations(ctx context.Context) ([]string, error) {
	var orgs []string
	opts := &github.ListOptions{PerPage: g.pageSize}
	for {
		page, resp, err := g.client.Organizations.List(ctx, g.self(), opts)
		if err != nil {
			return nil, g.wrapErr(err)
		}
		for _, org := range page {
			orgs = append(orgs, org.GetLogin())
		}
		if resp == nil || resp.NextPage == 0 {
			return orgs, nil
		}
		opts.Page = resp.NextPage
	}
}

// wrapErr maps go-github errors onto the provider error kinds
func (*GitHub) wrapErr(err error) error {
	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		if errResp.Response.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrNotFound, errResp.Message)
		}
		return &APIError{
			Provider:   models.ProviderGitHub,
			StatusCode: errResp.Response.StatusCode,
			Message:    errResp.Message,
		}
	}
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) && rateErr.Response != nil {
		return &APIError{
			Provider:   models.ProviderGitHub,
			StatusCode: rateErr.Response.StatusCode,
			Message:    rateErr.Message,
		}
	}
	return &TransportError{Provider: models.ProviderGitHub, Err: err}
}
