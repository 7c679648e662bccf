// Package catalog discovers installable toolchains from a remote JSON
// catalog and downloads their archives.
//
// The catalog serves two documents:
//
//	GET {base}/releases.json                 stable releases
//	GET {base}/dev/{branch}/snapshots.json   snapshots of main or M.m
//
// Both are arrays of {"name", "date", "assets": [{"platform", "arch", "url",
// "sha256"}]}.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"tcm/internal/state"
	"tcm/internal/toolchain"
)

const (
	DefaultBaseURL = "https://download.swift.org/catalog"
	DefaultTimeout = 30 * time.Second

	maxDocumentSize = 32 << 20
)

// ErrNotFound is matched by NotFoundError and by missing snapshot branches.
var ErrNotFound = errors.New("not found in catalog")

// NotFoundError reports a selector with no installable match.
type NotFoundError struct {
	Selector toolchain.Selector
	Platform string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no toolchain matching %q is available for %s", e.Selector.String(), e.Platform)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// BranchNotFoundError reports a snapshot branch the catalog does not know.
type BranchNotFoundError struct {
	Branch toolchain.Branch
}

func (e *BranchNotFoundError) Error() string {
	return fmt.Sprintf("snapshot branch %s not found in catalog", e.Branch)
}

func (e *BranchNotFoundError) Unwrap() error { return ErrNotFound }

// Asset is one downloadable archive.
type Asset struct {
	Platform string `json:"platform"`
	Arch     string `json:"arch"`
	URL      string `json:"url"`
	SHA256   string `json:"sha256"`
}

// Release is a catalog document row.
type Release struct {
	Name   string  `json:"name"`
	Date   string  `json:"date,omitempty"`
	Assets []Asset `json:"assets"`
}

// Entry is an installable toolchain with the asset for this platform.
type Entry struct {
	Version toolchain.Version
	Asset   Asset
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	Platform   state.PlatformDefinition
	UserAgent  string
	CacheFile  string
	CacheTTL   time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client reads the remote catalog.
type Client struct {
	baseURL   string
	http      *http.Client
	platform  state.PlatformDefinition
	userAgent string
	cache     *cache
	logger    *slog.Logger
}

// New returns a Client. An empty CacheFile disables caching.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "tcm"
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		http:      httpClient,
		platform:  opts.Platform,
		userAgent: opts.UserAgent,
		cache:     newCache(opts.CacheFile, opts.CacheTTL),
		logger:    opts.Logger,
	}
}

// ListReleases returns the stable releases installable on this platform
// that keep reports true for, ascending. A nil keep keeps everything.
func (c *Client) ListReleases(ctx context.Context, keep func(toolchain.Version) bool) ([]Entry, error) {
	var releases []Release
	if err := c.fetchJSON(ctx, "/releases.json", &releases); err != nil {
		return nil, fmt.Errorf("list releases: %w", err)
	}
	return c.entries(releases, func(v toolchain.Version) bool {
		return v.IsStable() && (keep == nil || keep(v))
	}), nil
}

// ListSnapshots returns the snapshots of branch installable on this
// platform that keep reports true for, ascending.
func (c *Client) ListSnapshots(ctx context.Context, branch toolchain.Branch, keep func(toolchain.Version) bool) ([]Entry, error) {
	var snapshots []Release
	err := c.fetchJSON(ctx, "/dev/"+branch.String()+"/snapshots.json", &snapshots)
	if errors.Is(err, errHTTPNotFound) {
		return nil, &BranchNotFoundError{Branch: branch}
	}
	if err != nil {
		return nil, fmt.Errorf("list %s snapshots: %w", branch, err)
	}
	return c.entries(snapshots, func(v toolchain.Version) bool {
		return v.IsSnapshot() && v.Branch == branch && (keep == nil || keep(v))
	}), nil
}

// Latest returns the newest installable toolchain matching sel.
func (c *Client) Latest(ctx context.Context, sel toolchain.Selector) (Entry, error) {
	var (
		entries []Entry
		err     error
	)
	if sel.IsRelease() {
		entries, err = c.ListReleases(ctx, sel.Matches)
	} else {
		entries, err = c.ListSnapshots(ctx, sel.Branch, sel.Matches)
	}
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		return Entry{}, &NotFoundError{Selector: sel, Platform: c.platform.NamePretty}
	}
	return entries[len(entries)-1], nil
}

// ListAvailable lists installable toolchains matching sel, ascending. A nil
// selector lists stable releases plus snapshots of each branch in branches;
// the documents are fetched concurrently.
func (c *Client) ListAvailable(ctx context.Context, sel *toolchain.Selector, branches ...toolchain.Branch) ([]Entry, error) {
	wantReleases := sel == nil || sel.IsRelease()
	if sel != nil && !sel.IsRelease() {
		branches = []toolchain.Branch{sel.Branch}
	} else if sel != nil {
		branches = nil
	}

	keep := func(v toolchain.Version) bool { return sel == nil || sel.Matches(v) }
	results := make([][]Entry, len(branches)+1)

	g, gctx := errgroup.WithContext(ctx)
	if wantReleases {
		g.Go(func() error {
			entries, err := c.ListReleases(gctx, keep)
			results[0] = entries
			return err
		})
	}
	for i, branch := range branches {
		g.Go(func() error {
			entries, err := c.ListSnapshots(gctx, branch, keep)
			results[i+1] = entries
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Entry
	for _, entries := range results {
		all = append(all, entries...)
	}
	slices.SortFunc(all, func(a, b Entry) int { return toolchain.Compare(a.Version, b.Version) })
	return all, nil
}

// entries keeps the rows that parse, pass keep and have an asset for this
// platform, sorted ascending.
func (c *Client) entries(rows []Release, keep func(toolchain.Version) bool) []Entry {
	var out []Entry
	for _, row := range rows {
		v, err := parseName(row.Name)
		if err != nil {
			c.logger.Debug("catalog: skipping row", slog.String("name", row.Name), slog.String("error", err.Error()))
			continue
		}
		if !keep(v) {
			continue
		}
		asset, ok := c.assetFor(row.Assets)
		if !ok {
			continue
		}
		out = append(out, Entry{Version: v, Asset: asset})
	}
	slices.SortFunc(out, func(a, b Entry) int { return toolchain.Compare(a.Version, b.Version) })
	return out
}

func (c *Client) assetFor(assets []Asset) (Asset, bool) {
	for _, a := range assets {
		if a.Platform != c.platform.Name && a.Platform != c.platform.NameFull {
			continue
		}
		if a.Arch != "" && c.platform.Architecture != "" && a.Arch != c.platform.Architecture {
			continue
		}
		return a, true
	}
	return Asset{}, false
}

// parseName accepts canonical names and the long snapshot spellings, which
// name exactly one toolchain once dated.
func parseName(name string) (toolchain.Version, error) {
	if v, err := toolchain.ParseVersion(name); err == nil {
		return v, nil
	}
	sel, err := toolchain.ParseSelector(name)
	if err != nil {
		return toolchain.Version{}, err
	}
	v, ok := sel.Version()
	if !ok {
		return toolchain.Version{}, &toolchain.ParseError{Input: name, What: "version"}
	}
	return v, nil
}

var errHTTPNotFound = errors.New("http 404")

func (c *Client) fetchJSON(ctx context.Context, path string, out any) error {
	if body, ok := c.cache.get(path); ok {
		if err := json.Unmarshal(body, out); err == nil {
			c.logger.Debug("catalog: cache hit", slog.String("path", path))
			return nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errHTTPNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("fetch %s: unexpected status %s", path, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	c.cache.put(path, body)
	c.logger.Debug("catalog: fetched", slog.String("path", path), slog.Int("bytes", len(body)))
	return nil
}
