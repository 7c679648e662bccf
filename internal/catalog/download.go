package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ChecksumError reports a download whose digest does not match the catalog.
type ChecksumError struct {
	URL      string
	Expected string
	Actual   string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s: expected %s, got %s", e.URL, e.Expected, e.Actual)
}

// Matches reports whether sum is the asset's digest. Assets without a digest
// match nothing, so they are always fetched again.
func (a Asset) Matches(sum string) bool {
	return a.SHA256 != "" && strings.EqualFold(a.SHA256, sum)
}

// Download fetches entry's archive into dir and returns its path. An archive
// already present with the expected checksum is reused.
func (c *Client) Download(ctx context.Context, entry Entry, dir string) (string, error) {
	dest, err := archivePath(dir, entry.Asset.URL)
	if err != nil {
		return "", err
	}
	if sum, err := fileChecksum(dest); err == nil && entry.Asset.Matches(sum) {
		c.logger.Info("catalog: reusing download", slog.String("path", dest))
		return dest, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("prepare download dir: %w", err)
	}
	body, err := c.openArchive(ctx, entry.Asset.URL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	staged, err := stage(dir)
	if err != nil {
		return "", err
	}
	defer staged.discard()

	if _, err := io.Copy(staged, body); err != nil {
		return "", fmt.Errorf("download %s: %w", entry.Asset.URL, err)
	}
	if sum := staged.sum(); entry.Asset.SHA256 != "" && !entry.Asset.Matches(sum) {
		return "", &ChecksumError{URL: entry.Asset.URL, Expected: entry.Asset.SHA256, Actual: sum}
	}
	if err := staged.commit(dest); err != nil {
		return "", err
	}
	c.logger.Info("catalog: downloaded", slog.String("url", entry.Asset.URL), slog.String("path", dest))
	return dest, nil
}

// openArchive starts the GET for an archive. The caller closes the body.
func (c *Client) openArchive(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	// Archives are large; the client timeout only bounds catalog documents.
	client := *c.http
	client.Timeout = 0
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", rawURL, err)
	}
	if resp.StatusCode/100 != 2 {
		resp.Body.Close()
		return nil, fmt.Errorf("download %s: unexpected status %s", rawURL, resp.Status)
	}
	return resp.Body, nil
}

// stagedFile is a temp file in the download dir that hashes what is written
// to it. It only appears under its final name after commit.
type stagedFile struct {
	f      *os.File
	digest hash.Hash
	closed bool
}

func stage(dir string) (*stagedFile, error) {
	f, err := os.CreateTemp(dir, "download-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	return &stagedFile{f: f, digest: sha256.New()}, nil
}

func (s *stagedFile) Write(p []byte) (int, error) {
	n, err := s.f.Write(p)
	s.digest.Write(p[:n])
	return n, err
}

func (s *stagedFile) sum() string {
	return hex.EncodeToString(s.digest.Sum(nil))
}

func (s *stagedFile) commit(dest string) error {
	s.closed = true
	if err := s.f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(s.f.Name(), dest); err != nil {
		return fmt.Errorf("finalize download: %w", err)
	}
	return nil
}

// discard removes the temp file. It is a no-op after a successful commit.
func (s *stagedFile) discard() {
	if !s.closed {
		s.f.Close()
	}
	_ = os.Remove(s.f.Name())
}

// archivePath names the local copy after the last element of the URL path.
func archivePath(dir, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse download url: %w", err)
	}
	switch name := path.Base(u.Path); name {
	case ".", "/", "":
		return "", fmt.Errorf("infer archive name from url: %s", rawURL)
	default:
		return filepath.Join(dir, name), nil
	}
}

func fileChecksum(p string) (string, error) {
	f, err := os.Open(p)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", p, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
