package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Downloader fetches artifacts over HTTP with retries onto an afero filesystem.
type Downloader struct {
	FS     afero.Fs
	client *retryablehttp.Client
}

// NewDownloader returns a Downloader that retries transient failures up to
// retries times.
func NewDownloader(fs afero.Fs, retries int) *Downloader {
	client := retryablehttp.NewClient()
	client.RetryMax = retries
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.Logger = retryLogger{entry: log.WithField("component", "download")}
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return &Downloader{FS: fs, client: client}
}

// SetHTTPClient replaces the client the retry layer sends requests through.
func (d *Downloader) SetHTTPClient(c *http.Client) {
	d.client.HTTPClient = c
}

// Fetch downloads rawURL into dest and returns the number of bytes written.
// The token is only attached for GitHub-hosted URLs.
func (d *Downloader) Fetch(ctx context.Context, rawURL, dest, token string) (int64, error) {
	if err := d.FS.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, &DownloadError{URL: rawURL, Err: fmt.Errorf("prepare download destination: %w", err)}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, &DownloadError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", "setup-clojure")
	if token != "" && githubHosted(rawURL) {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, &DownloadError{URL: rawURL, Err: fmt.Errorf("%w: %v", ErrTransport, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, &DownloadError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	tmp, err := afero.TempFile(d.FS, filepath.Dir(dest), "download-*.tmp")
	if err != nil {
		return 0, &DownloadError{URL: rawURL, Err: fmt.Errorf("create temp file: %w", err)}
	}
	tmpPath := tmp.Name()
	defer func() { _ = d.FS.Remove(tmpPath) }()

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		return 0, &DownloadError{URL: rawURL, Err: fmt.Errorf("write temp file: %w", err)}
	}
	if err := tmp.Close(); err != nil {
		return 0, &DownloadError{URL: rawURL, Err: fmt.Errorf("close temp file: %w", err)}
	}
	if err := d.FS.Rename(tmpPath, dest); err != nil {
		return 0, &DownloadError{URL: rawURL, Err: fmt.Errorf("finalize download: %w", err)}
	}
	return n, nil
}

func githubHosted(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "github.com" || host == "api.github.com" || strings.HasSuffix(host, ".githubusercontent.com")
}

// retryLogger adapts logrus to retryablehttp's leveled logger.
type retryLogger struct {
	entry *log.Entry
}

func (l retryLogger) fields(kv []interface{}) *log.Entry {
	e := l.entry
	for i := 0; i+1 < len(kv); i += 2 {
		e = e.WithField(fmt.Sprint(kv[i]), kv[i+1])
	}
	return e
}

func (l retryLogger) Error(msg string, kv ...interface{}) { l.fields(kv).Debug(msg) }
func (l retryLogger) Info(msg string, kv ...interface{})  { l.fields(kv).Debug(msg) }
func (l retryLogger) Debug(msg string, kv ...interface{}) { l.fields(kv).Debug(msg) }
func (l retryLogger) Warn(msg string, kv ...interface{})  { l.fields(kv).Debug(msg) }
