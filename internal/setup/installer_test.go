package setup

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"setupclojure/internal/platform"
	"setupclojure/internal/tools"
)

// hostRewrite sends every request to target, keeping the path.
type hostRewrite struct {
	target *url.URL
}

func (h hostRewrite) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.URL.Scheme = h.target.Scheme
	clone.URL.Host = h.target.Host
	clone.Host = h.target.Host
	return http.DefaultTransport.RoundTrip(clone)
}

type refusingRunner struct{}

func (refusingRunner) Run(context.Context, string, []string, tools.RunOptions) (tools.RunResult, error) {
	return tools.RunResult{}, errors.New("archive installs run no commands")
}

func tarGzWith(t *testing.T, name, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0o755, Size: int64(len(body)), Typeflag: tar.TypeReg}))
	_, err := tw.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func zipWith(t *testing.T, name, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	hdr := &zip.FileHeader{Name: name, Method: zip.Deflate}
	hdr.SetMode(0o755)
	w, err := zw.CreateHeader(hdr)
	require.NoError(t, err)
	_, err = w.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestRunWithDownloadFailurePublishesSiblings(t *testing.T) {
	files := map[string][]byte{
		"/babashka/babashka/releases/download/v1.3.186/babashka-1.3.186-linux-amd64-static.tar.gz": tarGzWith(t, "bb", "#!/bin/sh\n"),
		"/clj-kondo/clj-kondo/releases/download/v2024.02.12/clj-kondo-2024.02.12-linux-amd64.zip": zipWith(t, "clj-kondo", "kondo"),
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)
	target, err := url.Parse(server.URL)
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	downloader := tools.NewDownloader(fs, 0)
	downloader.SetHTTPClient(&http.Client{Transport: hostRewrite{target: target}})
	installer := &tools.Installer{
		FS:         fs,
		Cache:      tools.NewDirCache(fs, "/toolcache"),
		Releases:   tools.NewReleaseClient(server.URL),
		Downloader: downloader,
		Runner:     refusingRunner{},
		Platform:   platform.Linux,
		Arch:       platform.AMD64,
		TempDir:    "/runner/temp",
	}

	pub := &recordingPublisher{}
	o := &Orchestrator{Installer: installer, Publisher: pub}
	summary, err := o.Run(context.Background(), linuxOptions(
		tools.Request{Tool: "bb", Version: "1.3.186"},
		tools.Request{Tool: "clj-kondo", Version: "2024.02.12"},
		tools.Request{Tool: "cljfmt", Version: "0.12.0"},
	))

	var derr *tools.DownloadError
	require.True(t, errors.As(err, &derr), "expected a download error, got %v", err)
	assert.Equal(t, http.StatusNotFound, derr.StatusCode)

	assert.ElementsMatch(t, []string{
		filepath.Join("/toolcache", "Babashka", "1.3.186", "amd64"),
		filepath.Join("/toolcache", "clj-kondo", "2024.02.12", "amd64"),
	}, pub.paths)

	failed := summary.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "cljfmt", failed[0].Request.Tool)

	_, ok := installer.Cache.Find("cljfmt", "0.12.0", platform.AMD64)
	assert.False(t, ok, "a failed download leaves no cache entry")
}
