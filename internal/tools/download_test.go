package tools

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloaderFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"), "tokens stay with GitHub hosts")
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	fs := afero.NewMemMapFs()
	n, err := NewDownloader(fs, 0).Fetch(context.Background(), srv.URL+"/a/b.tar.gz", "/scratch/b.tar.gz", "token")
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)

	body, err := afero.ReadFile(fs, "/scratch/b.tar.gz")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(body))
}

func TestDownloaderRetriesServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	d := NewDownloader(afero.NewMemMapFs(), 2)
	d.client.RetryWaitMin = 0
	d.client.RetryWaitMax = 0
	_, err := d.Fetch(context.Background(), srv.URL+"/x", "/scratch/x", "")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDownloaderTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewDownloader(afero.NewMemMapFs(), 0).Fetch(context.Background(), url+"/x", "/scratch/x", "")
	var derr *DownloadError
	require.ErrorAs(t, err, &derr)
	assert.True(t, errors.Is(err, ErrTransport))
}

func TestGithubHosted(t *testing.T) {
	cases := map[string]bool{
		"https://github.com/babashka/babashka/releases/download/v1/x.zip":         true,
		"https://api.github.com/repos/x/y/releases/latest":                        true,
		"https://raw.githubusercontent.com/technomancy/leiningen/stable/bin/lein": true,
		"https://download.clojure.org/install/linux-install-1.11.1.1413.sh":       false,
		"https://github.com.evil.example/x":                                       false,
	}
	for in, want := range cases {
		assert.Equal(t, want, githubHosted(in), in)
	}
}
