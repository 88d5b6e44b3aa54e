package tools

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReleaseClient(url string, attempts int) *ReleaseClient {
	c := NewReleaseClient(url)
	c.Policy = RetryPolicy{MaxAttempts: attempts, Backoff: time.Millisecond}
	c.Limiter = nil
	return c
}

func babashkaDef(t *testing.T) ToolDefinition {
	t.Helper()
	def, ok := Definition("bb")
	require.True(t, ok)
	def.LatestAttempts = 0
	return def
}

func TestResolveVersionExplicitMakesNoCalls(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c := testReleaseClient(srv.URL, 1)
	for _, token := range []string{"1.3.190", "not-a-version", "1.10.1.469"} {
		got, err := c.ResolveVersion(context.Background(), babashkaDef(t), token, "")
		require.NoError(t, err)
		assert.Equal(t, token, got)
	}
	assert.Zero(t, hits.Load())
}

func TestResolveVersionLatestStripsPrefixAndSendsAuth(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/babashka/babashka/releases/latest", r.URL.Path)
		auth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"tag_name":"v1.3.190","name":"ignored"}`))
	}))
	defer srv.Close()

	got, err := testReleaseClient(srv.URL, 1).ResolveVersion(context.Background(), babashkaDef(t), "latest", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "1.3.190", got)
	assert.Equal(t, "Bearer s3cret", auth)
}

func TestResolveVersionTagWithoutPrefix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"tag_name":"0.12.0"}`))
	}))
	defer srv.Close()

	def, _ := Definition("cljfmt")
	got, err := testReleaseClient(srv.URL, 1).ResolveVersion(context.Background(), def, "latest", "")
	require.NoError(t, err)
	assert.Equal(t, "0.12.0", got)
}

func TestResolveVersionSymbolicLatest(t *testing.T) {
	c := testReleaseClient("http://127.0.0.1:1", 1)
	for _, tool := range []string{"lein", "boot"} {
		def, _ := Definition(tool)
		got, err := c.ResolveVersion(context.Background(), def, "latest", "")
		require.NoError(t, err)
		assert.Equal(t, Latest, got)
	}
}

func TestResolveVersionMissingTag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := testReleaseClient(srv.URL, 1).ResolveVersion(context.Background(), babashkaDef(t), "latest", "")
	var rerr *VersionResolutionError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "Can't obtain latest Babashka version", err.Error())
	assert.False(t, errors.Is(err, ErrTransport))
}

func TestResolveVersionRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"tag_name":"v2024.03.05"}`))
	}))
	defer srv.Close()

	got, err := testReleaseClient(srv.URL, 3).ResolveVersion(context.Background(), babashkaDef(t), "latest", "")
	require.NoError(t, err)
	assert.Equal(t, "2024.03.05", got)
	assert.EqualValues(t, 3, hits.Load())
}

func TestResolveVersionClientErrorIsPermanent(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testReleaseClient(srv.URL, 5).ResolveVersion(context.Background(), babashkaDef(t), "latest", "")
	require.Error(t, err)
	assert.EqualValues(t, 1, hits.Load())
	assert.Contains(t, err.Error(), "404")
}

func TestResolveVersionTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := testReleaseClient(url, 2).ResolveVersion(context.Background(), babashkaDef(t), "latest", "")
	var rerr *VersionResolutionError
	require.ErrorAs(t, err, &rerr)
	assert.True(t, errors.Is(err, ErrTransport))
	assert.Contains(t, err.Error(), "Can't obtain latest Babashka version")
}
