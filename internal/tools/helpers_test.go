package tools

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"

	"setupclojure/internal/platform"
)

// artifactServer serves release metadata and artifacts from memory and
// records every request path it sees.
type artifactServer struct {
	*httptest.Server

	mu       sync.Mutex
	files    map[string][]byte
	requests []string
}

func newArtifactServer(t *testing.T) *artifactServer {
	t.Helper()
	s := &artifactServer{files: map[string][]byte{}}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.URL.Path)
		body, ok := s.files[r.URL.Path]
		s.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *artifactServer) serve(path string, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = body
}

func (s *artifactServer) paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *artifactServer) count(prefix string) int {
	n := 0
	for _, p := range s.paths() {
		if strings.HasPrefix(p, prefix) {
			n++
		}
	}
	return n
}

// redirectTransport sends every request to the test server, keeping the path.
type redirectTransport struct {
	target *url.URL
	base   http.RoundTripper
}

func (t redirectTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.URL.Scheme = t.target.Scheme
	clone.URL.Host = t.target.Host
	clone.Host = t.target.Host
	return t.base.RoundTrip(clone)
}

type runCall struct {
	Command string
	Args    []string
	Dir     string
	Env     []string
	Stdin   string
}

type fakeRunner struct {
	mu    sync.Mutex
	calls []runCall
	hook  func(call runCall) error
}

func (f *fakeRunner) Run(_ context.Context, command string, args []string, opts RunOptions) (RunResult, error) {
	call := runCall{Command: command, Args: append([]string(nil), args...), Dir: opts.Dir, Env: append([]string(nil), opts.Env...)}
	if opts.Stdin != nil {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(opts.Stdin)
		call.Stdin = buf.String()
	}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
	if f.hook != nil {
		if err := f.hook(call); err != nil {
			return RunResult{Stderr: []byte("boom\n")}, err
		}
	}
	return RunResult{}, nil
}

func (f *fakeRunner) Calls() []runCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]runCall(nil), f.calls...)
}

type recordingPublisher struct {
	mu    sync.Mutex
	env   map[string]string
	paths []string
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{env: map[string]string{}}
}

func (p *recordingPublisher) SetEnv(name, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.env[name] = value
}

func (p *recordingPublisher) AddPath(dir string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paths = append(p.paths, dir)
}

type testInstaller struct {
	*Installer
	server *artifactServer
	runner *fakeRunner
	fs     afero.Fs
}

func newTestInstaller(t *testing.T, p platform.Platform, a platform.Arch) *testInstaller {
	t.Helper()
	server := newArtifactServer(t)
	target, err := url.Parse(server.URL)
	if err != nil {
		t.Fatal(err)
	}

	fs := afero.NewMemMapFs()
	runner := &fakeRunner{}

	downloader := NewDownloader(fs, 0)
	downloader.SetHTTPClient(&http.Client{Transport: redirectTransport{target: target, base: http.DefaultTransport}})

	releases := NewReleaseClient(server.URL)
	releases.HTTP = server.Client()
	releases.Limiter = nil
	releases.Policy = RetryPolicy{MaxAttempts: 1}

	inst := &Installer{
		FS:         fs,
		Cache:      NewDirCache(fs, "/toolcache"),
		Releases:   releases,
		Downloader: downloader,
		Runner:     runner,
		Manifest:   NewManifestStore(fs, "/toolcache/setup-clojure/manifest.json"),
		Platform:   p,
		Arch:       a,
		TempDir:    "/runner/temp",
	}
	return &testInstaller{Installer: inst, server: server, runner: runner, fs: fs}
}

func tarGz(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, body := range files {
		hdr := &tar.Header{Name: name, Mode: 0o755, Size: int64(len(body)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func zipArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		hdr := &zip.FileHeader{Name: name, Method: zip.Deflate}
		hdr.SetMode(0o755)
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
