package tools

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"setupclojure/internal/paths"
	"setupclojure/internal/platform"
)

// DownloadObserver is told how many bytes each fresh install downloaded.
type DownloadObserver interface {
	Downloaded(tool string, bytes int64)
}

// Installer installs tools into the tool cache. One Installer may serve many
// concurrent Install calls.
type Installer struct {
	FS         afero.Fs
	Cache      ToolCache
	Releases   *ReleaseClient
	Downloader *Downloader
	Runner     Runner
	Manifest   *ManifestStore
	Observer   DownloadObserver
	Platform   platform.Platform
	Arch       platform.Arch
	// TempDir is the root for per-install scratch directories.
	TempDir string
	// Output receives the output of installer commands. Nil discards it.
	Output io.Writer
}

// Install resolves, fetches, lays out and caches one tool. A complete cache
// entry for a concrete version short-circuits every network call.
func (i *Installer) Install(ctx context.Context, req Request) (Handle, error) {
	def, ok := Definition(req.Tool)
	if !ok {
		return Handle{}, &ConfigurationError{Message: fmt.Sprintf("unknown tool %q", req.Tool)}
	}
	if !def.Supports(i.Platform) {
		return Handle{}, UnsupportedOn(def, i.Platform)
	}

	version, err := i.Releases.ResolveVersion(ctx, def, req.Version, req.Auth)
	if err != nil {
		return Handle{}, err
	}
	logger := log.WithFields(log.Fields{"tool": def.Name, "version": version})

	cached := def.Cached(i.Platform)
	if cached && !IsLatest(version) {
		if dir, ok := i.Cache.Find(def.Identifier, version, i.Arch); ok {
			logger.Infof("%s found in cache %s", def.Display, dir)
			return i.finish(def, version, dir, SourceCache, 0), nil
		}
	}

	artifact, err := def.Locate(version, i.Platform, i.Arch)
	if err != nil {
		return Handle{}, err
	}

	scratch := paths.ScratchDir(i.TempDir)
	defer func() { _ = i.FS.RemoveAll(scratch) }()

	s := &session{
		fs:       i.FS,
		runner:   i.Runner,
		output:   i.Output,
		def:      def,
		platform: i.Platform,
		version:  version,
		artifact: artifact,
		download: filepath.Join(scratch, artifact.FileName),
		scratch:  scratch,
		target:   i.Cache.Path(def.Identifier, version, i.Arch),
	}

	logger.Infof("downloading %s", artifact.URL)
	n, err := i.Downloader.Fetch(ctx, artifact.URL, s.download, req.Auth)
	if err != nil {
		return Handle{}, err
	}
	if i.Observer != nil {
		i.Observer.Downloaded(def.Name, n)
	}

	root, err := i.materialize(ctx, s, cached)
	if err != nil {
		return Handle{}, err
	}
	logger.Debugf("%s installed to %s", def.Display, root)
	return i.finish(def, version, root, SourceDownload, n), nil
}

// UnsupportedOn is the error for a tool that refuses to install on p.
func UnsupportedOn(def ToolDefinition, p platform.Platform) error {
	return &UnsupportedPlatformError{
		Tool:    def.Name,
		Message: fmt.Sprintf("%s on %s is not supported yet.", def.Name, p),
	}
}

func (i *Installer) materialize(ctx context.Context, s *session, cached bool) (string, error) {
	id, version := s.def.Identifier, s.version

	switch {
	case s.def.layout != nil:
		dir, err := s.def.layout(ctx, s)
		if err != nil {
			return "", err
		}
		if !cached {
			return dir, nil
		}
		return i.Cache.CacheDir(dir, id, version, i.Arch)

	case s.artifact.Kind == KindBinary:
		if !i.Platform.IsWindows() {
			if err := i.FS.Chmod(s.download, 0o755); err != nil {
				return "", fmt.Errorf("chmod %s: %w", s.download, err)
			}
		}
		return i.Cache.CacheFile(s.download, id, i.Platform.Executable(s.def.Executable), version, i.Arch)

	default:
		extracted := filepath.Join(s.scratch, "extracted")
		if err := extractArchive(i.FS, s.artifact.Kind, s.download, extracted); err != nil {
			return "", err
		}
		return i.Cache.CacheDir(extracted, id, version, i.Arch)
	}
}

func (i *Installer) finish(def ToolDefinition, version, root string, source Source, downloaded int64) Handle {
	h := Handle{
		Tool:     def.Name,
		Version:  version,
		Root:     root,
		BinDir:   def.BinDir(root, i.Platform),
		Env:      def.Env(root, version, i.Platform),
		Source:   source,
		Platform: i.Platform,
	}
	if i.Manifest != nil {
		entry := ManifestEntry{
			Tool:        h.Tool,
			Version:     h.Version,
			Identifier:  def.Identifier,
			Source:      source,
			Root:        h.Root,
			BinDir:      h.BinDir,
			Env:         h.Env,
			Bytes:       downloaded,
			InstalledAt: time.Now().UTC().Format(time.RFC3339),
		}
		if err := i.Manifest.Record(entry); err != nil {
			log.WithError(err).WithField("tool", def.Name).Debug("cannot record install manifest")
		}
	}
	return h
}
