package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"setupclojure/internal/cache"
	"setupclojure/internal/config"
	"setupclojure/internal/metrics"
	"setupclojure/internal/paths"
	"setupclojure/internal/platform"
	"setupclojure/internal/tools"
)

// downloadTimeout bounds a single artifact request, body included.
const downloadTimeout = 10 * time.Minute

// environment is everything resolved from the runner before installing.
type environment struct {
	runner   config.Runner
	platform platform.Platform
	arch     platform.Arch
	paths    paths.RunnerPaths
	fs       afero.Fs
}

func loadEnvironment() (environment, error) {
	r, err := config.LoadRunner()
	if err != nil {
		return environment{}, err
	}

	p := platform.Current()
	if r.OS != "" {
		p = platform.Classify(r.OS)
	}
	a := platform.CurrentArch()
	if r.Arch != "" {
		a = platform.ClassifyArch(r.Arch)
	}

	runnerTemp, toolCache := r.Temp, r.ToolCache
	if tempDirFlag != "" {
		runnerTemp = tempDirFlag
	}
	if toolCacheFlag != "" {
		toolCache = toolCacheFlag
	}
	userCache, _ := os.UserCacheDir()

	env := environment{
		runner:   r,
		platform: p,
		arch:     a,
		paths:    paths.Resolve(runnerTemp, toolCache, r.UserProfile, userCache, p),
		fs:       afero.NewOsFs(),
	}
	log.WithFields(log.Fields{
		"platform":  p,
		"arch":      a,
		"toolCache": env.paths.ToolCacheDir,
		"temp":      env.paths.TempDir,
	}).Debug("resolved runner environment")
	return env, nil
}

func (e environment) toolCache() *tools.DirCache {
	return tools.NewDirCache(e.fs, e.paths.ToolCacheDir)
}

func (e environment) manifest() *tools.ManifestStore {
	return tools.NewManifestStore(e.fs, e.paths.ManifestFile)
}

func (e environment) installer(out io.Writer, rec *metrics.Recorder) (*tools.Installer, error) {
	if err := paths.EnsureDir(e.fs, e.paths.TempDir); err != nil {
		return nil, fmt.Errorf("prepare temp dir: %w", err)
	}
	downloader := tools.NewDownloader(e.fs, 3)
	downloader.SetHTTPClient(&http.Client{Timeout: downloadTimeout})
	return &tools.Installer{
		FS:         e.fs,
		Cache:      e.toolCache(),
		Releases:   tools.NewReleaseClient(e.runner.APIURL),
		Downloader: downloader,
		Runner:     tools.CmdRunner{},
		Manifest:   e.manifest(),
		Observer:   rec,
		Platform:   e.platform,
		Arch:       e.arch,
		TempDir:    e.paths.TempDir,
		Output:     out,
	}, nil
}

// persistentCache picks the cross-run cache backend. A backend that cannot
// be set up degrades to no cache.
func (e environment) persistentCache(ctx context.Context, cfg config.CacheConfig) cache.Cache {
	scratch := filepath.Join(e.paths.TempDir, "setup-clojure-cache")
	switch {
	case cfg.Dir != "":
		return cache.NewArchiveCache(cache.NewDirStorage(e.fs, cfg.Dir), e.fs, scratch)
	case cfg.Bucket != "":
		storage, err := cache.NewS3Storage(ctx, cache.S3Config{
			BucketName: cfg.Bucket,
			Region:     cfg.Region,
			Prefix:     cfg.Prefix,
		})
		if err != nil {
			log.WithError(err).Warn("persistent cache disabled")
			return cache.NoCache{}
		}
		return cache.NewArchiveCache(storage, e.fs, scratch)
	default:
		return cache.NoCache{}
	}
}
