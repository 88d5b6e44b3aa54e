// Package setup runs the requested tool installs concurrently, wrapping each
// one in a persistent cache restore and save.
package setup

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"setupclojure/internal/cache"
	"setupclojure/internal/metrics"
	"setupclojure/internal/platform"
	"setupclojure/internal/tools"
)

// Installer installs a single tool.
type Installer interface {
	Install(ctx context.Context, req tools.Request) (tools.Handle, error)
}

// Reporter is told when each install starts and finishes. Calls arrive from
// several goroutines.
type Reporter interface {
	Start(req tools.Request)
	Complete(res Result)
}

type nopReporter struct{}

func (nopReporter) Start(tools.Request) {}
func (nopReporter) Complete(Result)     {}

// Result is the outcome of one requested tool.
type Result struct {
	Request  tools.Request
	Handle   tools.Handle
	CacheHit bool
	Duration time.Duration
	Err      error
}

// Summary holds one Result per request, in request order.
type Summary struct {
	Results []Result
}

// Failed returns the results that carry an error.
func (s Summary) Failed() []Result {
	var out []Result
	for _, r := range s.Results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// Options describe one run.
type Options struct {
	Requests        []tools.Request
	InvalidateCache bool
	Platform        platform.Platform
	// ToolCacheDir is the runner tool cache; each tool persists
	// <ToolCacheDir>/<identifier>.
	ToolCacheDir string
	// CacheRevision is baked into persistent cache keys.
	CacheRevision string
}

// Orchestrator installs and publishes tools.
type Orchestrator struct {
	Installer Installer
	Publisher tools.Publisher
	Cache     cache.Cache
	Reporter  Reporter
	Metrics   *metrics.Recorder
}

// CacheKey names the persistent cache entry for one tool version.
func CacheKey(p platform.Platform, revision, identifier, version string) string {
	return fmt.Sprintf("setupclojure-%s-%s-%s-%s", p, revision, identifier, version)
}

// Run installs every request concurrently. A failing install never cancels
// its siblings; the returned error is the first failure observed.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (Summary, error) {
	if len(opts.Requests) == 0 {
		return Summary{}, &tools.ConfigurationError{Message: NoToolsMessage}
	}

	results := make([]Result, len(opts.Requests))
	var g errgroup.Group
	for i, req := range opts.Requests {
		g.Go(func() error {
			results[i] = o.runOne(ctx, opts, req)
			return results[i].Err
		})
	}
	err := g.Wait()
	return Summary{Results: results}, err
}

func (o *Orchestrator) reporter() Reporter {
	if o.Reporter == nil {
		return nopReporter{}
	}
	return o.Reporter
}

func (o *Orchestrator) runOne(ctx context.Context, opts Options, req tools.Request) (res Result) {
	logger := log.WithFields(log.Fields{"tool": req.Tool, "version": req.Version})
	start := time.Now()
	res.Request = req

	o.reporter().Start(req)
	defer func() {
		if r := recover(); r != nil {
			if err, ok := r.(error); ok {
				res.Err = err
			} else {
				res.Err = fmt.Errorf("%v", r)
			}
		}
		res.Duration = time.Since(start)
		if res.Err != nil {
			logger.WithError(res.Err).Debug("install failed")
		}
		o.Metrics.ObserveInstall(req.Tool, res.Err, string(res.Handle.Source), res.Duration)
		o.reporter().Complete(res)
	}()

	key, paths, persist := o.persistentEntry(opts, req)
	if persist && !opts.InvalidateCache {
		hit, err := o.Cache.Restore(ctx, key, paths)
		if err != nil {
			logger.WithError(err).Debug("cache restore failed")
		}
		res.CacheHit = hit
		o.Metrics.CacheRestore(req.Tool, hit)
	}

	h, err := o.Installer.Install(ctx, req)
	if err != nil {
		var verr *tools.VerificationError
		if errors.As(err, &verr) {
			for _, hint := range tools.Hints(req.Tool, opts.Platform) {
				logger.Warn(hint)
			}
		}
		res.Err = err
		return res
	}
	res.Handle = h
	if o.Publisher != nil {
		tools.Publish(o.Publisher, h)
	}

	if persist && !res.CacheHit {
		if err := o.Cache.Save(ctx, key, paths); err != nil {
			logger.WithError(err).Debug("cache save failed")
		}
	}
	return res
}

// persistentEntry returns the cache key and paths for req, and whether the
// persistent cache applies at all. Symbolic "latest" requests are never
// persisted, nor are tools that bypass the tool cache on this platform.
func (o *Orchestrator) persistentEntry(opts Options, req tools.Request) (string, []string, bool) {
	if o.Cache == nil || tools.IsLatest(req.Version) {
		return "", nil, false
	}
	def, ok := tools.Definition(req.Tool)
	if !ok || !def.Cached(opts.Platform) {
		return "", nil, false
	}
	key := CacheKey(opts.Platform, opts.CacheRevision, def.Identifier, req.Version)
	return key, []string{filepath.Join(opts.ToolCacheDir, def.Identifier)}, true
}
