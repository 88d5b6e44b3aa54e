package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Runner is the environment provided by the CI runner.
type Runner struct {
	Temp        string `envconfig:"RUNNER_TEMP"`
	ToolCache   string `envconfig:"RUNNER_TOOL_CACHE"`
	OS          string `envconfig:"RUNNER_OS"`
	Arch        string `envconfig:"RUNNER_ARCH"`
	UserProfile string `envconfig:"USERPROFILE"`
	APIURL      string `envconfig:"GITHUB_API_URL" default:"https://api.github.com"`
	Actions     string `envconfig:"GITHUB_ACTIONS"`

	CacheDir    string `envconfig:"SETUP_CLOJURE_CACHE_DIR"`
	CacheBucket string `envconfig:"SETUP_CLOJURE_CACHE_BUCKET"`
	CacheRegion string `envconfig:"SETUP_CLOJURE_CACHE_REGION"`
	CachePrefix string `envconfig:"SETUP_CLOJURE_CACHE_PREFIX"`
}

// LoadRunner reads the runner environment.
func LoadRunner() (Runner, error) {
	var r Runner
	if err := envconfig.Process("", &r); err != nil {
		return Runner{}, fmt.Errorf("read runner environment: %w", err)
	}
	return r, nil
}

// UnderActions reports whether the process runs inside a GitHub Actions job.
func (r Runner) UnderActions() bool {
	return r.Actions == "true"
}

// CacheConfig returns the persistent cache settings carried by the environment.
func (r Runner) CacheConfig() CacheConfig {
	return CacheConfig{
		Dir:    r.CacheDir,
		Bucket: r.CacheBucket,
		Region: r.CacheRegion,
		Prefix: r.CachePrefix,
	}
}
