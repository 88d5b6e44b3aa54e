package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveInstall(t *testing.T) {
	r := New()
	r.ObserveInstall("bb", nil, "download", 2*time.Second)
	r.ObserveInstall("bb", nil, "cache", time.Second)
	r.ObserveInstall("lein", errors.New("boom"), "", time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.installs.WithLabelValues("bb", "success", "download")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.installs.WithLabelValues("bb", "success", "cache")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.installs.WithLabelValues("lein", "failure", "none")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.duration))
}

func TestDownloadedAndRestores(t *testing.T) {
	r := New()
	r.Downloaded("zprint", 1024)
	r.Downloaded("zprint", 0)
	r.CacheRestore("zprint", true)
	r.CacheRestore("zprint", false)
	r.CacheRestore("zprint", false)

	assert.Equal(t, 1024.0, testutil.ToFloat64(r.downloaded.WithLabelValues("zprint")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.restores.WithLabelValues("zprint", "true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.restores.WithLabelValues("zprint", "false")))
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveInstall("bb", nil, "download", time.Second)
		r.Downloaded("bb", 10)
		r.CacheRestore("bb", true)
	})
	assert.Nil(t, r.Registry())
	assert.NoError(t, r.WriteFile(filepath.Join(t.TempDir(), "m.prom")))
}

func TestWriteFile(t *testing.T) {
	r := New()
	r.ObserveInstall("cljfmt", nil, "download", time.Second)

	path := filepath.Join(t.TempDir(), "setup-clojure.prom")
	require.NoError(t, r.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `setup_clojure_installs_total{result="success",source="download",tool="cljfmt"} 1`)
}
