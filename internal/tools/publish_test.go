package tools

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPublishExportsEnvThenPath(t *testing.T) {
	p := newRecordingPublisher()
	Publish(p, Handle{
		Tool:   "boot",
		Root:   "/tc/Boot/2.8.3/amd64",
		BinDir: "/tc/Boot/2.8.3/amd64/bin",
		Env:    map[string]string{"BOOT_HOME": "/tc/Boot/2.8.3/amd64", "BOOT_VERSION": "2.8.3"},
	})

	wantEnv := map[string]string{"BOOT_HOME": "/tc/Boot/2.8.3/amd64", "BOOT_VERSION": "2.8.3"}
	if diff := cmp.Diff(wantEnv, p.env); diff != "" {
		t.Fatalf("env mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"/tc/Boot/2.8.3/amd64/bin"}, p.paths); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}
}

func TestPublishPathOnlyTools(t *testing.T) {
	p := newRecordingPublisher()
	Publish(p, Handle{Tool: "bb", Root: "/tc/Babashka/1.3.190/amd64", BinDir: "/tc/Babashka/1.3.190/amd64"})

	if len(p.env) != 0 {
		t.Fatalf("expected no env, got %v", p.env)
	}
	if diff := cmp.Diff([]string{"/tc/Babashka/1.3.190/amd64"}, p.paths); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}
}
