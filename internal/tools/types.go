package tools

import "setupclojure/internal/platform"

// Source records where an installed tool came from.
type Source string

const (
	SourceUnknown  Source = ""
	SourceCache    Source = "cache"
	SourceDownload Source = "download"
)

// ArtifactKind describes how a downloaded artifact is turned into an
// installed tool.
type ArtifactKind string

const (
	KindZip    ArtifactKind = "zip"
	KindTarGz  ArtifactKind = "tar.gz"
	KindBinary ArtifactKind = "binary"
	KindScript ArtifactKind = "script"
)

// Artifact is the downloadable file for a tool at a concrete version.
type Artifact struct {
	URL      string
	FileName string
	Kind     ArtifactKind
}

// Request asks for one tool at a requested version token.
type Request struct {
	Tool    string
	Version string
	// Auth is the raw GitHub token, empty when anonymous.
	Auth string
}

// Handle describes an installed tool and what must be exported for it.
type Handle struct {
	Tool     string            `json:"tool"`
	Version  string            `json:"version"`
	Root     string            `json:"root"`
	BinDir   string            `json:"bin_dir"`
	Env      map[string]string `json:"env,omitempty"`
	Source   Source            `json:"source"`
	Platform platform.Platform `json:"platform"`
}

// ManifestEntry records the last install of a tool in the local manifest.
type ManifestEntry struct {
	Tool        string            `json:"tool"`
	Version     string            `json:"version"`
	Identifier  string            `json:"identifier"`
	Source      Source            `json:"source"`
	Root        string            `json:"root"`
	BinDir      string            `json:"bin_dir"`
	Env         map[string]string `json:"env,omitempty"`
	Bytes       int64             `json:"bytes,omitempty"`
	InstalledAt string            `json:"installed_at,omitempty"`
}

// Manifest wraps persisted entries for quick lookup.
type Manifest struct {
	Entries map[string]ManifestEntry `json:"entries"`
}
