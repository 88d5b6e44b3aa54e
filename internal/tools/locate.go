package tools

import (
	"fmt"
	"path"

	"setupclojure/internal/platform"
)

const (
	githubBase       = "https://github.com"
	leiningenRawBase = "https://raw.githubusercontent.com/technomancy/leiningen"
	bootBootstrapURL = "https://github.com/boot-clj/boot-bin/releases/download/latest/boot.sh"
	clojureInstall   = "https://download.clojure.org/install"
)

// Locate computes the artifact for tool at a concrete version. It performs no
// I/O; a URL that does not exist is only detected when it is downloaded.
func Locate(tool, version string, p platform.Platform, a platform.Arch) (Artifact, error) {
	def, ok := Definition(tool)
	if !ok {
		return Artifact{}, fmt.Errorf("unknown tool %q", tool)
	}
	return def.Locate(version, p, a)
}

func releaseArtifact(repo, tag, name string, kind ArtifactKind) Artifact {
	return Artifact{
		URL:      fmt.Sprintf("%s/%s/releases/download/%s/%s", githubBase, repo, tag, name),
		FileName: name,
		Kind:     kind,
	}
}

func longArch(a platform.Arch) string {
	if a == platform.ARM64 {
		return "aarch64"
	}
	return "amd64"
}

func locateBabashka(version string, p platform.Platform, a platform.Arch) (Artifact, error) {
	arch := longArch(a)
	switch p {
	case platform.Windows:
		return releaseArtifact("babashka/babashka", "v"+version,
			fmt.Sprintf("babashka-%s-windows-%s.zip", version, arch), KindZip), nil
	case platform.MacOS:
		return releaseArtifact("babashka/babashka", "v"+version,
			fmt.Sprintf("babashka-%s-macos-%s.tar.gz", version, arch), KindTarGz), nil
	default:
		return releaseArtifact("babashka/babashka", "v"+version,
			fmt.Sprintf("babashka-%s-linux-%s-static.tar.gz", version, arch), KindTarGz), nil
	}
}

func locateCljKondo(version string, p platform.Platform, a platform.Arch) (Artifact, error) {
	osName := "linux"
	switch p {
	case platform.Windows:
		osName = "windows"
	case platform.MacOS:
		osName = "macos"
	}
	name := fmt.Sprintf("clj-kondo-%s-%s-%s.zip", version, osName, longArch(a))
	return releaseArtifact("clj-kondo/clj-kondo", "v"+version, name, KindZip), nil
}

// cljfmt only publishes amd64 builds and tags releases without a "v".
func locateCljfmt(version string, p platform.Platform, _ platform.Arch) (Artifact, error) {
	switch p {
	case platform.Windows:
		return releaseArtifact("weavejester/cljfmt", version,
			fmt.Sprintf("cljfmt-%s-win-amd64.zip", version), KindZip), nil
	case platform.MacOS:
		return releaseArtifact("weavejester/cljfmt", version,
			fmt.Sprintf("cljfmt-%s-darwin-amd64.tar.gz", version), KindTarGz), nil
	default:
		return releaseArtifact("weavejester/cljfmt", version,
			fmt.Sprintf("cljfmt-%s-linux-amd64.tar.gz", version), KindTarGz), nil
	}
}

func locateCljstyle(version string, p platform.Platform, a platform.Arch) (Artifact, error) {
	osName := "linux"
	if p == platform.MacOS {
		osName = "macos"
	}
	if cljstyleHasArchBuilds(version) {
		name := fmt.Sprintf("cljstyle_%s_%s_%s.zip", version, osName, a)
		return releaseArtifact("greglook/cljstyle", version, name, KindZip), nil
	}
	if a != platform.AMD64 {
		return Artifact{}, &UnsupportedPlatformError{
			Tool:    "cljstyle",
			Message: "This cljstyle version only supports x86-64 architecture.",
		}
	}
	name := fmt.Sprintf("cljstyle_%s_%s.tar.gz", version, osName)
	return releaseArtifact("greglook/cljstyle", version, name, KindTarGz), nil
}

func locateZprint(version string, p platform.Platform, _ platform.Arch) (Artifact, error) {
	var name string
	switch p {
	case platform.Windows:
		name = "zprint-filter-" + version
	case platform.MacOS:
		name = "zprintm-" + version
	default:
		name = "zprintl-" + version
	}
	return releaseArtifact("kkinnear/zprint", version, name, KindBinary), nil
}

// Leiningen's "latest" is the stable branch of the bootstrap script.
func locateLeiningen(version string, p platform.Platform, _ platform.Arch) (Artifact, error) {
	ref := version
	if IsLatest(version) {
		ref = "stable"
	}
	script := "lein"
	if p.IsWindows() {
		script = "lein.bat"
	}
	return Artifact{
		URL:      fmt.Sprintf("%s/%s/bin/%s", leiningenRawBase, ref, script),
		FileName: script,
		Kind:     KindScript,
	}, nil
}

// Boot always bootstraps from the same script; the version is applied when
// the script runs.
func locateBoot(string, platform.Platform, platform.Arch) (Artifact, error) {
	return Artifact{URL: bootBootstrapURL, FileName: path.Base(bootBootstrapURL), Kind: KindScript}, nil
}

func locateClojureCLI(version string, p platform.Platform, _ platform.Arch) (Artifact, error) {
	name := fmt.Sprintf("linux-install-%s.sh", version)
	if p.IsWindows() {
		name = fmt.Sprintf("win-install-%s.ps1", version)
	}
	return Artifact{URL: clojureInstall + "/" + name, FileName: name, Kind: KindScript}, nil
}
