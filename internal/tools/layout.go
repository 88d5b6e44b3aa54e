package tools

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"setupclojure/internal/platform"
)

// windowsClojureModuleDir is where the PowerShell installer places the Clojure
// module when the first install location is chosen.
const windowsClojureModuleDir = `C:\Program Files\WindowsPowerShell\Modules\ClojureTools`

// session carries the state of one in-flight install.
type session struct {
	fs       afero.Fs
	runner   Runner
	output   io.Writer
	def      ToolDefinition
	platform platform.Platform
	version  string
	artifact Artifact
	// download is the path of the fetched artifact.
	download string
	scratch  string
	// target is the tool-cache directory the install will be copied to.
	target string
}

// layoutFunc turns a downloaded script into an installed directory tree and
// returns its root.
type layoutFunc func(ctx context.Context, s *session) (string, error)

func (s *session) run(ctx context.Context, command string, args []string, opts RunOptions) error {
	if opts.Stdout == nil {
		opts.Stdout = s.output
	}
	if opts.Stderr == nil {
		opts.Stderr = s.output
	}
	res, err := s.runner.Run(ctx, command, args, opts)
	if err != nil {
		if tail := strings.TrimSpace(string(res.Stderr)); tail != "" {
			err = fmt.Errorf("%w: %s", err, lastLine(tail))
		}
		return &VerificationError{
			Tool:    s.def.Display,
			Command: strings.TrimSpace(filepath.Base(command) + " " + strings.Join(args, " ")),
			Err:     err,
		}
	}
	return nil
}

// placeScript moves the downloaded script into <home>/bin/<name> and makes it
// executable.
func (s *session) placeScript(home, name string) (string, error) {
	bin := filepath.Join(home, "bin")
	if err := s.fs.MkdirAll(bin, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", bin, err)
	}
	script := filepath.Join(bin, name)
	if err := s.fs.Rename(s.download, script); err != nil {
		return "", fmt.Errorf("move %s into place: %w", name, err)
	}
	if !s.platform.IsWindows() {
		if err := s.fs.Chmod(script, 0o755); err != nil {
			return "", fmt.Errorf("chmod %s: %w", script, err)
		}
	}
	return script, nil
}

// layoutLeiningen installs the lein bootstrap script and runs it once so it
// self-installs its jar under LEIN_HOME.
func layoutLeiningen(ctx context.Context, s *session) (string, error) {
	home := filepath.Join(s.scratch, "leiningen")
	script, err := s.placeScript(home, s.artifact.FileName)
	if err != nil {
		return "", err
	}
	err = s.run(ctx, script, []string{"version"}, RunOptions{
		Dir: filepath.Dir(script),
		Env: []string{"LEIN_HOME=" + home},
	})
	if err != nil {
		return "", err
	}
	return home, nil
}

// layoutBoot installs the boot bootstrap script and lets it fetch either the
// newest Boot or the pinned BOOT_VERSION.
func layoutBoot(ctx context.Context, s *session) (string, error) {
	home := filepath.Join(s.scratch, "boot")
	script, err := s.placeScript(home, "boot")
	if err != nil {
		return "", err
	}
	env := []string{"BOOT_HOME=" + home}
	flag := "-u"
	if !IsLatest(s.version) {
		env = append(env, "BOOT_VERSION="+s.version)
		flag = "-V"
	}
	if err := s.run(ctx, script, []string{flag}, RunOptions{Dir: filepath.Dir(script), Env: env}); err != nil {
		return "", err
	}
	return home, nil
}

// layoutClojureCLI runs the official installer. On Unix the install prefix is
// a scratch directory whose path is then rewritten in the launcher scripts to
// the tool-cache entry they are copied to.
func layoutClojureCLI(ctx context.Context, s *session) (string, error) {
	if s.platform.IsWindows() {
		err := s.run(ctx, "powershell", []string{"-NoProfile", "-ExecutionPolicy", "Bypass", "-File", s.download}, RunOptions{
			Stdin: strings.NewReader("1\n"),
		})
		if err != nil {
			return "", err
		}
		return windowsClojureModuleDir, nil
	}

	if s.platform == platform.MacOS {
		if err := patchFile(s.fs, s.download, "install -D", "$(brew --prefix coreutils)/bin/ginstall -D"); err != nil {
			return "", fmt.Errorf("patch installer: %w", err)
		}
	}

	prefix := filepath.Join(s.scratch, "ClojureTools")
	if err := s.fs.MkdirAll(prefix, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", prefix, err)
	}
	if err := s.run(ctx, "bash", []string{s.download, "--prefix", prefix}, RunOptions{}); err != nil {
		return "", err
	}

	for _, name := range []string{"clojure", "clj"} {
		launcher := filepath.Join(prefix, "bin", name)
		if _, err := s.fs.Stat(launcher); err != nil {
			continue
		}
		if err := patchFile(s.fs, launcher, prefix, s.target); err != nil {
			return "", fmt.Errorf("relocate %s: %w", name, err)
		}
	}
	return prefix, nil
}

func lastLine(text string) string {
	if idx := strings.LastIndexByte(text, '\n'); idx >= 0 {
		return text[idx+1:]
	}
	return text
}
