package tools

import "setupclojure/internal/platform"

// Hints returns remediation advice for a tool whose install command failed.
func Hints(tool string, p platform.Platform) []string {
	switch tool {
	case "lein", "boot":
		return []string{
			"Leiningen and Boot bootstrap themselves with Java; make sure a JDK is on PATH (e.g. run actions/setup-java first)",
		}
	case "cli":
		switch p {
		case platform.MacOS:
			return []string{
				"The Clojure CLI installer needs GNU coreutils on macOS: brew install coreutils",
			}
		case platform.Windows:
			return []string{
				"The Clojure CLI installer runs in Windows PowerShell; make sure script execution is allowed",
			}
		default:
			return []string{
				"The Clojure CLI installer needs bash, curl and install(1) on PATH",
			}
		}
	default:
		return nil
	}
}
