package tools

import (
	"errors"
	"fmt"
)

// ErrTransport marks failures that happened below HTTP, such as refused
// connections or DNS errors.
var ErrTransport = errors.New("network transport failure")

// ConfigurationError reports an unusable set of inputs.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string { return e.Message }

// UnsupportedPlatformError reports a tool that refuses to run on a platform
// or architecture.
type UnsupportedPlatformError struct {
	Tool    string
	Message string
}

func (e *UnsupportedPlatformError) Error() string { return e.Message }

// VersionResolutionError reports a failed lookup of the latest release.
type VersionResolutionError struct {
	Tool string
	Err  error
}

func (e *VersionResolutionError) Error() string {
	msg := fmt.Sprintf("Can't obtain latest %s version", e.Tool)
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *VersionResolutionError) Unwrap() error { return e.Err }

// DownloadError reports a failed artifact download.
type DownloadError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("download %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// ExtractionError reports a corrupt or unsafe archive.
type ExtractionError struct {
	Archive string
	Err     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Archive, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// VerificationError reports a post-install check that exited unsuccessfully.
type VerificationError struct {
	Tool    string
	Command string
	Err     error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verify %s: %s: %v", e.Tool, e.Command, e.Err)
}

func (e *VerificationError) Unwrap() error { return e.Err }
