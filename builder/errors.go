package builder

import (
	"fmt"
	"strings"
)

// ErrNoRootURL is returned when an entry point that requires a root page
// runs before any root URL has been assigned.
var ErrNoRootURL = errNoRootURL{}

type errNoRootURL struct{}

func (errNoRootURL) Error() string { return "no root URL assigned" }

// InvalidFileNameError is returned when a destination path carries no
// file extension.
type InvalidFileNameError struct {
	Path    string
	Allowed []string
}

func (e *InvalidFileNameError) Error() string {
	return fmt.Sprintf(
		"file name %q has no extension, expected one of: %s",
		e.Path, strings.Join(e.Allowed, ", "),
	)
}

// InvalidExtensionError is returned when a destination path carries an
// extension outside the allowed set for the invoked operation.
type InvalidExtensionError struct {
	Path    string
	Ext     string
	Allowed []string
}

func (e *InvalidExtensionError) Error() string {
	return fmt.Sprintf(
		"file extension %q of %q is not allowed, expected one of: %s",
		e.Ext, e.Path, strings.Join(e.Allowed, ", "),
	)
}

// DownloadFailedError is returned when the root resource cannot be
// fetched. Fetch failures of secondary resources are recovered locally
// and never surface through this error.
type DownloadFailedError struct {
	URL   string
	Cause error
}

func (e *DownloadFailedError) Error() string {
	return fmt.Sprintf("download of %q failed: %v", e.URL, e.Cause)
}

func (e *DownloadFailedError) Unwrap() error { return e.Cause }
