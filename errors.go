package main

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ErrorPolicy decides whether a filesystem error aborts the scan.
type ErrorPolicy string

const (
	// FailFast aborts on the first error. This is the default.
	FailFast ErrorPolicy = "fail"
	// SkipFailed logs the error, skips the entry and keeps scanning.
	SkipFailed ErrorPolicy = "skip"
)

// parseErrorPolicy accepts the values of the --on-error flag.
func parseErrorPolicy(s string) (ErrorPolicy, error) {
	switch ErrorPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", FailFast:
		return FailFast, nil
	case SkipFailed:
		return SkipFailed, nil
	default:
		return "", fmt.Errorf("unsupported error policy: %s. Use 'fail' or 'skip'", s)
	}
}

// FilesystemError reports a failed listing, stat, open or read of a path
// reached during the walk.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

// errorCollector gathers the errors of a scan that runs under SkipFailed.
type errorCollector struct {
	err *multierror.Error
}

func (c *errorCollector) add(err error) {
	c.err = multierror.Append(c.err, err)
}

// ErrorOrNil returns nil when nothing was collected.
func (c *errorCollector) ErrorOrNil() error {
	return c.err.ErrorOrNil()
}
