package proposal

import (
	"errors"
	"fmt"
)

// Sentinel errors for tracker-level failures. Callers wrap these with
// context via fmt.Errorf and %w; the runner matches them with errors.Is.
var (
	// ErrScan indicates a tracker-level scan failure (e.g. proposal
	// directory missing after sync). The run aborts and the previous
	// snapshot is preserved.
	ErrScan = errors.New("scan failed")

	// ErrSync indicates the external git collaborator failed. The run
	// aborts and the previous snapshot is preserved.
	ErrSync = errors.New("sync failed")

	// ErrCommit indicates the snapshot store rejected the commit. The
	// run's computed events are discarded entirely so the next run
	// re-evaluates from the last durable baseline.
	ErrCommit = errors.New("snapshot commit failed")
)

// ParseError reports a single unparseable proposal file. It is non-fatal:
// the scanner records it and continues with the remaining files.
type ParseError struct {
	Path   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.Path, e.Reason)
}

// NewParseError builds a ParseError for the given file.
func NewParseError(path, format string, args ...any) *ParseError {
	return &ParseError{Path: path, Reason: fmt.Sprintf(format, args...)}
}
