package core

import "github.com/pkg/errors"

// Error kinds returned by the pipeline. Callers match them with errors.Is;
// wrapping with github.com/pkg/errors preserves the originating stack for
// the error kinds that bubble all the way up to the CLI.
var (
	// ErrRulesLoad means one or more munchers failed to parse or compile.
	// It aborts report assembly only when it leaves zero usable munchers.
	ErrRulesLoad = errors.New("rules load failed")

	// ErrVcsUnavailable means the underlying VCS returned non-zero or the
	// binary/backend was not found.
	ErrVcsUnavailable = errors.New("vcs unavailable")

	// ErrBlobMissing means a tree entry has no resolvable blob.
	ErrBlobMissing = errors.New("blob missing")

	// ErrDecodeFailure means both UTF-8 and WINDOWS-1252 decoding failed.
	// Non-fatal: the caller treats the file as empty.
	ErrDecodeFailure = errors.New("decode failure")

	// ErrReportIo covers serialize/deserialize and filesystem failures.
	ErrReportIo = errors.New("report io failure")

	// ErrCacheCorrupt means a prior cached report failed to parse.
	// Non-fatal: the caller proceeds as if no cache existed.
	ErrCacheCorrupt = errors.New("cache corrupt")
)
