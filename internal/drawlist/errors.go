package drawlist

import "github.com/pkg/errors"

// ErrorCode is the builder's error taxonomy (spec.md §7).
type ErrorCode uint8

const (
	// BadParams marks non-integer or out-of-range inputs, wrong argument
	// types, malformed segments, misaligned blob lengths, or an
	// out-of-range blob index.
	BadParams ErrorCode = iota + 1
	// TooLarge marks any cap exceeded: bytes, command count, blob count,
	// string count, or blob/string byte budgets.
	TooLarge
	// Format marks an internal framing invariant violated at build time:
	// misaligned offsets, section length mismatches.
	Format
	// Internal marks an impossible state: inconsistent span table, UTF-8
	// encoder failure, cursor misalignment.
	Internal
)

func (c ErrorCode) String() string {
	switch c {
	case BadParams:
		return "BAD_PARAMS"
	case TooLarge:
		return "TOO_LARGE"
	case Format:
		return "FORMAT"
	case Internal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

// BuildError is the error type returned by Builder methods and Build. It is
// latched on the builder once raised: every further mutator becomes a
// no-op, and Build keeps returning this same error.
type BuildError struct {
	Code   ErrorCode
	Detail string
	cause  error
}

func (e *BuildError) Error() string {
	if e.Detail == "" {
		return e.Code.String()
	}
	return e.Code.String() + ": " + e.Detail
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *BuildError) Unwrap() error { return e.cause }

func newErr(code ErrorCode, detail string) *BuildError {
	return &BuildError{Code: code, Detail: detail}
}

func wrapErr(code ErrorCode, cause error, detail string) *BuildError {
	return &BuildError{Code: code, Detail: detail, cause: errors.Wrap(cause, detail)}
}
