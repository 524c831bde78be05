package dispatch

import "errors"

var (
	// ErrUnreachable indicates a connectivity or server-side failure;
	// the dispatch may be retried.
	ErrUnreachable = errors.New("analysis worker unreachable")
	// ErrRejected indicates the worker refused the request at the
	// application layer; retrying will not help.
	ErrRejected = errors.New("analysis worker rejected dispatch")
)
