package domain

import "errors"

// Pipeline error kinds. Each stage wraps its failures with one of these so
// callers can classify with errors.Is without knowing the stage internals.
var (
	// ErrFetch marks a transport, DNS, or non-2xx failure. Retried on the
	// next scheduled tick, never immediately.
	ErrFetch = errors.New("feed fetch failed")

	// ErrParse marks an unrecognized or structurally invalid document.
	ErrParse = errors.New("feed parse failed")

	// ErrNormalize marks a document that yielded no usable canonical data.
	ErrNormalize = errors.New("feed normalize failed")

	// ErrNotFound is returned by Store lookups that matched nothing.
	ErrNotFound = errors.New("not found")
)
