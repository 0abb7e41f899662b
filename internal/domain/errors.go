package domain

import "errors"

// Errors returned by the retrieval core. Wrap them with context and test
// with errors.Is.
var (
	// ErrInvalidConfig indicates bad chunking, top-k or metric parameters.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrDimensionMismatch indicates a vector whose length differs from the
	// index dimension. Usually embedding drift upstream.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrProvider indicates the embedding or generation backend failed.
	ErrProvider = errors.New("provider error")

	// ErrMalformedResponse indicates the backend answered with something that
	// is not a usable vector or answer.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrCorruptIndex indicates persisted index artifacts that disagree.
	ErrCorruptIndex = errors.New("corrupt index")

	// ErrIndexSealed indicates an Add after the build phase finished.
	ErrIndexSealed = errors.New("index sealed")
)
