package stream

import "github.com/pkg/errors"

var (
	// errNotUploading is returned when a write or finalize is attempted on a
	// stream that has already left the UPLOADING state.
	errNotUploading = errors.New("stream: not in UPLOADING state")
	// errWriteFailed is returned when the underlying cache rejects a write.
	errWriteFailed = errors.New("stream: cache write failed")
	// ErrDuplicateStream is returned by Registry.CreateStream when the id
	// is already present.
	ErrDuplicateStream = errors.New("stream: id already exists")
	// ErrNotFound is returned when a stream id has no registered Context.
	ErrNotFound = errors.New("stream: id not found")
)
