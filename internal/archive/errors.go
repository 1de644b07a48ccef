package archive

import "errors"

var (
	// ErrOutsideSandbox is returned for a path that fails the sandbox check.
	ErrOutsideSandbox = errors.New("path outside sandbox")

	// ErrInvalidTarget is returned for a transfer target outside the removable-media root.
	ErrInvalidTarget = errors.New("target outside removable media root")

	// ErrInvalidLabel is returned when a label is empty or contains characters
	// other than ASCII letters and digits.
	ErrInvalidLabel = errors.New("invalid label")

	// ErrIsDirectory is returned when a file operation is given a directory.
	ErrIsDirectory = errors.New("is a directory")
)
