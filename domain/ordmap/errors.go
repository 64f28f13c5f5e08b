package ordmap

import "errors"

var (
	// ErrInvalidArgument is returned when a required key, value or lock is nil.
	ErrInvalidArgument = errors.New("ordmap: invalid argument")

	// ErrInvariant is returned by Validate when the tree shape is broken.
	ErrInvariant = errors.New("ordmap: invariant violated")
)
