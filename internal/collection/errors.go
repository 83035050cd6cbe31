package collection

import "errors"

var (
	// ErrNotCallable is returned when a transform has no apply function.
	ErrNotCallable = errors.New("transform is not callable")

	// ErrUnknownParam is returned when a parameter is bound that the
	// transform does not declare.
	ErrUnknownParam = errors.New("unknown transform parameter")

	// ErrMissingParam is returned when a required parameter is not bound.
	ErrMissingParam = errors.New("missing required transform parameter")

	// ErrUnknownReducer is returned for reducer names outside the supported set.
	ErrUnknownReducer = errors.New("unknown reducer")

	// ErrBandCollision is returned when two records joined together expose
	// the same band name.
	ErrBandCollision = errors.New("band name collision")

	// ErrBandNotFound is returned when a select stage names a missing band.
	ErrBandNotFound = errors.New("band not found")

	// ErrUnsupportedFilter is returned when a CQL2 expression uses a construct
	// the metadata filter cannot evaluate.
	ErrUnsupportedFilter = errors.New("unsupported filter expression")
)
