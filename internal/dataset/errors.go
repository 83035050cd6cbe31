package dataset

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidRegion is returned when a region is missing or not a bounded polygon.
	ErrInvalidRegion = errors.New("invalid region")

	// ErrInvalidTimeRange is returned when a time window is empty or open.
	ErrInvalidTimeRange = errors.New("invalid time range")

	// ErrMissingSourceID is returned when a variant names no remote collection.
	ErrMissingSourceID = errors.New("missing source id")

	// ErrRemoteMismatch is returned when combining datasets held by different remotes.
	ErrRemoteMismatch = errors.New("datasets belong to different remotes")

	// ErrDisjointRegions is returned when joining datasets whose regions do not overlap.
	ErrDisjointRegions = errors.New("dataset regions do not overlap")

	// ErrEmptyPipeline is returned by Pipe without steps.
	ErrEmptyPipeline = errors.New("pipeline has no steps")
)

// InvalidCollectionError reports a collection that cannot back a dataset.
type InvalidCollectionError struct {
	Reason string
	Err    error
}

func (e *InvalidCollectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid collection: %s: %v", e.Reason, e.Err)
	}
	return "invalid collection: " + e.Reason
}

func (e *InvalidCollectionError) Unwrap() error { return e.Err }

// SchemaMismatchError reports datasets whose band sets differ.
type SchemaMismatchError struct {
	Left  []string
	Right []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("band schemas differ: [%s] vs [%s]",
		strings.Join(e.Left, ", "), strings.Join(e.Right, ", "))
}

// BandNameCollisionError reports bands defined on both sides of a join.
type BandNameCollisionError struct {
	Bands []string
}

func (e *BandNameCollisionError) Error() string {
	return fmt.Sprintf("band names defined on both sides: %s", strings.Join(e.Bands, ", "))
}

// InvalidPipelineStepError reports a step that cannot be bound.
type InvalidPipelineStepError struct {
	Index int
	Name  string
	Err   error
}

func (e *InvalidPipelineStepError) Error() string {
	return fmt.Sprintf("pipeline step %d (%s): %v", e.Index, e.Name, e.Err)
}

func (e *InvalidPipelineStepError) Unwrap() error { return e.Err }

// RemoteBackendError wraps a failure surfaced by the remote backend.
type RemoteBackendError struct {
	Backend string
	Err     error
}

func (e *RemoteBackendError) Error() string {
	return fmt.Sprintf("remote backend %s: %v", e.Backend, e.Err)
}

func (e *RemoteBackendError) Unwrap() error { return e.Err }
