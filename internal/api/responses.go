// Package api serves dataset presets and their compositions over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/robert-malhotra/eoset/internal/collection"
	"github.com/robert-malhotra/eoset/internal/dataset"
)

// APIError is the body of every error response.
type APIError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	RequestID   string `json:"request_id,omitempty"`
}

// Error codes.
const (
	ErrCodeBadRequest       = "BadRequest"
	ErrCodeNotFound         = "NotFound"
	ErrCodeInvalidParameter = "InvalidParameterValue"
	ErrCodeServerError      = "ServerError"
	ErrCodeUpstreamError    = "UpstreamServiceError"
)

const (
	mediaTypeJSON    = "application/json"
	mediaTypeGeoJSON = "application/geo+json"
)

func encode(w http.ResponseWriter, status int, mediaType string, v any) error {
	w.Header().Set("Content-Type", mediaType)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response",
			slog.String("media_type", mediaType),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

// WriteJSON writes v as a JSON body.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	return encode(w, status, mediaTypeJSON, v)
}

// WriteGeoJSON writes v as a GeoJSON body.
func WriteGeoJSON(w http.ResponseWriter, status int, v any) error {
	return encode(w, status, mediaTypeGeoJSON, v)
}

// WriteError writes an APIError body.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeError(w, status, APIError{Code: code, Description: message})
}

func writeError(w http.ResponseWriter, status int, body APIError) {
	_ = encode(w, status, mediaTypeJSON, body)
}

// WriteBadRequest writes a 400 BadRequest error.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// WriteNotFound writes a 404.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// WriteInvalidParameter writes a 400 for a rejected query parameter.
func WriteInvalidParameter(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, ErrCodeInvalidParameter, message)
}

// WriteInternalErrorWithRequestID writes a 500 whose body names the request,
// so clients can quote it when reporting the failure.
func WriteInternalErrorWithRequestID(w http.ResponseWriter, message, requestID string) {
	writeError(w, http.StatusInternalServerError, APIError{
		Code:        ErrCodeServerError,
		Description: message,
		RequestID:   requestID,
	})
}

// clientErrors are the sentinels reported as 400 whatever wraps them.
var clientErrors = []error{
	dataset.ErrInvalidRegion,
	dataset.ErrInvalidTimeRange,
	dataset.ErrMissingSourceID,
	dataset.ErrRemoteMismatch,
	dataset.ErrDisjointRegions,
	dataset.ErrEmptyPipeline,
	collection.ErrUnknownReducer,
	collection.ErrUnsupportedFilter,
	collection.ErrBandNotFound,
	collection.ErrBandCollision,
	collection.ErrUnknownParam,
	collection.ErrMissingParam,
}

// statusFor maps a dataset error onto an HTTP status and error code.
func statusFor(err error) (int, string) {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest, ErrCodeInvalidParameter
		}
	}

	var (
		invalid   *dataset.InvalidCollectionError
		mismatch  *dataset.SchemaMismatchError
		collision *dataset.BandNameCollisionError
		step      *dataset.InvalidPipelineStepError
		remote    *dataset.RemoteBackendError
	)
	switch {
	case errors.As(err, &invalid), errors.As(err, &mismatch), errors.As(err, &collision), errors.As(err, &step):
		return http.StatusBadRequest, ErrCodeInvalidParameter
	case errors.As(err, &remote):
		return http.StatusBadGateway, ErrCodeUpstreamError
	default:
		return http.StatusInternalServerError, ErrCodeServerError
	}
}
