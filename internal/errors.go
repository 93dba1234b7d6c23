package internal

import (
	"net/http"

	"github.com/tbrandt/sked/internal/models"
)

const (
	// ErrCodeUnknown is the error code for unknown errors
	ErrCodeUnknown = "UNKNOWN_ERROR"
	// ErrCodeIllegalJSON is returned when the request did not contain a valid JSON body
	ErrCodeIllegalJSON = "ILLEGAL_JSON_REQUEST"
	// ErrCodeIllegalXML is returned when the request did not contain a valid SOAP envelope
	ErrCodeIllegalXML = "ILLEGAL_XML_REQUEST"
	// ErrCodeRequiredFieldMissing is returned when at least one required field has not been populated on an incoming
	// request
	ErrCodeRequiredFieldMissing = "REQUIRED_FIELD_MISSING"
	// ErrCodeIllegalValue is returned when any field in the transferred data does not validate for some reason
	ErrCodeIllegalValue = "ILLEGAL_VALUE"
	// ErrCodeEventNotFound is returned when an operation works on an event that does not exist
	ErrCodeEventNotFound = "EVENT_NOT_FOUND"
	// ErrCodeIDConflict is returned when the store rejects a freshly generated event ID as already taken.
	// The service retries ID generation internally, so callers only ever see this after repeated collisions
	ErrCodeIDConflict = "EVENT_ID_CONFLICT"
	// ErrCodeRepoError is returned when the request to a repo fails with an error
	ErrCodeRepoError = "STORAGE_QUERY_FAILED"
	// ErrCodeStoreUnreachable is returned by the health probe when the store cannot be pinged
	ErrCodeStoreUnreachable = "STORAGE_UNREACHABLE"
)

// HTTPError is an error that contains information about the error message to return to the client
type HTTPError struct {
	message string
	code    string
	status  int
	data    interface{}
}

// MakeError creates a new HTTPError with the given contents
func MakeError(status int, code, message string) *HTTPError {
	return MakeErrorWithData(status, code, message, nil)
}

// MakeErrorWithData creates a new HTTPError with the given contents and an additional data element
func MakeErrorWithData(status int, code, message string, data interface{}) *HTTPError {
	return &HTTPError{message, code, status, data}
}

// Error implements the errorer interface
func (e *HTTPError) Error() string {
	return e.message
}

// Status returns the HTTP status that should be returned
func (e *HTTPError) Status() int {
	return e.status
}

// ErrorCode returns the machine-readable error code
func (e *HTTPError) ErrorCode() string {
	return e.code
}

// Data returns additional data about the error
func (e *HTTPError) Data() interface{} {
	return e.data
}

// -- Error classification ---------------------------------------------------------------------------------------------
//
// Both protocol adapters need to tell "the caller sent something invalid" apart from
// "that event does not exist" and from "the storage layer failed". The predicates below
// are the single source for that distinction, so no adapter invents its own semantics.

// IsValidationError checks if the given error reports invalid or missing input
func IsValidationError(err error) bool {
	if he, ok := err.(*HTTPError); ok {
		return he.code == ErrCodeRequiredFieldMissing || he.code == ErrCodeIllegalValue ||
			he.code == ErrCodeIllegalJSON || he.code == ErrCodeIllegalXML
	}
	return false
}

// IsNotFoundError checks if the given error reports a missing event
func IsNotFoundError(err error) bool {
	if he, ok := err.(*HTTPError); ok {
		return he.code == ErrCodeEventNotFound
	}
	return false
}

// IsConflictError checks if the given error reports an exhausted ID generation retry
func IsConflictError(err error) bool {
	if he, ok := err.(*HTTPError); ok {
		return he.code == ErrCodeIDConflict
	}
	return false
}

// IsStorageError checks if the given error reports a failure of the storage layer
func IsStorageError(err error) bool {
	if he, ok := err.(*HTTPError); ok {
		return he.code == ErrCodeRepoError || he.code == ErrCodeStoreUnreachable
	}
	return false
}

// makeValidationError maps a model validation failure to the client-facing error
func makeValidationError(err error) *HTTPError {
	if fe, ok := err.(*models.FieldError); ok {
		code := ErrCodeIllegalValue
		if fe.Missing {
			code = ErrCodeRequiredFieldMissing
		}
		return MakeErrorWithData(http.StatusBadRequest, code, fe.Error(), map[string]string{"field": fe.Field})
	}
	return MakeError(http.StatusBadRequest, ErrCodeIllegalValue, err.Error())
}

// makeNotFoundError builds the error returned when an event with the given ID does not exist
func makeNotFoundError(id string) *HTTPError {
	return MakeError(http.StatusNotFound, ErrCodeEventNotFound, "Event '"+id+"' does not exist")
}

// makeStorageError builds the error returned when a repo operation fails unexpectedly
func makeStorageError(message string, cause error) *HTTPError {
	return MakeErrorWithData(http.StatusInternalServerError, ErrCodeRepoError, message, cause)
}
