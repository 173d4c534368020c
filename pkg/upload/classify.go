package upload

import (
	"errors"
	"maps"
	"net/http"
)

// StatusClientClosedRequest is the non-standard status used when the client went away.
const StatusClientClosedRequest = 499

// Error codes that are not tied to an abort reason.
const (
	CodeInvalidContentType   = "invalid_content_type"
	CodeInternalError        = "internal_error"
	CodePostProcessingFailed = "file_post_processing_failed"
)

// genericErrorMessage replaces raw internal error messages outside development mode.
const genericErrorMessage = "internal error"

// Error is the classified, client-facing form of an upload failure.
type Error struct {
	// Err is the underlying error (for logging, not exposed to users).
	Err error

	// Details is the diagnostic payload rendered to the client.
	Details map[string]any

	// Reason is the abort reason; empty for gate and internal failures.
	Reason Reason

	// Code is the machine-readable error code.
	Code string

	// Message is the user-facing error message.
	Message string

	// Status is the HTTP status code.
	Status int
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status code.
func (e *Error) StatusCode() int {
	return e.Status
}

// Envelope is the JSON error body: {"error": {"code", "message", "details"}}.
type Envelope struct {
	Error EnvelopeError `json:"error"`
}

// EnvelopeError is the inner object of Envelope.
type EnvelopeError struct {
	Details map[string]any `json:"details,omitempty"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
}

// Envelope returns the response body for this error.
func (e *Error) Envelope() Envelope {
	return Envelope{Error: EnvelopeError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}}
}

type classification struct {
	status  int
	code    string
	message string
}

var classifications = map[Reason]classification{
	ReasonSizeExceeded:       {http.StatusRequestEntityTooLarge, "file_too_large", "File exceeds the maximum allowed size"},
	ReasonMIMERejected:       {http.StatusUnsupportedMediaType, "file_type_not_allowed", "File type is not allowed"},
	ReasonConnectionBroken:   {StatusClientClosedRequest, "file_upload_connection_broken", "Connection closed before the upload completed"},
	ReasonTimeout:            {http.StatusRequestTimeout, "file_upload_timeout", "Upload timed out"},
	ReasonBatchFileFailed:    {http.StatusBadRequest, "file_batch_upload_failed", "A file in the batch failed to upload"},
	ReasonProcessorError:     {http.StatusInternalServerError, "file_processor_error", "Failed to process uploaded file"},
	ReasonFilesLimitExceeded: {http.StatusRequestEntityTooLarge, "file_max_files_exceeded", "Too many files in upload"},
	ReasonNoFilesProvided:    {http.StatusBadRequest, "file_not_provided", "No files were provided"},
}

// Lookup returns the status code and error code for a reason.
func Lookup(reason Reason) (status int, code string, ok bool) {
	c, ok := classifications[reason]
	if !ok {
		return http.StatusInternalServerError, CodeInternalError, false
	}
	return c.status, c.code, true
}

// Classify maps an engine failure to its client-facing *Error.
// Outside development mode raw internal error messages never reach Details.
func Classify(err error, development bool) *Error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	if errors.Is(err, ErrInvalidContentType) {
		return &Error{
			Err:     err,
			Status:  http.StatusUnsupportedMediaType,
			Code:    CodeInvalidContentType,
			Message: "Request must be multipart/form-data",
		}
	}

	if errors.Is(err, ErrPostProcessing) {
		return &Error{
			Err:     err,
			Status:  http.StatusInternalServerError,
			Code:    CodePostProcessingFailed,
			Message: "File upload post-processing failed",
			Details: internalDetails(nil, err, development),
		}
	}

	var aerr *abortError
	if errors.As(err, &aerr) {
		c, ok := classifications[aerr.reason]
		if ok {
			details := aerr.detailsCopy()
			if aerr.cause != nil {
				details = internalDetails(details, aerr.cause, development)
			}
			return &Error{
				Err:     err,
				Reason:  aerr.reason,
				Status:  c.status,
				Code:    c.code,
				Message: c.message,
				Details: details,
			}
		}
	}

	return &Error{
		Err:     err,
		Status:  http.StatusInternalServerError,
		Code:    CodeInternalError,
		Message: "Internal server error",
		Details: internalDetails(nil, err, development),
	}
}

func internalDetails(details map[string]any, err error, development bool) map[string]any {
	out := maps.Clone(details)
	if out == nil {
		out = map[string]any{}
	}
	if development {
		out["error"] = err.Error()
	} else {
		out["error"] = genericErrorMessage
	}
	return out
}
