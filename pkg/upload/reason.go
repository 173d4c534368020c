package upload

import (
	"fmt"
	"maps"
)

// Reason identifies why an upload was aborted.
// The set is closed; it drives both control flow and the error codes returned to clients.
type Reason string

const (
	ReasonSizeExceeded       Reason = "size_exceeded"
	ReasonMIMERejected       Reason = "mime_type_rejected"
	ReasonConnectionBroken   Reason = "connection_broken"
	ReasonTimeout            Reason = "timeout"
	ReasonBatchFileFailed    Reason = "batch_file_failed"
	ReasonProcessorError     Reason = "processor_error"
	ReasonFilesLimitExceeded Reason = "files_limit_exceeded"
	ReasonNoFilesProvided    Reason = "no_files_provided"
)

// String implements fmt.Stringer.
func (r Reason) String() string {
	return string(r)
}

// abortError is the single error type every engine failure is funnelled through.
// Only the orchestrator translates it into a public *Error.
type abortError struct {
	cause   error
	details map[string]any
	reason  Reason
}

func newAbort(reason Reason, details map[string]any, cause error) *abortError {
	if details == nil {
		details = map[string]any{}
	}
	return &abortError{reason: reason, details: details, cause: cause}
}

// Error implements the error interface.
func (e *abortError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("upload aborted: %s: %v", e.reason, e.cause)
	}
	return "upload aborted: " + string(e.reason)
}

// Unwrap returns the underlying cause, if any.
func (e *abortError) Unwrap() error {
	return e.cause
}

// detailsCopy returns a copy of the details safe to hand to callers.
func (e *abortError) detailsCopy() map[string]any {
	return maps.Clone(e.details)
}
