package upload

import (
	"fmt"
	"strings"
)

// DefaultMIMEType is assumed for file parts that declare no Content-Type.
const DefaultMIMEType = "application/octet-stream"

// TypeDecision is the outcome of a MIME type check.
type TypeDecision struct {
	// Reason is an optional human-readable rejection reason.
	Reason string

	// AllowedTypes optionally lists the accepted types for error details.
	AllowedTypes []string

	Allowed bool
}

// TypeValidator decides from declared metadata alone whether a file type is accepted.
type TypeValidator func(mimeType string) TypeDecision

// AllowTypes returns a validator that accepts types matching any pattern.
// Supports wildcards like "image/*" and "*/*".
func AllowTypes(patterns ...string) TypeValidator {
	allowed := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = normalizeMIME(p); p != "" {
			allowed = append(allowed, p)
		}
	}

	return func(mimeType string) TypeDecision {
		if matchesMIME(mimeType, allowed) {
			return TypeDecision{Allowed: true}
		}
		return TypeDecision{
			Reason:       fmt.Sprintf("file type %q is not allowed", normalizeMIME(mimeType)),
			AllowedTypes: allowed,
		}
	}
}

// checkType runs the validator against a file's declared type.
// It never touches the stream, so a disallowed file costs no body bytes.
func checkType(validate TypeValidator, meta FileMetadata) *abortError {
	decision := validate(meta.MimeType)
	if decision.Allowed {
		return nil
	}

	details := map[string]any{
		"fileIndex": meta.Index,
		"filename":  meta.Filename,
		"mimetype":  meta.MimeType,
	}
	if decision.Reason != "" {
		details["rejectionReason"] = decision.Reason
	}
	if len(decision.AllowedTypes) > 0 {
		details["allowedTypes"] = decision.AllowedTypes
	}
	return newAbort(ReasonMIMERejected, details, nil)
}

// normalizeMIME extracts the base MIME type, removing parameters like charset.
// Returns the lowercase MIME type.
func normalizeMIME(mimeType string) string {
	mimeType, _, _ = strings.Cut(mimeType, ";")
	return strings.TrimSpace(strings.ToLower(mimeType))
}

// matchesMIME checks if a MIME type matches any of the allowed patterns.
// Patterns are expected to be normalized.
func matchesMIME(mimeType string, allowed []string) bool {
	mimeType = normalizeMIME(mimeType)
	if mimeType == "" {
		return false
	}

	for _, pattern := range allowed {
		if pattern == "*" || pattern == "*/*" || mimeType == pattern {
			return true
		}

		if prefix, ok := strings.CutSuffix(pattern, "*"); ok && strings.HasSuffix(prefix, "/") {
			if strings.HasPrefix(mimeType, prefix) {
				return true
			}
		}
	}

	return false
}
