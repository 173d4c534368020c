// Package sanitizer cleans client-supplied strings before they are stored:
// upload file names ([Filename]) and free-form form values ([StripHTML]).
package sanitizer
