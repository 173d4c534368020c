// Package tasks holds the background tasks registered with the job manager:
// [Finalize] verifies ready batches and [Sweep] removes abandoned pending uploads.
package tasks
