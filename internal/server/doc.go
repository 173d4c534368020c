// Package server holds the HTTP plumbing shared by uploadd's routes:
// request ID, panic recovery and access log middlewares, JSON envelope
// helpers, and a signal-aware server with ordered shutdown hooks.
package server
