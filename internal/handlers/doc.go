// Package handlers exposes the upload HTTP API:
//
//	POST /uploads/{policy}           stream a multipart batch under a named policy
//	GET  /uploads/batches/{batchID}  list a batch with signed download URLs
//
// Every request is scoped to the tenant in the X-Tenant-ID header.
package handlers
