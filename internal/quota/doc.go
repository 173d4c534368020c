// Package quota keeps a per-tenant byte counter in Redis. Uploads reserve the
// size of each stored object and release it when the batch is rolled back or
// the object is swept.
package quota
