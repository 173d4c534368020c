// Package manifest persists one PostgreSQL row per stored upload. Rows are
// inserted pending while a batch streams, removed by the batch's compensation
// when it fails, and flipped to ready together with the finalize job insert
// when it succeeds.
package manifest
