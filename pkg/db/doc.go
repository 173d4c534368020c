// Package db wraps pgxpool with startup retries, a readiness probe,
// goose migrations and a transaction helper.
//
// # Usage
//
//	pool, err := db.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	//go:embed migrations/*.sql
//	var files embed.FS
//
//	sub, _ := fs.Sub(files, "migrations")
//	if err := db.Migrate(ctx, pool, sub, cfg.MigrationsTable, log); err != nil {
//		return err
//	}
//
//	err = db.WithTx(ctx, pool, func(tx pgx.Tx) error {
//		_, err := tx.Exec(ctx, "UPDATE upload_files SET status = 'ready' WHERE batch_id = $1", batchID)
//		return err
//	})
//
// Errors are joined with the package sentinels ([ErrFailedToOpenDBConnection],
// [ErrHealthcheckFailed], [ErrApplyMigrations], ...) so callers can match them
// with errors.Is.
package db
