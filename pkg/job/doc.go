// Package job runs background tasks on River, backed by the same PostgreSQL
// pool as the upload manifest.
//
// Every task goes through a single River job kind carrying the task name and a
// JSON payload. Periodic tasks use 5-field cron expressions (plus descriptors
// such as "@hourly") parsed by robfig/cron.
//
//	m, err := job.NewManager(pool,
//		job.WithLogger(log),
//		job.WithTask(tasks.NewFinalize(repo)),
//		job.WithScheduledTask(tasks.NewSweep(repo, store, time.Hour)),
//	)
//
// Inside an upload's completion hook the finalize job is inserted in the same
// transaction that marks the batch ready:
//
//	err := db.WithTx(ctx, pool, func(tx pgx.Tx) error {
//		if err := repo.MarkReady(ctx, tx, batchID); err != nil {
//			return err
//		}
//		return m.EnqueueTx(ctx, tx, tasks.FinalizeTaskName, payload,
//			job.UniqueFor(batchID.String(), time.Hour))
//	})
package job
