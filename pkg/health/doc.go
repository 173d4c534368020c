// Package health serves liveness and readiness probes for the upload service.
//
//	r.Get("/health/live", health.LivenessHandler())
//	r.Get("/health/ready", health.ReadinessHandler(health.Checks{
//		"postgres": db.Healthcheck(pool),
//		"redis":    redis.Healthcheck(client),
//		"jobs":     job.Healthcheck(manager),
//	}, health.WithLogger(log)))
//
// Probes answer plain text by default; send Accept: application/json or
// ?format=json for the per-check breakdown.
package health
