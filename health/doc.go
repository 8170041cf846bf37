// Package health checks the components a guardian session depends on.
//
// A Checker reports a Result with a Status of Healthy, Degraded, or
// Unhealthy. StoreChecker probes the token store with a write, read and
// delete of a reserved key. BackendChecker verifies the API answers at all:
// any HTTP response means reachable, a 5xx means degraded.
//
// An Aggregator runs registered checkers in parallel under one timeout and
// returns a Report in registration order:
//
//	agg := health.NewAggregator(health.AggregatorConfig{Timeout: 5 * time.Second})
//	agg.Register(health.NewStoreChecker(store))
//	agg.Register(health.NewBackendChecker(httpClient, baseURL))
//
//	report := agg.Run(ctx)
//	if report.Status != health.StatusHealthy {
//	    ...
//	}
package health
