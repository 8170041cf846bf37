// Package resilience retries transient failures of backend API calls.
//
// A Retry runs an operation up to MaxAttempts times, waiting between attempts
// according to a backoff strategy (exponential, linear, constant). RetryIf
// decides which errors are transient; everything else is returned at once.
//
//	r := resilience.NewRetry(resilience.RetryConfig{
//	    MaxAttempts:  3,
//	    InitialDelay: 200 * time.Millisecond,
//	    RetryIf:      apiclient.IsNetworkFailure,
//	})
//
//	user, err := resilience.Do(ctx, r, func(ctx context.Context) (*apiclient.User, error) {
//	    return client.CurrentUser(ctx)
//	})
//
// Retries never apply to authentication failures; the API client handles a
// 401 with its own single refresh-and-retry.
package resilience
