// Package ratelimit provides the request pacing used by the wiki client.
//
// The pipeline talks to a single upstream and must never exceed its
// politeness budget, regardless of how many stages or workers are issuing
// requests. The Interval limiter grants at most one request per configured
// interval; bursts are not allowed.
//
// Usage:
//
//	limiter := ratelimit.NewInterval(500 * time.Millisecond)
//
//	// Block until the next request may be sent
//	if err := limiter.Wait(ctx); err != nil {
//	    return err // context cancelled
//	}
//	// Proceed with request
//
// The limiter is an explicit value held by the client rather than hidden
// process-wide state, so tests can build clients with a zero interval.
package ratelimit
