// Package ratelimit paces requests to the portal.
//
// TokenBucket refills continuously, so a bucket built with PerMinute(60)
// allows a burst of 60 requests and then settles to one per second:
//
//	limiter := ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
//	// issue request
package ratelimit
