// Package ratelimit paces requests to the viewer site.
//
// FixedDelay is the courtesy pause applied between media items. TokenBucket
// caps the page request rate and is built on golang.org/x/time/rate. Both
// take a Clock so tests can drive them with a ManualClock instead of
// sleeping.
package ratelimit
