// Package retry wraps operations with the classification-driven retry policy
// used for every stage invocation.
//
// An operation gets one attempt plus up to MaxRetries more when its error is
// classified retriable (services.IsRetriable); non-retriable errors surface
// after exactly one attempt. The delay between attempts is fixed unless the
// policy sets a backoff multiplier. The surfaced error is tagged with the
// operation name and the number of attempts made.
package retry
