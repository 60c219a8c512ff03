// Package jobs provides the submit/poll primitive shared by every
// asynchronous remote generation call.
//
// A remote job is created by a service-specific submission and then observed
// through a describe function until it reaches a terminal state. Await is the
// single polling loop in the repository; callers parameterize it with their
// describe function, deadline, and poll interval instead of hand-rolling
// sleep loops. The interval is fixed rather than exponential: upstream
// generation jobs complete within seconds to minutes, and callers that need
// backoff wrap this primitive.
package jobs
