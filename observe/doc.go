// Package observe provides observability primitives for backend API calls.
//
// It is a pure instrumentation library: no transport and no I/O beyond
// exporter setup. The API client wraps every outgoing call with a Middleware
// so each endpoint gets a span, call/error counters, a latency histogram, and
// a structured log line. Token refresh outcomes are counted separately.
package observe
