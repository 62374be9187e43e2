/*
Package observability exposes Prometheus metrics for the callflow dispatcher.

Metrics are registered on a private registry so that several dispatchers (and tests)
can coexist in one process. The registry is served by Handler on /metrics.
*/
package observability
