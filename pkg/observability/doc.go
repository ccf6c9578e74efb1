/*
Package observability turns engine lifecycle events into logs and Prometheus
metrics.

Both are exposed as domain.LifecycleHooks so they can be merged and handed to
the engine through voyage.WithLifecycleHooks.
*/
package observability
