// Package middleware wraps the admin API router.
//
// [Logger] writes a W3C Extended Log Format access log and tags every
// response with an X-Request-ID; [Metrics] records Prometheus request
// metrics labelled by route template. Both skip health probes unless told
// otherwise.
package middleware
