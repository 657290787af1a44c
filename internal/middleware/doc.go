// Package middleware provides HTTP middleware for the guest gallery
// application.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Response compression (gzip)
//   - Prometheus request metrics
//   - Configurable filtering for static files and health checks
package middleware
