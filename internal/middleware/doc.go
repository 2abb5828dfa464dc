// Package middleware provides HTTP middleware for the derivative server.
//
// It includes:
//   - Request logging in W3C Extended Log Format, with the derivative outcome
//     the handler reported
//   - Prometheus request metrics labelled by route template
package middleware
