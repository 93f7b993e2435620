// Package middleware holds global and route-specific middleware: Clerk
// authentication, request logging, CORS, request IDs, tracing, panic
// recovery, and the global error handler.
package middleware
