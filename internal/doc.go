// Package internal holds the packages that are private to edgeauth.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher plus Sink implementations)
//   - config: process configuration loaded with viper
//   - flows: orchestration of login, refresh and logout over the stores
//   - httpapi: the chi router and JSON handlers of the server binary
//   - obs: zap logger and OpenTelemetry setup
//   - rate: fixed-window rate limiting over kv.Store
//   - respond: JSON envelopes, security headers and rate-limit headers
package internal
