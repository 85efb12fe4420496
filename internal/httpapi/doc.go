// Package httpapi is the HTTP surface of the edgeauth server: login, refresh and
// logout, the role-guarded check endpoints, role administration, health and metrics.
package httpapi
