// Package jwt signs and verifies the compact HS256 tokens used for both access and
// refresh credentials. Verification is a pure function of the token, the server
// secret and the current clock; it performs no I/O.
package jwt
