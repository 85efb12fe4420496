// Package password verifies and produces argon2id password hashes.
//
// Hashes use the PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// The static login authenticator accepts either a PHC hash or a plain value for the
// configured test user; [IsHash] tells the two apart.
//
// This package never stores passwords and never logs plaintext or hashes.
package password
