// Package config loads the server configuration from defaults, an optional YAML
// file and environment variables, and maps it onto edgeauth.Config.
package config
