// Package config provides centralized configuration management for the
// validation service. Configuration is loaded from the following sources in
// order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration files (YAML)
//	3. Default values (lowest priority)
//
// All environment variables follow the pattern IDXVAL_* for namespacing:
//
//	IDXVAL_SERVER_PORT=8080
//	IDXVAL_DATABASE_URL=postgres://...
//	IDXVAL_LOGGING_LEVEL=info
//	IDXVAL_NOTIFY_WEBHOOK_URL=https://hooks.example.com/...
//
// All configuration is validated at load time so the rest of the application
// can rely on sane values.
package config
