// Package app provides application initialization and lifecycle management
// for the validation server. It wires configuration loading, logging and
// observability, the tabular source, the result store, the validation engine
// and the HTTP surface, and handles graceful shutdown.
//
// # Initialization Flow
//
// The typical initialization sequence:
//
//	1. Load configuration from environment and files
//	2. Initialize logging and observability
//	3. Open the database pool and build the tabular source
//	4. Build the result store (Postgres primary, local fallback)
//	5. Wire the validation engine and the service layer
//	6. Set up HTTP handlers and middleware
//	7. Configure and start the HTTP server
//
// # Graceful Shutdown
//
// The package handles SIGINT and SIGTERM to ensure active requests are
// completed, the database pool is closed, and final telemetry is flushed.
//
// All initialization errors are returned to the caller; the package never
// calls os.Exit() directly.
package app
