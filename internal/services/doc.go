// Package services implements the business logic layer between the HTTP
// handlers and the validation engine.
//
// ValidationService owns run orchestration policy: it checks the requested
// table against the domain catalog, applies the per-run timeout, persists
// nothing itself (the engine saves results as it runs), lists stored results,
// and pushes webhook alerts for runs that produced findings.
//
// Services take their dependencies as interfaces and a *slog.Logger through
// their constructors so handlers can be tested against fakes.
package services
