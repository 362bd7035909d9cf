// Package http implements the HTTP handlers of the validation API. Handlers
// stay thin: they parse and validate the request, call the service layer, and
// render the response.
//
// Routes are grouped per handler via a Routes() chi.Router that the
// application mounts under /api. Success responses use a
// {"status","data","count"} envelope rendered with go-chi/render; failures
// are RFC 7807 problem documents produced by the errors package, so clients
// see one error shape across every endpoint.
//
// ValidationHandler exposes the table catalog, run triggers, stored results
// and a CSV export. HealthHandler reports liveness plus a database ping and
// system metrics snapshot.
package http
