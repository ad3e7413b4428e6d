// Package http exposes a clarify.Service over a JSON HTTP API.
//
// Routes are described by api/openapi.yaml; requests are validated against it
// before reaching the handlers. Session changes are pushed to subscribers as
// server-sent events carrying domain.StateDiff payloads.
package http
