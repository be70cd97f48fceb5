// Package http exposes the emergency service to the dashboard over a small
// JSON API. State documents use the same Struct encoding as the gRPC API.
package http
