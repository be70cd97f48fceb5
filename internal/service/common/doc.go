// Package common holds what the sos-button clients share: a typed client for
// the emergency gRPC API (unary calls with a timeout, Watch without one) and
// detection of the local actor recorded with every request.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
