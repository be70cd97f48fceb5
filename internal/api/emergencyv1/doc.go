// Package emergencyv1 declares the sosbutton.v1.EmergencyService gRPC API.
//
// The service speaks protobuf well-known types only: requests and responses
// are google.protobuf.Struct (or Empty), so no generated code is needed. The
// package holds the service descriptor, typed client and server bindings, and
// the mapping between domain values and their Struct representation. The same
// representation is used for the on-disk state file and the HTTP API.
package emergencyv1
