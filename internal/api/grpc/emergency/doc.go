// Package emergency implements the gRPC transport for the emergency service.
//
// It adapts domain types to the Struct messages of the emergencyv1 API and
// exposes a server that calls into a provided business-service interface.
package emergency
