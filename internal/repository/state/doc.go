// Package state implements persistence for the emergency State.
//
// The FileRepository stores and loads the state as JSON on disk and exposes a
// Repository interface that the coordinator depends on.
package state
