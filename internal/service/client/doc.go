// Package client defines the shared run loop of sos-button-on and
// sos-button-off.
//
// The command connects to the emergency server, requests a transition and
// retries until the server confirms the expected phase.
package client
