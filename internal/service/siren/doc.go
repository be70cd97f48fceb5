// Package siren sounds the audible alarm when an emergency activates.
//
// The tone is synthesised once into a WAV file and played by the operating
// system's own player, so no audio driver is linked into the server.
package siren
