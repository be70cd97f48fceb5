// Package version carries the build metadata of the sos-button binaries.
//
// Version, Commit and BuildTime are set through ldflags. UserAgent is what
// clients and the HTTP facade announce, and AttachCobraVersionCommand adds
// the shared `version` subcommand.
package version
